package storage

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
)

func TestNewMemoryStorageCopiesInitialValues(t *testing.T) {
	t.Parallel()

	initial := map[string]any{
		"JSON_API_FORMAT_TYPES": true,
		"DEBUG":                 false,
		"":                      "dropped",
		"NIL":                   nil,
	}
	store := NewMemoryStorage(initial)

	// ensure mutation safety
	initial["JSON_API_FORMAT_TYPES"] = false

	got, ok := store.Lookup("JSON_API_FORMAT_TYPES")
	if !ok || got != true {
		t.Fatalf("expected stored value true, got %v (present %v)", got, ok)
	}
	if want := []string{"DEBUG", "JSON_API_FORMAT_TYPES"}; !slices.Equal(store.Keys(), want) {
		t.Fatalf("expected keys %v, got %v", want, store.Keys())
	}
}

func TestSetAndDelete(t *testing.T) {
	t.Parallel()

	store := NewMemoryStorage(nil)
	if err := store.Set("JSON_API_PLURALIZE_TYPES", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, ok := store.Lookup("JSON_API_PLURALIZE_TYPES"); !ok || got != true {
		t.Fatalf("expected true, got %v (present %v)", got, ok)
	}
	if !store.Delete("JSON_API_PLURALIZE_TYPES") {
		t.Fatalf("expected Delete to report presence")
	}
	if store.Delete("JSON_API_PLURALIZE_TYPES") {
		t.Fatalf("expected second Delete to report absence")
	}
	if _, ok := store.Lookup("JSON_API_PLURALIZE_TYPES"); ok {
		t.Fatalf("expected key to be removed")
	}
}

func TestSetRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	store := NewMemoryStorage(nil)
	if err := store.Set("", 1); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestSnapshotIsDefensiveCopy(t *testing.T) {
	t.Parallel()

	store := NewMemoryStorage(map[string]any{"A": 1})
	snap := store.Snapshot()
	snap["A"] = 2
	snap["B"] = 3

	if got, _ := store.Lookup("A"); got != 1 {
		t.Fatalf("expected stored value to be untouched, got %v", got)
	}
	if _, ok := store.Lookup("B"); ok {
		t.Fatalf("expected snapshot additions not to leak into storage")
	}
}

func TestMemoryStorageConcurrentAccess(t *testing.T) {
	store := NewMemoryStorage(nil)
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(3)

		go func(offset int) {
			defer wg.Done()
			if err := store.Set(fmt.Sprintf("KEY_%d", offset%4), offset); err != nil {
				t.Errorf("Set failed: %v", err)
			}
		}(i)

		go func(offset int) {
			defer wg.Done()
			store.Lookup(fmt.Sprintf("KEY_%d", offset%4))
		}(i)

		go func(offset int) {
			defer wg.Done()
			if offset%3 == 0 {
				store.Delete(fmt.Sprintf("KEY_%d", offset%4))
			}
			_ = store.Snapshot()
		}(i)
	}

	wg.Wait()

	if len(store.Keys()) > 4 {
		t.Fatalf("unexpected keys: %v", store.Keys())
	}
}
