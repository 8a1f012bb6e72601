package signals

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSendDeliversInConnectionOrder(t *testing.T) {
	t.Parallel()

	sig := New()
	var got []string
	sig.Connect(func(c Change) { got = append(got, "first:"+c.Setting) })
	sig.Connect(func(c Change) { got = append(got, "second:"+c.Setting) })

	sig.Send(Change{Setting: "JSON_API_FORMAT_TYPES", Value: true})

	want := []string{"first:JSON_API_FORMAT_TYPES", "second:JSON_API_FORMAT_TYPES"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected delivery order (-want +got):\n%s", diff)
	}
}

func TestDisconnectStopsDelivery(t *testing.T) {
	t.Parallel()

	sig := New()
	calls := 0
	disconnect := sig.Connect(func(Change) { calls++ })

	sig.Send(Change{Setting: "A"})
	disconnect()
	disconnect()
	sig.Send(Change{Setting: "B"})

	if calls != 1 {
		t.Fatalf("expected exactly one delivery, got %d", calls)
	}
	if n := sig.Receivers(); n != 0 {
		t.Fatalf("expected no receivers, got %d", n)
	}
}

func TestConnectNilReceiver(t *testing.T) {
	t.Parallel()

	sig := New()
	disconnect := sig.Connect(nil)
	disconnect()

	if n := sig.Receivers(); n != 0 {
		t.Fatalf("nil receiver must not be registered, got %d receivers", n)
	}
	sig.Send(Change{Setting: "X"})
}

func TestReceiverMayDisconnectDuringSend(t *testing.T) {
	t.Parallel()

	sig := New()
	var disconnect func()
	calls := 0
	disconnect = sig.Connect(func(Change) {
		calls++
		disconnect()
	})

	sig.Send(Change{Setting: "A"})
	sig.Send(Change{Setting: "B"})

	if calls != 1 {
		t.Fatalf("expected receiver to run once, got %d", calls)
	}
}

func TestConcurrentConnectAndSend(t *testing.T) {
	sig := New()
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)

	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			disconnect := sig.Connect(func(Change) {
				mu.Lock()
				total++
				mu.Unlock()
			})
			disconnect()
		}()
		go func() {
			defer wg.Done()
			sig.Send(Change{Setting: "JSON_API_PLURALIZE_TYPES", Value: true})
		}()
	}
	wg.Wait()

	if n := sig.Receivers(); n != 0 {
		t.Fatalf("expected all receivers to be disconnected, got %d", n)
	}
}
