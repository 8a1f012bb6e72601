// Package usersettings is the host's global settings object. It stores named
// attributes and announces every assignment or removal on a signals.Signal so
// that cached consumers can refresh without a restart.
package usersettings

import (
	"fmt"
	"sync"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/eugenenazirov/jsonapi-settings/internal/signals"
	"github.com/eugenenazirov/jsonapi-settings/internal/storage"
)

// Settings couples attribute storage with the setting-changed signal.
// Writes and their changes are delivered in the same order, so receivers
// must not modify Settings.
type Settings struct {
	store  storage.Storage
	signal *signals.Signal
	logger *zap.Logger

	// mu is held across a store write and its Send.
	mu sync.Mutex
}

// New creates Settings over store, announcing changes on signal.
func New(store storage.Storage, signal *signals.Signal, logger *zap.Logger) *Settings {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Settings{
		store:  store,
		signal: signal,
		logger: logger,
	}
}

// Signal returns the signal changes are sent on.
func (s *Settings) Signal() *signals.Signal {
	return s.signal
}

// Lookup returns the attribute stored under key.
func (s *Settings) Lookup(key string) (any, bool) {
	return s.store.Lookup(key)
}

// Set assigns value to key and sends a change. A nil value removes the key.
func (s *Settings) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(key, value)
}

// Delete removes key and reports whether it was present. A change with a nil
// value is sent only when something was removed.
func (s *Settings) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delete(key)
}

func (s *Settings) set(key string, value any) error {
	if value == nil {
		s.delete(key)
		return nil
	}
	if err := s.store.Set(key, value); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}

	s.logger.Debug("setting changed", zap.String("setting", key), zap.Any("value", value))
	s.signal.Send(signals.Change{Setting: key, Value: value})
	return nil
}

func (s *Settings) delete(key string) bool {
	if !s.store.Delete(key) {
		return false
	}

	s.logger.Debug("setting removed", zap.String("setting", key))
	s.signal.Send(signals.Change{Setting: key})
	return true
}

// Override assigns value to key until the returned restore function runs,
// which puts back the previous value or removes the key.
func (s *Settings) Override(key string, value any) (restore func(), err error) {
	s.mu.Lock()
	previous, existed := s.store.Lookup(key)
	err = s.set(key, value)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existed {
			if err := s.set(key, previous); err != nil {
				s.logger.Error("restore setting failed", zap.String("setting", key), zap.Error(err))
			}
			return
		}
		s.delete(key)
	}, nil
}

// Replace makes values the complete attribute set. Keys that disappeared are
// removed, new or changed keys are assigned, and unchanged keys are left
// alone. It returns the number of changes sent.
func (s *Settings) Replace(values map[string]any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, key := range s.store.Keys() {
		if next, ok := values[key]; ok && next != nil {
			continue
		}
		if s.delete(key) {
			changed++
		}
	}

	for key, next := range values {
		if next == nil {
			continue
		}
		if current, ok := s.store.Lookup(key); ok && cmp.Equal(current, next) {
			continue
		}
		if err := s.set(key, next); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// Snapshot returns a copy of every stored attribute.
func (s *Settings) Snapshot() map[string]any {
	return s.store.Snapshot()
}
