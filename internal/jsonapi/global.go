package jsonapi

import "sync"

var (
	globalMu          sync.RWMutex
	globalSettings    *Settings
	globalUnsubscribe func()
)

// Init builds the process-wide Settings and subscribes it to n. Calling Init
// again replaces the previous instance and disconnects it from its notifier.
// On error the existing instance is left untouched.
func Init(source Source, n Notifier, opts ...SettingsOption) (*Settings, error) {
	s, err := New(source, nil, opts...)
	if err != nil {
		return nil, err
	}

	unsubscribe := func() {}
	if n != nil {
		unsubscribe = s.Subscribe(n)
	}

	globalMu.Lock()
	previous := globalUnsubscribe
	globalSettings = s
	globalUnsubscribe = unsubscribe
	globalMu.Unlock()

	if previous != nil {
		previous()
	}
	return s, nil
}

// Default returns the instance installed by Init, or nil.
func Default() *Settings {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalSettings
}

// Get resolves name through the process-wide instance.
func Get(name string) (any, error) {
	s := Default()
	if s == nil {
		return nil, ErrNotInitialized
	}
	return s.Get(name)
}
