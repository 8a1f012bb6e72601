package jsonapi

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/eugenenazirov/jsonapi-settings/internal/signals"
)

const legacyRenderingNotice = "Rendering nested serializers in relations by default is deprecated and will be " +
	"changed in future releases. Please, use ResourceRelatedField or set " +
	"JSON_API_NESTED_SERIALIZERS_RENDERING_STRATEGY to RELATIONS"

// Source is the host settings object overrides are read from.
type Source interface {
	Lookup(key string) (any, bool)
}

// Notifier delivers host setting changes.
type Notifier interface {
	Connect(r signals.Receiver) (disconnect func())
}

// Settings resolves JSON API options, checking the host settings first and
// falling back to the defaults table. Resolved values are cached.
type Settings struct {
	source   Source
	defaults Defaults
	logger   *zap.Logger
	strict   bool

	mu    sync.RWMutex
	cache map[string]any
}

// SettingsOption configures Settings behaviour.
type SettingsOption func(*Settings)

// WithLogger sets the logger used for deprecation and change warnings.
// Without it the global zap logger is used.
func WithLogger(logger *zap.Logger) SettingsOption {
	return func(s *Settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStrictRenderingStrategy rejects an implicit rendering strategy instead
// of warning about the legacy default.
func WithStrictRenderingStrategy() SettingsOption {
	return func(s *Settings) {
		s.strict = true
	}
}

// New builds Settings over source. A nil defaults table selects
// DefaultOptions. The rendering strategy is resolved and validated eagerly.
func New(source Source, defaults Defaults, opts ...SettingsOption) (*Settings, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: nil settings source", ErrConfiguration)
	}
	if defaults == nil {
		defaults = DefaultOptions()
	}

	s := &Settings{
		source:   source,
		defaults: defaults,
		logger:   zap.L(),
		cache:    make(map[string]any, len(defaults)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.checkRenderingStrategy(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) checkRenderingStrategy() error {
	def, known := s.defaults[NestedSerializersRenderingStrategy]
	if !known {
		return nil
	}

	value, explicit := s.source.Lookup(Key(NestedSerializersRenderingStrategy))
	if !explicit {
		value = def
	}

	strategy, ok := toRenderingStrategy(value)
	if !ok {
		return invalidStrategyError(value)
	}

	if strategy == RelationsRenderingStrategy && !explicit {
		if s.strict {
			return fmt.Errorf("%w: %s must be set explicitly", ErrConfiguration, Key(NestedSerializersRenderingStrategy))
		}
		s.logger.Warn(legacyRenderingNotice,
			zap.String("option", NestedSerializersRenderingStrategy),
			zap.String("deprecated_default", string(RelationsRenderingStrategy)),
		)
	}
	return nil
}

// Get returns the resolved value of the named option.
func (s *Settings) Get(name string) (any, error) {
	def, known := s.defaults[name]
	if !known {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOption, name)
	}

	s.mu.RLock()
	value, cached := s.cache[name]
	s.mu.RUnlock()
	if cached {
		return value, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// a change notification may have filled the entry meanwhile
	if value, cached := s.cache[name]; cached {
		return value, nil
	}

	value, ok := s.source.Lookup(Key(name))
	if !ok {
		value = def
	}
	if name == NestedSerializersRenderingStrategy {
		if _, valid := toRenderingStrategy(value); !valid {
			return nil, invalidStrategyError(value)
		}
	}

	s.cache[name] = value
	return value, nil
}

// Bool returns the named option coerced to a bool.
func (s *Settings) Bool(name string) (bool, error) {
	value, err := s.Get(name)
	if err != nil {
		return false, err
	}
	b, err := cast.ToBoolE(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s is not a boolean: %v", ErrConfiguration, name, err)
	}
	return b, nil
}

// NestedSerializersRenderingStrategy returns the resolved rendering strategy.
func (s *Settings) NestedSerializersRenderingStrategy() (RenderingStrategy, error) {
	value, err := s.Get(NestedSerializersRenderingStrategy)
	if err != nil {
		return "", err
	}
	strategy, ok := toRenderingStrategy(value)
	if !ok {
		return "", invalidStrategyError(value)
	}
	return strategy, nil
}

// Options returns the recognised option names in sorted order.
func (s *Settings) Options() []string {
	return sortedNames(s.defaults)
}

// Snapshot resolves every option and returns the values keyed by name.
func (s *Settings) Snapshot() (map[string]any, error) {
	out := make(map[string]any, len(s.defaults))
	for _, name := range s.Options() {
		value, err := s.Get(name)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}

// OnSettingChanged updates the cache for a host setting change. Keys outside
// the JSON_API_ namespace, or naming unknown options, are ignored. A nil
// value evicts the cached entry so the next Get re-reads the source.
func (s *Settings) OnSettingChanged(setting string, value any) {
	name, ok := strings.CutPrefix(setting, Prefix)
	if !ok {
		return
	}
	if _, known := s.defaults[name]; !known {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if value == nil {
		delete(s.cache, name)
		return
	}
	if name == NestedSerializersRenderingStrategy {
		if _, valid := toRenderingStrategy(value); !valid {
			s.logger.Warn("ignoring invalid rendering strategy",
				zap.String("setting", setting),
				zap.Any("value", value),
			)
			delete(s.cache, name)
			return
		}
	}
	s.cache[name] = value
}

// Subscribe connects OnSettingChanged to n.
func (s *Settings) Subscribe(n Notifier) (unsubscribe func()) {
	return n.Connect(func(c signals.Change) {
		s.OnSettingChanged(c.Setting, c.Value)
	})
}

func toRenderingStrategy(value any) (RenderingStrategy, bool) {
	if strategy, ok := value.(RenderingStrategy); ok {
		return strategy, strategy.Valid()
	}
	str, err := cast.ToStringE(value)
	if err != nil {
		return "", false
	}
	strategy := RenderingStrategy(str)
	return strategy, strategy.Valid()
}

func invalidStrategyError(value any) error {
	return fmt.Errorf("%w: invalid value '%v' for JSON API setting %s", ErrConfiguration, value, NestedSerializersRenderingStrategy)
}
