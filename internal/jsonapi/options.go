package jsonapi

import (
	"maps"
	"slices"
)

// Prefix namespaces JSON API overrides inside the host settings.
const Prefix = "JSON_API_"

// Recognised option names.
const (
	FormatFieldNames                   = "FORMAT_FIELD_NAMES"
	FormatTypes                        = "FORMAT_TYPES"
	PluralizeTypes                     = "PLURALIZE_TYPES"
	UniformExceptions                  = "UNIFORM_EXCEPTIONS"
	NestedSerializersRenderingStrategy = "NESTED_SERIALIZERS_RENDERING_STRATEGY"
)

// RenderingStrategy selects how nested serializers are rendered.
type RenderingStrategy string

const (
	// RelationsRenderingStrategy renders nested serializers as relationships.
	// It is the legacy default.
	RelationsRenderingStrategy RenderingStrategy = "RELATIONS"
	// AttributeRenderingStrategy renders nested serializers as attributes.
	AttributeRenderingStrategy RenderingStrategy = "ATTRIBUTE"
)

// Valid reports whether s is one of the known strategies.
func (s RenderingStrategy) Valid() bool {
	return s == RelationsRenderingStrategy || s == AttributeRenderingStrategy
}

// Defaults maps option names to their built-in values.
type Defaults map[string]any

var defaultOptions = Defaults{
	FormatFieldNames:                   false,
	FormatTypes:                        false,
	PluralizeTypes:                     false,
	UniformExceptions:                  false,
	NestedSerializersRenderingStrategy: RelationsRenderingStrategy,
}

// DefaultOptions returns a copy of the built-in defaults table.
func DefaultOptions() Defaults {
	return maps.Clone(defaultOptions)
}

// Key returns the host settings key that overrides the named option.
func Key(name string) string {
	return Prefix + name
}

func sortedNames(defaults Defaults) []string {
	return slices.Sorted(maps.Keys(defaults))
}
