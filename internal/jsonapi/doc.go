// Package jsonapi exposes the settings consumed by the JSON API serialization
// layer. Each option is resolved lazily from the host settings (keys prefixed
// with JSON_API_), falls back to a built-in default, and is cached until a
// setting-changed notification updates or evicts it.
package jsonapi
