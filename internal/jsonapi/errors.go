package jsonapi

import "errors"

var (
	// ErrConfiguration is returned when an option holds a value outside its allowed range.
	ErrConfiguration = errors.New("invalid JSON API configuration")
	// ErrUnknownOption is returned when a caller asks for an option that is not in the defaults table.
	ErrUnknownOption = errors.New("invalid JSON API setting")
	// ErrNotInitialized is returned by package-level accessors before Init has run.
	ErrNotInitialized = errors.New("JSON API settings not initialized")
)
