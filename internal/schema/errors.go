package schema

import "errors"

// Sentinel kinds for schema errors.
var (
	ErrLoad    = errors.New("schema load failed")
	ErrInvalid = errors.New("invalid schema")
)
