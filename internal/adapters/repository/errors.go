package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrStoreUnavailable = errors.New("ingestion store unavailable")
	ErrMalformedFile    = errors.New("malformed tabular file")
)
