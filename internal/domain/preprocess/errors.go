package preprocess

import "errors"

// Sentinel errors for the column transform.
var (
	ErrAlreadyFitted = errors.New("transform already fitted")
	ErrNotFitted     = errors.New("transform not fitted")
	ErrMissingColumn = errors.New("column missing from frame")
	ErrNonNumeric    = errors.New("non-numeric value in numerical column")
	ErrEmptyFrame    = errors.New("cannot fit on an empty frame")
)
