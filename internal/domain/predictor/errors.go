package predictor

import "errors"

// Sentinel errors for the predictor.
var (
	ErrInvalidBundle  = errors.New("invalid model bundle")
	ErrMissingColumns = errors.New("required columns missing")
	ErrNoRecords      = errors.New("no records to predict")
)
