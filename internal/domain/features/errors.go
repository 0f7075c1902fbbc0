package features

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for feature engineering failures.
var (
	ErrMalformedField = errors.New("malformed field")
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrEmptyBatch     = errors.New("empty batch")
)

// MalformedFieldError reports a raw value that could not be parsed.
// Row is the zero-based position in the input batch, or -1 for a single value.
type MalformedFieldError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *MalformedFieldError) Error() string {
	msg := fmt.Sprintf("malformed %s %q", e.Field, e.Value)
	if e.Row >= 0 {
		msg = fmt.Sprintf("row %d: %s", e.Row, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches ErrMalformedField.
func (e *MalformedFieldError) Is(target error) bool { return target == ErrMalformedField }

func (e *MalformedFieldError) Unwrap() error { return e.Err }

// SchemaMismatchError reports columns the schema requires but the engineered
// table does not have.
type SchemaMismatchError struct {
	Columns []string
	Variant Variant
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s columns missing after transformation: %s", e.Variant, strings.Join(e.Columns, ", "))
}

// Is matches ErrSchemaMismatch.
func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

func malformed(field, value string, err error) *MalformedFieldError {
	return &MalformedFieldError{Row: -1, Field: field, Value: value, Err: err}
}

// atRow stamps a row index onto a MalformedFieldError.
func atRow(err error, row int) error {
	var mf *MalformedFieldError
	if errors.As(err, &mf) {
		cp := *mf
		cp.Row = row
		return &cp
	}
	return err
}
