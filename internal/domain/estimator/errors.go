package estimator

import (
	"errors"
	"fmt"
)

// Sentinel errors for estimators.
var (
	ErrUnsupportedEstimator = errors.New("unsupported estimator")
	ErrNotFitted            = errors.New("estimator not fitted")
	ErrDimensionMismatch    = errors.New("dimension mismatch")
	ErrEmptyInput           = errors.New("empty input")
	ErrInvalidParam         = errors.New("invalid estimator parameter")
	ErrSolve                = errors.New("least squares solve failed")
)

// UnsupportedEstimatorError names a model the factory cannot build.
type UnsupportedEstimatorError struct {
	Name string
}

func (e *UnsupportedEstimatorError) Error() string {
	return fmt.Sprintf("unsupported estimator %q (supported: %s, %s)", e.Name, NameLinearRegression, NameRandomForest)
}

// Is matches ErrUnsupportedEstimator.
func (e *UnsupportedEstimatorError) Is(target error) bool { return target == ErrUnsupportedEstimator }
