// Package estimator implements the regression models the pipeline can
// train, the factory that selects one by name, and scoring helpers.
package estimator

import (
	"encoding/gob"

	"gonum.org/v1/gonum/mat"
)

// Estimator is a regression model over a dense feature matrix.
// A fitted estimator is read-only and safe for concurrent Predict calls.
type Estimator interface {
	Name() string
	Params() map[string]any
	Fit(X mat.Matrix, y []float64) error
	Predict(X mat.Matrix) ([]float64, error)
}

func init() {
	gob.Register(&LinearRegression{})
	gob.Register(&RandomForestRegressor{})
}

func checkFitInput(X mat.Matrix, y []float64) (rows, cols int, err error) {
	rows, cols = X.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, ErrEmptyInput
	}
	if len(y) != rows {
		return 0, 0, ErrDimensionMismatch
	}
	return rows, cols, nil
}
