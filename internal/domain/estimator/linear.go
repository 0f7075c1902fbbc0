package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// NameLinearRegression is the factory name of LinearRegression.
const NameLinearRegression = "LinearRegression"

// LinearRegression is ordinary least squares, or ridge regression when
// Alpha is positive. Rank deficient designs, such as a full one-hot block
// next to an intercept, get the minimum norm solution.
type LinearRegression struct {
	FitIntercept bool
	Alpha        float64

	Coef      []float64
	Intercept float64
	Fitted    bool
}

// LinearOption configures a LinearRegression.
type LinearOption func(*LinearRegression)

// WithFitIntercept toggles the intercept term.
func WithFitIntercept(b bool) LinearOption { return func(l *LinearRegression) { l.FitIntercept = b } }

// WithAlpha sets the L2 penalty.
func WithAlpha(a float64) LinearOption { return func(l *LinearRegression) { l.Alpha = a } }

// NewLinearRegression returns an unfitted model with an intercept.
func NewLinearRegression(opts ...LinearOption) *LinearRegression {
	l := &LinearRegression{FitIntercept: true}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Name implements Estimator.
func (l *LinearRegression) Name() string { return NameLinearRegression }

// Params implements Estimator.
func (l *LinearRegression) Params() map[string]any {
	return map[string]any{"fit_intercept": l.FitIntercept, "alpha": l.Alpha}
}

// Fit solves for the coefficients.
func (l *LinearRegression) Fit(X mat.Matrix, y []float64) error {
	rows, cols, err := checkFitInput(X, y)
	if err != nil {
		return err
	}
	if l.Alpha < 0 {
		return fmt.Errorf("%w: alpha must be non-negative", ErrInvalidParam)
	}

	xMean := make([]float64, cols)
	yMean := 0.0
	if l.FitIntercept {
		for i := range rows {
			for j := range cols {
				xMean[j] += X.At(i, j)
			}
		}
		floats.Scale(1/float64(rows), xMean)
		yMean = floats.Sum(y) / float64(rows)
	}

	// The ridge penalty is folded in as sqrt(alpha)*I rows under the design.
	extra := 0
	if l.Alpha > 0 {
		extra = cols
	}
	a := mat.NewDense(rows+extra, cols, nil)
	b := mat.NewVecDense(rows+extra, nil)
	for i := range rows {
		for j := range cols {
			a.Set(i, j, X.At(i, j)-xMean[j])
		}
		b.SetVec(i, y[i]-yMean)
	}
	if extra > 0 {
		s := math.Sqrt(l.Alpha)
		for j := range cols {
			a.Set(rows+j, j, s)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return ErrSolve
	}
	rcond := float64(max(rows+extra, cols)) * 2.220446049250313e-16
	coef := make([]float64, cols)
	if rank := svd.Rank(rcond); rank > 0 {
		var w mat.VecDense
		svd.SolveVecTo(&w, b, rank)
		for j := range cols {
			coef[j] = w.AtVec(j)
		}
	}

	l.Coef = coef
	l.Intercept = yMean - floats.Dot(xMean, coef)
	l.Fitted = true
	return nil
}

// Predict returns X·coef + intercept.
func (l *LinearRegression) Predict(X mat.Matrix) ([]float64, error) {
	if !l.Fitted {
		return nil, ErrNotFitted
	}
	rows, cols := X.Dims()
	if cols != len(l.Coef) {
		return nil, fmt.Errorf("%w: got %d features, fitted on %d", ErrDimensionMismatch, cols, len(l.Coef))
	}
	out := make([]float64, rows)
	for i := range rows {
		v := l.Intercept
		for j, c := range l.Coef {
			v += c * X.At(i, j)
		}
		out[i] = v
	}
	return out, nil
}
