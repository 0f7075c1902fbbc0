package estimator

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"gonum.org/v1/gonum/mat"
)

// linearData returns y = 3 + 2*x0 - x1 over a small grid.
func linearData() (*mat.Dense, []float64) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		1, 0,
		0, 1,
		1, 1,
		2, 1,
		3, 2,
	})
	y := make([]float64, 6)
	for i := range y {
		y[i] = 3 + 2*X.At(i, 0) - X.At(i, 1)
	}
	return X, y
}

func TestLinearRegression(t *testing.T) {
	Convey("Given noiseless linear data", t, func() {
		X, y := linearData()

		Convey("When fitting ordinary least squares", func() {
			lr := NewLinearRegression()
			So(lr.Fit(X, y), ShouldBeNil)

			Convey("Then the coefficients are recovered", func() {
				So(lr.Intercept, ShouldAlmostEqual, 3, 1e-9)
				So(lr.Coef[0], ShouldAlmostEqual, 2, 1e-9)
				So(lr.Coef[1], ShouldAlmostEqual, -1, 1e-9)
			})

			Convey("Then predictions score a perfect R2", func() {
				s, err := Score(lr, X, y)
				So(err, ShouldBeNil)
				So(s.R2, ShouldAlmostEqual, 1, 1e-9)
				So(s.RMSE, ShouldAlmostEqual, 0, 1e-9)
			})
		})

		Convey("When a column is duplicated", func() {
			dup := mat.NewDense(6, 3, nil)
			for i := range 6 {
				dup.Set(i, 0, X.At(i, 0))
				dup.Set(i, 1, X.At(i, 0))
				dup.Set(i, 2, X.At(i, 1))
			}
			lr := NewLinearRegression()
			So(lr.Fit(dup, y), ShouldBeNil)

			Convey("Then the minimum norm solution splits the weight", func() {
				So(lr.Coef[0], ShouldAlmostEqual, 1, 1e-9)
				So(lr.Coef[1], ShouldAlmostEqual, 1, 1e-9)
				pred, err := lr.Predict(dup)
				So(err, ShouldBeNil)
				So(R2(y, pred), ShouldAlmostEqual, 1, 1e-9)
			})
		})

		Convey("When a ridge penalty is applied", func() {
			lr := NewLinearRegression(WithAlpha(10))
			So(lr.Fit(X, y), ShouldBeNil)
			So(math.Abs(lr.Coef[0]), ShouldBeLessThan, 2)
		})

		Convey("When the intercept is disabled", func() {
			lr := NewLinearRegression(WithFitIntercept(false))
			So(lr.Fit(X, y), ShouldBeNil)
			So(lr.Intercept, ShouldEqual, 0)
		})

		Convey("When predicting before fit or with the wrong width", func() {
			_, err := NewLinearRegression().Predict(X)
			So(err, ShouldEqual, ErrNotFitted)

			lr := NewLinearRegression()
			So(lr.Fit(X, y), ShouldBeNil)
			_, err = lr.Predict(mat.NewDense(1, 3, nil))
			So(errors.Is(err, ErrDimensionMismatch), ShouldBeTrue)
		})

		Convey("When the target length differs", func() {
			So(NewLinearRegression().Fit(X, y[:3]), ShouldEqual, ErrDimensionMismatch)
		})
	})
}

func stepData(n int) (*mat.Dense, []float64) {
	rnd := rand.New(rand.NewSource(7))
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := range n {
		a, b := rnd.Float64()*10, rnd.Float64()
		X.Set(i, 0, a)
		X.Set(i, 1, b)
		if a > 5 {
			y[i] = 10
		} else {
			y[i] = 1
		}
	}
	return X, y
}

func TestRandomForestRegressor(t *testing.T) {
	Convey("Given a step function", t, func() {
		X, y := stepData(200)

		Convey("When fitting a seeded forest", func() {
			rf := NewRandomForestRegressor(WithNEstimators(10), WithRandomState(42))
			So(rf.Fit(X, y), ShouldBeNil)

			Convey("Then it fits the training data closely", func() {
				s, err := Score(rf, X, y)
				So(err, ShouldBeNil)
				So(s.R2, ShouldBeGreaterThan, 0.95)
			})

			Convey("Then a second forest with the same seed agrees", func() {
				other := NewRandomForestRegressor(WithNEstimators(10), WithRandomState(42), WithNJobs(4))
				So(other.Fit(X, y), ShouldBeNil)
				a, _ := rf.Predict(X)
				b, _ := other.Predict(X)
				So(a, ShouldResemble, b)
			})

			Convey("Then it survives a gob round trip", func() {
				var buf bytes.Buffer
				var e Estimator = rf
				So(gob.NewEncoder(&buf).Encode(&e), ShouldBeNil)
				var back Estimator
				So(gob.NewDecoder(&buf).Decode(&back), ShouldBeNil)
				So(back.Name(), ShouldEqual, NameRandomForest)
				a, _ := rf.Predict(X)
				b, err := back.Predict(X)
				So(err, ShouldBeNil)
				So(b, ShouldResemble, a)
			})
		})

		Convey("When depth is limited to one split", func() {
			rf := NewRandomForestRegressor(WithNEstimators(3), WithMaxDepth(1), WithBootstrap(false), WithRandomState(1))
			So(rf.Fit(X, y), ShouldBeNil)
			for _, tr := range rf.Trees {
				So(len(tr.Nodes), ShouldBeLessThanOrEqualTo, 3)
			}
		})

		Convey("When parameters are invalid", func() {
			So(errors.Is(NewRandomForestRegressor(WithNEstimators(0)).Fit(X, y), ErrInvalidParam), ShouldBeTrue)
			So(errors.Is(NewRandomForestRegressor(WithMaxFeatures("half")).Fit(X, y), ErrInvalidParam), ShouldBeTrue)
		})

		Convey("When sampling features", func() {
			k, err := featureCount(MaxFeaturesSqrt, 16)
			So(err, ShouldBeNil)
			So(k, ShouldEqual, 4)
			k, _ = featureCount(MaxFeaturesLog2, 16)
			So(k, ShouldEqual, 4)
			k, _ = featureCount("100", 16)
			So(k, ShouldEqual, 16)
		})
	})
}

func TestFactory(t *testing.T) {
	Convey("Given model names and parameters", t, func() {
		Convey("When the name is a linear model", func() {
			est, err := New(NameLinearRegression, map[string]any{"fit_intercept": false, "alpha": 0.5})
			So(err, ShouldBeNil)
			lr := est.(*LinearRegression)
			So(lr.FitIntercept, ShouldBeFalse)
			So(lr.Alpha, ShouldEqual, 0.5)
		})

		Convey("When the name is a forest with YAML typed values", func() {
			est, err := New(NameRandomForest, map[string]any{"n_estimators": 50, "max_depth": 15.0, "random_state": 42, "max_features": "sqrt"})
			So(err, ShouldBeNil)
			rf := est.(*RandomForestRegressor)
			So(rf.NEstimators, ShouldEqual, 50)
			So(rf.MaxDepth, ShouldEqual, 15)
			So(rf.RandomState, ShouldEqual, 42)
			So(rf.Params()["max_features"], ShouldEqual, "sqrt")
		})

		Convey("When the name is unknown", func() {
			_, err := New("XGBRegressor", nil)
			var ue *UnsupportedEstimatorError
			So(errors.As(err, &ue), ShouldBeTrue)
			So(ue.Name, ShouldEqual, "XGBRegressor")
			So(errors.Is(err, ErrUnsupportedEstimator), ShouldBeTrue)
		})

		Convey("When a parameter is unknown or mistyped", func() {
			_, err := New(NameLinearRegression, map[string]any{"n_estimators": 3})
			So(errors.Is(err, ErrInvalidParam), ShouldBeTrue)
			_, err = New(NameRandomForest, map[string]any{"max_depth": 2.5})
			So(errors.Is(err, ErrInvalidParam), ShouldBeTrue)
		})
	})
}

func TestMetrics(t *testing.T) {
	Convey("Given predictions", t, func() {
		yTrue := []float64{1, 2, 3, 4}
		yPred := []float64{1, 2, 3, 5}

		So(MAE(yTrue, yPred), ShouldAlmostEqual, 0.25, 1e-12)
		So(RMSE(yTrue, yPred), ShouldAlmostEqual, 0.5, 1e-12)
		So(R2(yTrue, yPred), ShouldAlmostEqual, 1-1.0/5.0, 1e-12)
		So(R2([]float64{2, 2}, []float64{2, 2}), ShouldEqual, 1)
		So(R2([]float64{2, 2}, []float64{1, 3}), ShouldEqual, 0)
		So(R2(nil, nil), ShouldEqual, 0)
	})
}
