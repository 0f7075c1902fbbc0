package estimator

import (
	"fmt"
	"math"
	"strconv"
)

// New builds an unfitted estimator from a model name and its parameter
// mapping. Unknown names fail with UnsupportedEstimatorError and unknown
// parameters with ErrInvalidParam.
func New(name string, params map[string]any) (Estimator, error) {
	p := paramReader{name: name, params: params, used: map[string]bool{}}

	var est Estimator
	switch name {
	case NameLinearRegression:
		est = NewLinearRegression(
			WithFitIntercept(p.bool("fit_intercept", true)),
			WithAlpha(p.float("alpha", 0)),
		)
	case NameRandomForest:
		f := NewRandomForestRegressor()
		est = NewRandomForestRegressor(
			WithNEstimators(p.int("n_estimators", f.NEstimators)),
			WithMaxDepth(p.int("max_depth", 0)),
			WithMinSamplesSplit(p.int("min_samples_split", f.MinSamplesSplit)),
			WithMinSamplesLeaf(p.int("min_samples_leaf", f.MinSamplesLeaf)),
			WithMaxFeatures(p.string("max_features", MaxFeaturesAll)),
			WithBootstrap(p.bool("bootstrap", true)),
			WithRandomState(int64(p.int("random_state", int(f.RandomState)))),
			WithNJobs(p.int("n_jobs", 1)),
		)
	default:
		return nil, &UnsupportedEstimatorError{Name: name}
	}

	if err := p.finish(); err != nil {
		return nil, err
	}
	return est, nil
}

// paramReader coerces YAML scalars and records the first failure.
type paramReader struct {
	name   string
	params map[string]any
	used   map[string]bool
	err    error
}

func (p *paramReader) get(key string) (any, bool) {
	p.used[key] = true
	v, ok := p.params[key]
	return v, ok && v != nil
}

func (p *paramReader) fail(key string, v any) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s.%s=%v", ErrInvalidParam, p.name, key, v)
	}
}

func (p *paramReader) int(key string, def int) int {
	v, ok := p.get(key)
	if !ok {
		return def
	}
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		if x == math.Trunc(x) {
			return int(x)
		}
	case string:
		if n, err := strconv.Atoi(x); err == nil {
			return n
		}
	}
	p.fail(key, v)
	return def
}

func (p *paramReader) float(key string, def float64) float64 {
	v, ok := p.get(key)
	if !ok {
		return def
	}
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f
		}
	}
	p.fail(key, v)
	return def
}

func (p *paramReader) bool(key string, def bool) bool {
	v, ok := p.get(key)
	if !ok {
		return def
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		if b, err := strconv.ParseBool(x); err == nil {
			return b
		}
	}
	p.fail(key, v)
	return def
}

func (p *paramReader) string(key, def string) string {
	v, ok := p.get(key)
	if !ok {
		return def
	}
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	p.fail(key, v)
	return def
}

func (p *paramReader) finish() error {
	if p.err != nil {
		return p.err
	}
	for k := range p.params {
		if !p.used[k] {
			return fmt.Errorf("%w: %s does not accept %q", ErrInvalidParam, p.name, k)
		}
	}
	return nil
}
