// Package preprocess standardizes numerical columns and one-hot encodes
// categorical columns into the matrix an estimator consumes.
package preprocess

import (
	"fmt"
	"slices"

	"github.com/okian/lapprice/internal/domain/model"
	"github.com/okian/lapprice/internal/schema"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// UnknownCategory is the placeholder used for absent categorical inputs.
const UnknownCategory = "unknown"

// Transform is a column transformer. Numerical columns are scaled to zero
// mean and unit variance; categorical columns become indicator blocks with
// one column per category seen during Fit. An unseen category encodes as an
// all-zero block.
//
// Fields are exported for gob persistence only; treat them as read-only.
type Transform struct {
	Numeric     []string
	Categorical []string
	Means       []float64
	Scales      []float64
	Categories  [][]string
	Fitted      bool
}

// Build returns an unfitted transform over the schema feature lists.
func Build(s *schema.Schema) *Transform {
	return New(s.NumericalFeatures(), s.CategoricalFeatures())
}

// New returns an unfitted transform over explicit column lists.
func New(numeric, categorical []string) *Transform {
	return &Transform{Numeric: slices.Clone(numeric), Categorical: slices.Clone(categorical)}
}

// Fit learns scaling parameters and category vocabularies from f. It may be
// called exactly once.
func (t *Transform) Fit(f *model.Frame) error {
	if t.Fitted {
		return ErrAlreadyFitted
	}
	if f.Len() == 0 {
		return ErrEmptyFrame
	}

	means := make([]float64, len(t.Numeric))
	scales := make([]float64, len(t.Numeric))
	for i, col := range t.Numeric {
		vals, err := numericColumn(f, col)
		if err != nil {
			return err
		}
		mean, std := stat.PopMeanStdDev(vals, nil)
		if std == 0 {
			std = 1
		}
		means[i], scales[i] = mean, std
	}

	cats := make([][]string, len(t.Categorical))
	for i, col := range t.Categorical {
		vals := f.Column(col)
		if vals == nil {
			return fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
		seen := map[string]struct{}{}
		for _, v := range vals {
			seen[model.CategoryString(v)] = struct{}{}
		}
		keys := make([]string, 0, len(seen))
		for k := range seen {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		cats[i] = keys
	}

	t.Means, t.Scales, t.Categories, t.Fitted = means, scales, cats, true
	return nil
}

// Width returns the number of output columns.
func (t *Transform) Width() int {
	w := len(t.Numeric)
	for _, c := range t.Categories {
		w += len(c)
	}
	return w
}

// FeatureNames returns output column names, numerical first, then
// "<column>_<category>" indicators.
func (t *Transform) FeatureNames() []string {
	names := slices.Clone(t.Numeric)
	for i, col := range t.Categorical {
		for _, c := range t.Categories[i] {
			names = append(names, col+"_"+c)
		}
	}
	return names
}

// Columns returns every input column the transform reads, numerical first.
func (t *Transform) Columns() []string {
	return append(slices.Clone(t.Numeric), t.Categorical...)
}

// Transform encodes f. It does not modify the receiver and is safe for
// concurrent use once fitted.
func (t *Transform) Transform(f *model.Frame) (*mat.Dense, error) {
	if !t.Fitted {
		return nil, ErrNotFitted
	}
	n := f.Len()
	if n == 0 {
		return nil, ErrEmptyFrame
	}

	out := mat.NewDense(n, t.Width(), nil)
	for i, col := range t.Numeric {
		vals, err := numericColumn(f, col)
		if err != nil {
			return nil, err
		}
		for r, v := range vals {
			out.Set(r, i, (v-t.Means[i])/t.Scales[i])
		}
	}

	offset := len(t.Numeric)
	for i, col := range t.Categorical {
		vals := f.Column(col)
		if vals == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
		cats := t.Categories[i]
		for r, v := range vals {
			if j, ok := slices.BinarySearch(cats, model.CategoryString(v)); ok {
				out.Set(r, offset+j, 1)
			}
		}
		offset += len(cats)
	}
	return out, nil
}

func numericColumn(f *model.Frame, col string) ([]float64, error) {
	if f.Index(col) < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
	}
	vals, ok := f.Floats(col)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNonNumeric, col)
	}
	return vals, nil
}
