// Package predictor prices raw laptop records with a fitted model bundle.
package predictor

import (
	"context"
	"math"

	"github.com/okian/lapprice/internal/domain/features"
	"github.com/okian/lapprice/internal/domain/model"
)

// Predictor pairs a bundle with inference feature engineering. It holds only
// immutable state and is safe for concurrent use.
type Predictor struct {
	bundle   *Bundle
	engineer *features.Engineer
	policy   MissingColumnPolicy
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithPolicy overrides the missing column policy.
func WithPolicy(p MissingColumnPolicy) Option { return func(pr *Predictor) { pr.policy = p } }

// New wraps a validated bundle.
func New(b *Bundle, opts ...Option) (*Predictor, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	p := &Predictor{
		bundle:   b,
		engineer: features.NewWithColumns(b.TrainColumns, b.PredictColumns),
		policy:   LenientPolicy,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Bundle returns the wrapped bundle.
func (p *Predictor) Bundle() *Bundle { return p.bundle }

// Metadata returns the bundle metadata.
func (p *Predictor) Metadata() Metadata { return p.bundle.Metadata }

// Predict prices records in original currency units.
func (p *Predictor) Predict(_ context.Context, records []model.RawRecord) ([]float64, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	f, err := p.engineer.Inference(records)
	if err != nil {
		return nil, err
	}
	logs, err := p.PredictLog(f)
	if err != nil {
		return nil, err
	}
	for i, v := range logs {
		logs[i] = math.Exp(v)
	}
	return logs, nil
}

// PredictLog scores an engineered frame in log-price space. Columns the
// transform needs but f lacks are filled by the policy on a copy of f.
func (p *Predictor) PredictLog(f *model.Frame) ([]float64, error) {
	t := p.bundle.Transform
	if num, cat := p.policy.Eligible(f, t.Numeric, t.Categorical); len(num)+len(cat) > 0 {
		f = &model.Frame{Columns: append([]string(nil), f.Columns...), Rows: cloneRows(f.Rows)}
		if _, err := p.policy.Apply(f, t.Numeric, t.Categorical); err != nil {
			return nil, err
		}
	}
	ordered, missing := f.Select(t.Columns())
	if len(missing) > 0 {
		return nil, ErrMissingColumns
	}
	X, err := t.Transform(ordered)
	if err != nil {
		return nil, err
	}
	return p.bundle.Estimator.Predict(X)
}

func cloneRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
