package predictor

import (
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/okian/lapprice/internal/domain/estimator"
	"github.com/okian/lapprice/internal/domain/preprocess"
)

// Metadata describes how a bundle was produced.
type Metadata struct {
	RunID     string
	ModelName string
	Params    map[string]any
	TestR2    float64
	TestMAE   float64
	TestRMSE  float64
	TrainRows int
	CreatedAt time.Time
}

// Bundle is the persisted unit: a fitted transform and the estimator trained
// on its output. They are only ever stored and loaded together.
type Bundle struct {
	Transform      *preprocess.Transform
	Estimator      estimator.Estimator
	TrainColumns   []string
	PredictColumns []string
	Metadata       Metadata
}

// Validate checks that the pair is usable.
func (b *Bundle) Validate() error {
	switch {
	case b == nil:
		return fmt.Errorf("%w: nil", ErrInvalidBundle)
	case b.Transform == nil || !b.Transform.Fitted:
		return fmt.Errorf("%w: transform not fitted", ErrInvalidBundle)
	case b.Estimator == nil:
		return fmt.Errorf("%w: no estimator", ErrInvalidBundle)
	case len(b.PredictColumns) == 0:
		return fmt.Errorf("%w: no prediction columns", ErrInvalidBundle)
	}
	return nil
}

// Encode writes b with gob.
func Encode(w io.Writer, b *Bundle) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if err := gob.NewEncoder(w).Encode(b); err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return nil
}

// Decode reads a bundle written by Encode.
func Decode(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := gob.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}
