package predictor

import (
	"fmt"
	"strings"

	"github.com/okian/lapprice/internal/domain/model"
	"github.com/okian/lapprice/internal/domain/preprocess"
)

// MissingColumnPolicy decides what happens when an inference frame lacks a
// column the fitted transform reads.
type MissingColumnPolicy struct {
	// Strict refuses to fill anything.
	Strict bool
	// NumericFill is used for absent numerical columns.
	NumericFill float64
	// CategoricalFill is used for absent categorical columns.
	CategoricalFill string
}

// LenientPolicy fills numerical gaps with 0 and categorical gaps with
// "unknown", which the one-hot encoder maps to an all-zero block.
var LenientPolicy = MissingColumnPolicy{CategoricalFill: preprocess.UnknownCategory}

// StrictPolicy rejects frames with missing columns.
var StrictPolicy = MissingColumnPolicy{Strict: true}

// Eligible returns the columns of numeric and categorical that f lacks, in
// that order. These are the only columns Apply may fill.
func (p MissingColumnPolicy) Eligible(f *model.Frame, numeric, categorical []string) (num, cat []string) {
	for _, c := range numeric {
		if f.Index(c) < 0 {
			num = append(num, c)
		}
	}
	for _, c := range categorical {
		if f.Index(c) < 0 {
			cat = append(cat, c)
		}
	}
	return num, cat
}

// Apply adds the eligible columns to f with their fill value and returns the
// names it filled.
func (p MissingColumnPolicy) Apply(f *model.Frame, numeric, categorical []string) ([]string, error) {
	num, cat := p.Eligible(f, numeric, categorical)
	if len(num)+len(cat) == 0 {
		return nil, nil
	}
	filled := append(num, cat...)
	if p.Strict {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(filled, ", "))
	}
	for _, c := range num {
		f.AddConstant(c, p.NumericFill)
	}
	for _, c := range cat {
		f.AddConstant(c, p.CategoricalFill)
	}
	return filled, nil
}
