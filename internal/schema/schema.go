// Package schema loads the column schema and the model parameter document.
//
// Both documents are read once at process start and are read-only afterwards;
// accessors hand out copies so callers cannot mutate the shared state.
package schema

import (
	"context"
	_ "embed"
	"fmt"
	"slices"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

//go:embed defaults/schema.yaml
var defaultSchema []byte

//go:embed defaults/model.yaml
var defaultModel []byte

// Schema is the immutable column configuration shared by feature
// engineering, preprocessing and the predictor.
type Schema struct {
	columns        []string
	numerical      []string
	categorical    []string
	trainColumns   []string
	predictColumns []string
	target         string
}

type schemaDoc struct {
	Columns        []string `koanf:"columns"`
	Numerical      []string `koanf:"numerical_features"`
	Categorical    []string `koanf:"categorical_features"`
	TrainColumns   []string `koanf:"columns_after_transformation"`
	PredictColumns []string `koanf:"columns_after_transformation_for_prediction"`
	Target         []string `koanf:"target_column"`
}

// Load reads the schema from path, or the embedded default when path is empty.
func Load(_ context.Context, path string) (*Schema, error) {
	k, err := load(path, defaultSchema)
	if err != nil {
		return nil, err
	}

	var doc schemaDoc
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	return New(doc.Columns, doc.Numerical, doc.Categorical, doc.TrainColumns, doc.PredictColumns, doc.Target)
}

// Default returns the embedded schema. It panics if the embedded document is
// invalid, which is a build defect.
func Default() *Schema {
	s, err := Load(context.Background(), "")
	if err != nil {
		panic(err)
	}
	return s
}

// New validates and builds a Schema from its parts. Only the first entry of
// target is used.
func New(columns, numerical, categorical, trainColumns, predictColumns, target []string) (*Schema, error) {
	switch {
	case len(columns) == 0:
		return nil, fmt.Errorf("%w: columns is empty", ErrInvalid)
	case len(trainColumns) == 0:
		return nil, fmt.Errorf("%w: columns_after_transformation is empty", ErrInvalid)
	case len(predictColumns) == 0:
		return nil, fmt.Errorf("%w: columns_after_transformation_for_prediction is empty", ErrInvalid)
	case len(target) == 0 || target[0] == "":
		return nil, fmt.Errorf("%w: target_column is empty", ErrInvalid)
	case len(numerical)+len(categorical) == 0:
		return nil, fmt.Errorf("%w: no numerical or categorical features", ErrInvalid)
	}

	t := target[0]
	if !slices.Contains(trainColumns, t) {
		return nil, fmt.Errorf("%w: target %q missing from training columns", ErrInvalid, t)
	}
	if slices.Contains(predictColumns, t) {
		return nil, fmt.Errorf("%w: target %q must not be a prediction column", ErrInvalid, t)
	}
	for _, f := range append(slices.Clone(numerical), categorical...) {
		if !slices.Contains(predictColumns, f) {
			return nil, fmt.Errorf("%w: feature %q missing from prediction columns", ErrInvalid, f)
		}
		if slices.Contains(numerical, f) && slices.Contains(categorical, f) {
			return nil, fmt.Errorf("%w: feature %q is both numerical and categorical", ErrInvalid, f)
		}
	}

	return &Schema{
		columns:        slices.Clone(columns),
		numerical:      slices.Clone(numerical),
		categorical:    slices.Clone(categorical),
		trainColumns:   slices.Clone(trainColumns),
		predictColumns: slices.Clone(predictColumns),
		target:         t,
	}, nil
}

// Columns returns the raw columns the ingestion source must provide.
func (s *Schema) Columns() []string { return slices.Clone(s.columns) }

// NumericalFeatures returns the standardized feature names.
func (s *Schema) NumericalFeatures() []string { return slices.Clone(s.numerical) }

// CategoricalFeatures returns the one-hot encoded feature names.
func (s *Schema) CategoricalFeatures() []string { return slices.Clone(s.categorical) }

// TrainColumns returns the engineered column order for training, target included.
func (s *Schema) TrainColumns() []string { return slices.Clone(s.trainColumns) }

// PredictColumns returns the engineered column order for inference.
func (s *Schema) PredictColumns() []string { return slices.Clone(s.predictColumns) }

// Target returns the target column name.
func (s *Schema) Target() string { return s.target }

func load(path string, fallback []byte) (*koanf.Koanf, error) {
	k := koanf.New(".")
	var p koanf.Provider = rawbytes.Provider(fallback)
	if path != "" {
		p = file.Provider(path)
	}
	if err := k.Load(p, yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, describe(path), err)
	}
	return k, nil
}

func describe(path string) string {
	if path == "" {
		return "embedded default"
	}
	return path
}
