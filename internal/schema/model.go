package schema

import (
	"context"
	"fmt"
	"maps"
)

// ModelParams names the estimator to train and its hyperparameters.
type ModelParams struct {
	Name   string
	Params map[string]any
}

// LoadModel reads the model document from path, or the embedded default when
// path is empty.
func LoadModel(_ context.Context, path string) (ModelParams, error) {
	k, err := load(path, defaultModel)
	if err != nil {
		return ModelParams{}, err
	}

	name := k.String("model.name")
	if name == "" {
		return ModelParams{}, fmt.Errorf("%w: model.name is empty", ErrInvalid)
	}

	params := map[string]any{}
	if k.Exists("model.params") {
		params = k.Cut("model.params").Raw()
	}
	return ModelParams{Name: name, Params: params}, nil
}

// Clone returns a deep enough copy for callers that mutate Params.
func (m ModelParams) Clone() ModelParams {
	return ModelParams{Name: m.Name, Params: maps.Clone(m.Params)}
}
