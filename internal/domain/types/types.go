// Package types contains the request and response shapes of the HTTP API.
package types

import "github.com/okian/lapprice/internal/domain/model"

// PredictRequest is the body of POST /api/predict.
type PredictRequest struct {
	Records []model.RawRecord `json:"records"`
}

// PredictResponse carries one price per request record, in order.
type PredictResponse struct {
	Predictions []float64 `json:"predictions"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
