// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	service "github.com/okian/lapprice/internal/app"
	"github.com/okian/lapprice/internal/domain/features"
	"github.com/okian/lapprice/internal/domain/model"
	"github.com/okian/lapprice/internal/domain/predictor"
	"github.com/okian/lapprice/internal/domain/types"
	"github.com/okian/lapprice/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Predict prices raw records with the published model.
	Predict(ctx context.Context, records []model.RawRecord) ([]float64, error)

	// SubmitTraining enqueues a training run. Returns service.ErrQueueFull on backpressure.
	SubmitTraining(ctx context.Context) (model.TrainingJob, error)
	Job(id string) (model.TrainingJob, bool)
	WaitJob(ctx context.Context, id string) (model.TrainingJob, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	opsHandler     *OpsHandler
	predictHandler *PredictHandler
	trainHandler   *TrainHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		opsHandler:     NewOpsHandler(statsProvider, time.Now()),
		predictHandler: NewPredictHandler(deps),
		trainHandler:   NewTrainHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", MetricsMiddleware(s.predictHandler.HandleForm, "form"))
	mux.HandleFunc("POST /predict", MetricsMiddleware(s.predictHandler.HandleFormSubmit, "predict"))
	mux.HandleFunc("POST /api/predict", MetricsMiddleware(s.predictHandler.HandleAPIPredict, "api_predict"))
	mux.HandleFunc("POST /train", MetricsMiddleware(s.trainHandler.HandleTrain, "train"))
	mux.HandleFunc("GET /train/{id}", MetricsMiddleware(s.trainHandler.HandleGetJob, "train_job"))
	mux.HandleFunc("GET /health", MetricsMiddleware(s.opsHandler.HandleHealth, "health"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.opsHandler.HandleStats, "stats"))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, types.ErrorResponse{Code: code, Message: msg})
}

// classify maps an error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, features.ErrMalformedField),
		errors.Is(err, predictor.ErrNoRecords):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, features.ErrSchemaMismatch), errors.Is(err, predictor.ErrMissingColumns):
		return http.StatusUnprocessableEntity, "schema_mismatch"
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrQueueFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrNotFound), errors.Is(err, service.ErrJobNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrUnavailable), errors.Is(err, service.ErrNoModel):
		return http.StatusServiceUnavailable, "model_unavailable"
	}
	return http.StatusInternalServerError, "internal"
}
