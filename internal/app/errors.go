package service

import (
	"errors"
	"fmt"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrStopped        = errors.New("service stopped before the job ran")
	ErrQueueFull      = errors.New("training queue is full")
	ErrJobNotFound    = errors.New("training job not found")
	ErrValidation     = errors.New("data validation failed")
	ErrBelowThreshold = errors.New("model score below expected threshold")
	ErrNoModel        = errors.New("no published model")
	ErrEmptyDataset   = errors.New("dataset too small to split")
)

// Pipeline stage names, in execution order.
const (
	StageIngest    = "ingest"
	StageValidate  = "validate"
	StageTransform = "transform"
	StageTrain     = "train"
	StageEvaluate  = "evaluate"
	StagePublish   = "publish"
)

// StageError records which pipeline stage aborted a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }
