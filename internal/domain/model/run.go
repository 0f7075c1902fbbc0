package model

import "time"

// JobStatus is the lifecycle state of a training job.
type JobStatus string

// Training job states.
const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Done reports whether the job reached a terminal state.
func (s JobStatus) Done() bool { return s == JobSucceeded || s == JobFailed }

// TrainingJob is a request to run the training pipeline once.
type TrainingJob struct {
	ID         string     `json:"id"`
	Status     JobStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  time.Time  `json:"started_at,omitzero"`
	FinishedAt time.Time  `json:"finished_at,omitzero"`
	Report     *RunReport `json:"report,omitempty"`
}

// EvaluationResult compares a freshly trained model to the published one.
// IncumbentR2 is nil when nothing was published before.
type EvaluationResult struct {
	CandidateR2 float64  `json:"candidate_r2"`
	IncumbentR2 *float64 `json:"incumbent_r2"`
	Accepted    bool     `json:"accepted"`
	Delta       float64  `json:"delta"`
}

// StageTiming records how long a pipeline stage ran.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration_ns"`
}

// RunReport summarizes one training run.
type RunReport struct {
	RunID        string            `json:"run_id"`
	ModelName    string            `json:"model_name"`
	RowsIngested int               `json:"rows_ingested"`
	TrainRows    int               `json:"train_rows"`
	TestRows     int               `json:"test_rows"`
	RowsDropped  int               `json:"rows_dropped"`
	TrainR2      float64           `json:"train_r2"`
	TestR2       float64           `json:"test_r2"`
	TestMAE      float64           `json:"test_mae"`
	TestRMSE     float64           `json:"test_rmse"`
	Evaluation   *EvaluationResult `json:"evaluation,omitempty"`
	Published    bool              `json:"published"`
	ArtifactPath string            `json:"artifact_path,omitempty"`
	ChartPath    string            `json:"chart_path,omitempty"`
	Stages       []StageTiming     `json:"stages"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
}
