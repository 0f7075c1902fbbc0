// Package service runs the training pipeline and serves predictions from
// the published model.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/okian/lapprice/internal/adapters/artifact"
	"github.com/okian/lapprice/internal/adapters/mq/notify"
	"github.com/okian/lapprice/internal/adapters/mq/queue"
	"github.com/okian/lapprice/internal/adapters/mq/worker"
	"github.com/okian/lapprice/internal/adapters/repository"
	"github.com/okian/lapprice/internal/domain/estimator"
	"github.com/okian/lapprice/internal/domain/features"
	"github.com/okian/lapprice/internal/domain/model"
	"github.com/okian/lapprice/internal/domain/predictor"
	"github.com/okian/lapprice/internal/schema"
	"github.com/okian/lapprice/pkg/logger"
	"github.com/okian/lapprice/pkg/metrics"
)

const (
	defaultQueueSize    = 8
	defaultPredictorTTL = 5 * time.Minute
	defaultJobHistory   = 100
	predictorCacheKey   = "predictor"
	shutdownTimeout     = 30 * time.Second
)

// Service owns the training job queue, its worker and the cached predictor.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	schema      *schema.Schema
	modelParams schema.ModelParams
	source      repository.Source
	store       *artifact.ModelStore
	publisher   notify.Publisher

	// Configuration
	settings     Settings
	queueSize    int
	jobHistory   int
	predictorTTL time.Duration

	// Training
	trainMu  sync.Mutex
	pipeline *Pipeline
	queue    *queue.InMemoryQueue
	worker   *worker.InMemoryWorker
	jobs     map[string]*trackedJob
	finished []string // finished job ids, oldest first
	last     *model.RunReport
	runs     int

	// Serving
	cache  *gocache.Cache
	loadMu sync.Mutex
	// generation counts invalidations; a load only fills the cache if no
	// invalidation happened while it was reading the store.
	genMu      sync.Mutex
	generation uint64

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

type trackedJob struct {
	job      model.TrainingJob
	done     chan struct{}
	finished bool
}

// New constructs a Service. Without WithSource or WithModelStore it uses
// an empty static source and an in-memory store.
func New(opts ...Option) *Service {
	s := &Service{
		schema:       schema.Default(),
		settings:     DefaultSettings(),
		queueSize:    defaultQueueSize,
		jobHistory:   defaultJobHistory,
		predictorTTL: defaultPredictorTTL,
		publisher:    notify.Nop{},
		jobs:         make(map[string]*trackedJob),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.modelParams.Name == "" {
		m, err := schema.LoadModel(context.Background(), "")
		if err != nil {
			panic(err)
		}
		s.modelParams = m
	}
	if s.source == nil {
		s.source = repository.StaticSource{Table: &model.RawTable{}}
	}
	if s.store == nil {
		s.store = artifact.NewModelStore(artifact.NewMemoryStore())
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.cache = gocache.New(s.predictorTTL, 2*s.predictorTTL)
	s.pipeline = NewPipeline(s.schema, s.modelParams, s.source, s.store, s.settings, s.logger.Named("pipeline"))
	return s
}

// Start validates the estimator configuration and starts the training worker.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if _, err := estimator.New(s.modelParams.Name, s.modelParams.Params); err != nil {
		return fmt.Errorf("model configuration: %w", err)
	}

	s.logger.Info(ctx, "starting training service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.worker = worker.NewInMemoryWorker(s.queue, s,
		worker.WithName("trainer"),
		worker.WithLogger(s.logger.Named("worker")))
	go s.worker.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "training service started",
		logger.String("source", s.source.Name()),
		logger.String("artifact", s.store.Location()),
		logger.String("model", s.modelParams.Name),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop closes the queue and waits for the job in progress. Jobs that never
// started are failed with ErrStopped.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	q, w, cancel := s.queue, s.worker, s.cancel
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping training service...")

	// The running job needs s.mu to record its result, so wait unlocked.
	_ = q.Close()
	sctx, stop := context.WithTimeout(ctx, shutdownTimeout)
	if err := w.Shutdown(sctx); err != nil {
		s.logger.Warn(ctx, "worker did not stop in time", logger.Error(err))
	}
	stop()
	cancel()
	s.failQueuedJobs(ctx)

	if err := s.publisher.Close(); err != nil {
		s.logger.Warn(ctx, "closing publisher", logger.Error(err))
	}
	s.logger.Info(ctx, "training service stopped")
}

// Train runs the pipeline once and blocks until it finishes. Runs are
// serialized.
func (s *Service) Train(ctx context.Context) (*model.RunReport, error) {
	return s.train(ctx, uuid.NewString())
}

func (s *Service) train(ctx context.Context, runID string) (*model.RunReport, error) {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	rep, err := s.pipeline.Run(ctx, runID)

	outcome := "rejected"
	switch {
	case err != nil:
		outcome = "failed"
	case rep.Published:
		outcome = "published"
		s.InvalidatePredictor()
	}
	metrics.RecordTrainingRun(outcome)

	s.mu.Lock()
	s.last = rep
	s.runs++
	s.mu.Unlock()

	ev := notify.Event{
		RunID:      rep.RunID,
		ModelName:  rep.ModelName,
		Evaluation: rep.Evaluation,
		Published:  rep.Published,
		At:         time.Now().UTC(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if perr := s.publisher.Publish(ctx, ev); perr != nil {
		s.logger.Warn(ctx, "publishing run event", logger.String("run_id", runID), logger.Error(perr))
	}

	s.logger.Info(ctx, "training run finished",
		logger.String("run_id", runID),
		logger.String("outcome", outcome),
		logger.Bool("published", rep.Published))
	return rep, err
}

// SubmitTraining enqueues a training job. It returns ErrQueueFull when the
// queue cannot take another job.
func (s *Service) SubmitTraining(ctx context.Context) (model.TrainingJob, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return model.TrainingJob{}, ErrNotStarted
	}
	j := model.TrainingJob{ID: uuid.NewString(), Status: model.JobQueued, EnqueuedAt: time.Now().UTC()}
	s.jobs[j.ID] = &trackedJob{job: j, done: make(chan struct{})}
	s.mu.Unlock()

	if !s.queue.Enqueue(ctx, j) {
		s.mu.Lock()
		delete(s.jobs, j.ID)
		s.mu.Unlock()
		return model.TrainingJob{}, ErrQueueFull
	}
	s.logger.Debug(ctx, "training job queued", logger.String("job_id", j.ID))
	return j, nil
}

// Job returns a snapshot of a tracked job.
func (s *Service) Job(id string) (model.TrainingJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.jobs[id]
	if !ok {
		return model.TrainingJob{}, false
	}
	return t.job, true
}

// WaitJob blocks until the job finishes or ctx ends.
func (s *Service) WaitJob(ctx context.Context, id string) (model.TrainingJob, error) {
	s.mu.RLock()
	t, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return model.TrainingJob{}, ErrJobNotFound
	}
	select {
	case <-t.done:
		j, _ := s.Job(id)
		return j, nil
	case <-ctx.Done():
		return model.TrainingJob{}, ctx.Err()
	}
}

// RunJob implements worker.Runner. The job is finished even if the run
// panics, so waiters are always released.
func (s *Service) RunJob(ctx context.Context, j model.TrainingJob) (err error) { //nolint:gocritic // hugeParam: signature fixed by worker.Runner
	if !s.startJob(j.ID) {
		return ErrStopped
	}

	var rep *model.RunReport
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("training run panicked: %v", r)
		}
		s.finishJob(j.ID, rep, err)
	}()

	rep, err = s.train(ctx, j.ID)
	return err
}

// startJob marks a queued job running. It reports false for jobs that
// were already finished, such as those failed by Stop.
func (s *Service) startJob(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.jobs[id]
	if !ok || t.finished {
		return false
	}
	t.job.Status = model.JobRunning
	t.job.StartedAt = time.Now().UTC()
	return true
}

func (s *Service) finishJob(id string, rep *model.RunReport, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.jobs[id]; ok {
		s.finishLocked(t, rep, err)
	}
}

// finishLocked records the outcome, releases waiters and evicts the oldest
// finished jobs beyond the history limit. s.mu must be held.
func (s *Service) finishLocked(t *trackedJob, rep *model.RunReport, err error) {
	if t.finished {
		return
	}
	t.finished = true
	t.job.FinishedAt = time.Now().UTC()
	t.job.Report = rep
	t.job.Status = model.JobSucceeded
	if err != nil {
		t.job.Status = model.JobFailed
		t.job.Error = err.Error()
	}
	close(t.done)

	s.finished = append(s.finished, t.job.ID)
	for len(s.finished) > s.jobHistory {
		delete(s.jobs, s.finished[0])
		s.finished = s.finished[1:]
	}
}

func (s *Service) failQueuedJobs(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.jobs {
		if t.job.Status == model.JobQueued && !t.finished {
			s.finishLocked(t, nil, ErrStopped)
			n++
		}
	}
	if n > 0 {
		s.logger.Warn(ctx, "queued training jobs dropped on stop", logger.Int("jobs", n))
	}
}

// Predictor returns the published predictor, loading it from the artifact
// store when the cache is cold.
func (s *Service) Predictor(ctx context.Context) (*predictor.Predictor, error) {
	if v, ok := s.cache.Get(predictorCacheKey); ok {
		return v.(*predictor.Predictor), nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if v, ok := s.cache.Get(predictorCacheKey); ok {
		return v.(*predictor.Predictor), nil
	}

	var p *predictor.Predictor
	for {
		gen := s.currentGeneration()
		var err error
		p, err = s.loadPredictor(ctx)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, ErrNoModel
		}
		if s.cachePredictor(gen, p) {
			break
		}
		s.logger.Debug(ctx, "predictor replaced while loading, reloading")
	}
	metrics.RecordPredictorLoad()
	s.logger.Info(ctx, "predictor loaded",
		logger.String("run_id", p.Metadata().RunID),
		logger.String("model", p.Metadata().ModelName))
	return p, nil
}

func (s *Service) loadPredictor(ctx context.Context) (*predictor.Predictor, error) {
	return withRetry(ctx, s.settings.Retry, "artifact", s.logger, func(ctx context.Context) (*predictor.Predictor, error) {
		p, err := s.store.Load(ctx)
		if artifact.IsNotFound(err) {
			return nil, nil
		}
		return p, err
	})
}

// InvalidatePredictor drops the cached predictor so the next request loads
// the latest bundle. Loads already in flight are discarded.
func (s *Service) InvalidatePredictor() {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.generation++
	s.cache.Delete(predictorCacheKey)
}

func (s *Service) currentGeneration() uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generation
}

// cachePredictor stores p unless the cache was invalidated after gen was read.
func (s *Service) cachePredictor(gen uint64, p *predictor.Predictor) bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generation != gen {
		return false
	}
	s.cache.SetDefault(predictorCacheKey, p)
	return true
}

// Predict prices raw records with the published model.
func (s *Service) Predict(ctx context.Context, records []model.RawRecord) ([]float64, error) {
	start := time.Now()
	p, err := s.Predictor(ctx)
	if err != nil {
		metrics.RecordPredictionError(errorKind(err))
		return nil, err
	}
	out, err := p.Predict(ctx, records)
	if err != nil {
		metrics.RecordPredictionError(errorKind(err))
		return nil, err
	}
	metrics.RecordPrediction(len(out), float64(time.Since(start).Microseconds())/1000)
	return out, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrNoModel):
		return "no_model"
	case errors.Is(err, features.ErrMalformedField):
		return "malformed_field"
	case errors.Is(err, features.ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, predictor.ErrNoRecords):
		return "no_records"
	case errors.Is(err, artifact.ErrStoreUnavailable):
		return "store_unavailable"
	}
	return "internal"
}

// LastRun returns the most recent run report, if any.
func (s *Service) LastRun() (*model.RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.last != nil
}

// Schema returns the column schema in use.
func (s *Service) Schema() *schema.Schema { return s.schema }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":   s.started,
		"queueSize": s.queueSize,
		"model":     s.modelParams.Name,
		"source":    s.source.Name(),
		"artifact":  s.store.Location(),
		"runs":      s.runs,
		"jobs":      len(s.jobs),
	}
	if s.started {
		n := s.queue.Len(context.Background())
		stats["queueLength"] = n
		metrics.UpdateTrainingJobsQueued(n)
	}
	if s.last != nil {
		stats["lastRunId"] = s.last.RunID
		stats["lastPublished"] = s.last.Published
		stats["lastTestR2"] = s.last.TestR2
	}
	if v, ok := s.cache.Get(predictorCacheKey); ok {
		stats["servingRunId"] = v.(*predictor.Predictor).Metadata().RunID
	}
	return stats
}
