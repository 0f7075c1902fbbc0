package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/okian/lapprice/internal/adapters/artifact"
	"github.com/okian/lapprice/internal/adapters/report"
	"github.com/okian/lapprice/internal/adapters/repository"
	"github.com/okian/lapprice/internal/config"
	"github.com/okian/lapprice/internal/domain/estimator"
	"github.com/okian/lapprice/internal/domain/evaluation"
	"github.com/okian/lapprice/internal/domain/features"
	"github.com/okian/lapprice/internal/domain/model"
	"github.com/okian/lapprice/internal/domain/predictor"
	"github.com/okian/lapprice/internal/domain/preprocess"
	"github.com/okian/lapprice/internal/schema"
	"github.com/okian/lapprice/pkg/logger"
	"github.com/okian/lapprice/pkg/metrics"
)

// Settings tune a training run.
type Settings struct {
	WorkDir       string
	TestRatio     float64
	SplitSeed     int64
	ExpectedR2    float64
	PublishPolicy string
	Retry         RetryPolicy
}

// DefaultSettings mirrors the config defaults.
func DefaultSettings() Settings {
	c := config.New()
	return Settings{
		WorkDir:       c.WorkDir,
		TestRatio:     c.TestRatio,
		SplitSeed:     c.SplitSeed,
		ExpectedR2:    c.ExpectedR2,
		PublishPolicy: c.PublishPolicy,
		Retry: RetryPolicy{
			Attempts: c.StoreRetries,
			Backoff:  time.Duration(c.StoreRetryBackoffMS) * time.Millisecond,
		},
	}
}

// Pipeline runs ingest, validate, transform, train, evaluate and publish in
// order. The first failing stage aborts the run.
type Pipeline struct {
	schema   *schema.Schema
	model    schema.ModelParams
	source   repository.Source
	store    *artifact.ModelStore
	settings Settings
	logger   logger.Logger
}

// NewPipeline wires a pipeline.
func NewPipeline(s *schema.Schema, m schema.ModelParams, src repository.Source, store *artifact.ModelStore, set Settings, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Get().Named("pipeline")
	}
	return &Pipeline{schema: s, model: m.Clone(), source: src, store: store, settings: set, logger: log}
}

// run carries state between stages.
type run struct {
	id     string
	dir    string
	report *model.RunReport

	trainRaw, testRaw *model.RawTable

	transform     *preprocess.Transform
	trainX, testX *mat.Dense
	trainY, testY []float64
	testFeatures  *model.Frame

	estimator estimator.Estimator
}

type stage struct {
	name string
	fn   func(context.Context, *run) error
}

// Run executes every stage for runID. The report is returned even on
// failure and lists the stages that ran.
func (p *Pipeline) Run(ctx context.Context, runID string) (*model.RunReport, error) {
	r := &run{
		id:  runID,
		dir: filepath.Join(p.settings.WorkDir, runID),
		report: &model.RunReport{
			RunID:     runID,
			ModelName: p.model.Name,
			StartedAt: time.Now(),
		},
	}
	stages := []stage{
		{StageIngest, p.ingest},
		{StageValidate, p.validate},
		{StageTransform, p.transformStage},
		{StageTrain, p.train},
		{StageEvaluate, p.evaluate},
		{StagePublish, p.publish},
	}
	for _, s := range stages {
		if err := p.runStage(ctx, r, s); err != nil {
			r.report.FinishedAt = time.Now()
			return r.report, err
		}
	}
	r.report.FinishedAt = time.Now()
	return r.report, nil
}

func (p *Pipeline) runStage(ctx context.Context, r *run, s stage) error {
	log := p.logger.With(logger.String("run_id", r.id), logger.String("stage", s.name))
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: s.name, Err: err}
	}

	log.Info(ctx, "stage started")
	start := time.Now()
	err := s.fn(ctx, r)
	elapsed := time.Since(start)
	r.report.Stages = append(r.report.Stages, model.StageTiming{Stage: s.name, Duration: elapsed})

	if err != nil {
		metrics.RecordStageDuration(s.name, "error", elapsed)
		log.Error(ctx, "stage failed", logger.Duration("elapsed", elapsed), logger.Error(err))
		return &StageError{Stage: s.name, Err: err}
	}
	metrics.RecordStageDuration(s.name, "ok", elapsed)
	log.Info(ctx, "stage finished", logger.Duration("elapsed", elapsed))
	return nil
}

func (p *Pipeline) ingest(ctx context.Context, r *run) error {
	tbl, err := withRetry(ctx, p.settings.Retry, p.source.Name(), p.logger, p.source.Fetch)
	if err != nil {
		return err
	}
	r.report.RowsIngested = tbl.Len()
	metrics.UpdateRowsIngested(tbl.Len())

	base := filepath.Join(r.dir, "data_ingestion")
	if err := repository.WriteCSVFile(filepath.Join(base, "feature_store", "laptop.csv"), tbl); err != nil {
		return fmt.Errorf("write feature store: %w", err)
	}

	r.trainRaw, r.testRaw, err = SplitTable(tbl, p.settings.TestRatio, p.settings.SplitSeed)
	if err != nil {
		return err
	}
	if err := repository.WriteCSVFile(filepath.Join(base, "ingested", "train.csv"), r.trainRaw); err != nil {
		return fmt.Errorf("write train split: %w", err)
	}
	if err := repository.WriteCSVFile(filepath.Join(base, "ingested", "test.csv"), r.testRaw); err != nil {
		return fmt.Errorf("write test split: %w", err)
	}

	p.logger.Info(ctx, "data ingested",
		logger.String("run_id", r.id),
		logger.String("source", p.source.Name()),
		logger.Int("rows", tbl.Len()),
		logger.Int("train_rows", r.trainRaw.Len()),
		logger.Int("test_rows", r.testRaw.Len()))
	return nil
}

func (p *Pipeline) validate(ctx context.Context, r *run) error {
	rep := ValidateSplit(r.trainRaw, r.testRaw, p.schema.Columns())
	if !rep.OK {
		return fmt.Errorf("%w: %s", ErrValidation, strings.TrimSpace(rep.Message))
	}
	p.logger.Debug(ctx, "columns validated", logger.String("run_id", r.id), logger.Int("columns", len(p.schema.Columns())))
	return nil
}

func (p *Pipeline) transformStage(ctx context.Context, r *run) error {
	eng := features.New(p.schema)
	target := p.schema.Target()

	trainF, trainSum, err := engineerSplit(eng, r.trainRaw)
	if err != nil {
		return fmt.Errorf("train split: %w", err)
	}
	testF, testSum, err := engineerSplit(eng, r.testRaw)
	if err != nil {
		return fmt.Errorf("test split: %w", err)
	}

	if r.trainY, err = logTarget(trainF, target); err != nil {
		return err
	}
	if r.testY, err = logTarget(testF, target); err != nil {
		return err
	}

	trainFeatures, testFeatures := trainF.Drop(target), testF.Drop(target)
	r.transform = preprocess.Build(p.schema)
	if err := r.transform.Fit(trainFeatures); err != nil {
		return err
	}
	if r.trainX, err = r.transform.Transform(trainFeatures); err != nil {
		return err
	}
	if r.testX, err = r.transform.Transform(testFeatures); err != nil {
		return err
	}
	r.testFeatures = testFeatures

	r.report.TrainRows, r.report.TestRows = trainF.Len(), testF.Len()
	r.report.RowsDropped = trainSum.OutliersDropped + trainSum.GPUDropped + testSum.OutliersDropped + testSum.GPUDropped
	metrics.UpdateRowsEngineered(trainF.Len() + testF.Len())

	p.logger.Info(ctx, "features engineered",
		logger.String("run_id", r.id),
		logger.Int("train_rows", trainF.Len()),
		logger.Int("test_rows", testF.Len()),
		logger.Int("outliers_dropped", trainSum.OutliersDropped+testSum.OutliersDropped),
		logger.Int("gpu_dropped", trainSum.GPUDropped+testSum.GPUDropped),
		logger.Int("width", r.transform.Width()))
	p.logger.Debug(ctx, "model inputs", logger.String("run_id", r.id), logger.Any("features", r.transform.FeatureNames()))
	return nil
}

func engineerSplit(eng *features.Engineer, t *model.RawTable) (*model.Frame, features.Summary, error) {
	recs, err := features.DecodeRecords(t)
	if err != nil {
		return nil, features.Summary{}, err
	}
	return eng.Training(recs)
}

// logTarget extracts ln(target). Prices must be positive.
func logTarget(f *model.Frame, target string) ([]float64, error) {
	y, ok := f.Floats(target)
	if !ok {
		return nil, &features.SchemaMismatchError{Columns: []string{target}, Variant: features.Training}
	}
	for i, v := range y {
		if v <= 0 {
			return nil, &features.MalformedFieldError{
				Row: i, Field: target, Value: strconv.FormatFloat(v, 'f', -1, 64),
				Err: errors.New("must be positive"),
			}
		}
		y[i] = math.Log(v)
	}
	return y, nil
}

func (p *Pipeline) train(ctx context.Context, r *run) error {
	est, err := estimator.New(p.model.Name, p.model.Params)
	if err != nil {
		return err
	}
	if err := est.Fit(r.trainX, r.trainY); err != nil {
		return err
	}
	trainScores, err := estimator.Score(est, r.trainX, r.trainY)
	if err != nil {
		return err
	}
	testScores, err := estimator.Score(est, r.testX, r.testY)
	if err != nil {
		return err
	}
	r.estimator = est
	r.report.TrainR2 = trainScores.R2
	r.report.TestR2, r.report.TestMAE, r.report.TestRMSE = testScores.R2, testScores.MAE, testScores.RMSE
	metrics.UpdateCandidateR2(testScores.R2)

	p.logger.Info(ctx, "model trained",
		logger.String("run_id", r.id),
		logger.String("model", est.Name()),
		logger.Float64("train_r2", trainScores.R2),
		logger.Float64("test_r2", testScores.R2),
		logger.Float64("test_mae", testScores.MAE),
		logger.Float64("test_rmse", testScores.RMSE))

	if !evaluation.MeetsThreshold(testScores.R2, p.settings.ExpectedR2) {
		return fmt.Errorf("%w: r2 %.4f < %.4f", ErrBelowThreshold, testScores.R2, p.settings.ExpectedR2)
	}
	return nil
}

func (p *Pipeline) evaluate(ctx context.Context, r *run) error {
	exists, err := withRetry(ctx, p.settings.Retry, "artifact", p.logger, p.store.Exists)
	if err != nil {
		return err
	}

	var incumbent *float64
	var incumbentPred []float64
	if exists {
		prev, err := withRetry(ctx, p.settings.Retry, "artifact", p.logger, p.store.Load)
		if err != nil {
			return fmt.Errorf("load incumbent: %w", err)
		}
		pred, err := prev.PredictLog(r.testFeatures)
		if err != nil {
			return fmt.Errorf("score incumbent: %w", err)
		}
		score := estimator.R2(r.testY, pred)
		incumbent, incumbentPred = &score, pred
		metrics.UpdateIncumbentR2(score)
	}

	res := evaluation.Evaluate(r.report.TestR2, incumbent)
	r.report.Evaluation = &res

	fields := []logger.Field{
		logger.String("run_id", r.id),
		logger.Float64("candidate_r2", res.CandidateR2),
		logger.Bool("accepted", res.Accepted),
		logger.Float64("delta", res.Delta),
	}
	if incumbent != nil {
		fields = append(fields, logger.Float64("incumbent_r2", *incumbent))
	}
	p.logger.Info(ctx, "model evaluated", fields...)

	p.writeChart(ctx, r, incumbentPred)
	return nil
}

// writeChart draws the test split predictions. A chart failure is logged
// and does not fail the run.
func (p *Pipeline) writeChart(ctx context.Context, r *run, incumbentPred []float64) {
	pred, err := r.estimator.Predict(r.testX)
	if err == nil {
		series := []report.Series{{Label: "candidate " + r.estimator.Name(), Predicted: pred}}
		if incumbentPred != nil {
			series = append(series, report.Series{Label: "incumbent", Predicted: incumbentPred})
		}
		path := filepath.Join(r.dir, "model_evaluation", "actual_vs_predicted.png")
		if err = report.ActualVsPredicted(path, "run "+r.id, r.testY, series...); err == nil {
			r.report.ChartPath = path
			return
		}
	}
	p.logger.Warn(ctx, "evaluation chart not written", logger.String("run_id", r.id), logger.Error(err))
}

func (p *Pipeline) publish(ctx context.Context, r *run) error {
	if p.settings.PublishPolicy != config.PublishAlways && !r.report.Evaluation.Accepted {
		p.logger.Info(ctx, "candidate not accepted, keeping published model", logger.String("run_id", r.id))
		return nil
	}

	b := &predictor.Bundle{
		Transform:      r.transform,
		Estimator:      r.estimator,
		TrainColumns:   p.schema.TrainColumns(),
		PredictColumns: p.schema.PredictColumns(),
		Metadata: predictor.Metadata{
			RunID:     r.id,
			ModelName: r.estimator.Name(),
			Params:    r.estimator.Params(),
			TestR2:    r.report.TestR2,
			TestMAE:   r.report.TestMAE,
			TestRMSE:  r.report.TestRMSE,
			TrainRows: r.report.TrainRows,
			CreatedAt: time.Now().UTC(),
		},
	}
	path := filepath.Join(r.dir, "model_trainer", "model.bin")
	if err := writeBundle(path, b); err != nil {
		return err
	}

	_, err := withRetry(ctx, p.settings.Retry, "artifact", p.logger, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.store.Save(ctx, path)
	})
	if err != nil {
		return err
	}
	r.report.Published = true
	r.report.ArtifactPath = p.store.Location()
	metrics.RecordModelPublished()
	return nil
}

func writeBundle(path string, b *predictor.Bundle) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := predictor.Encode(f, b); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
