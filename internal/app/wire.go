package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/lapprice/internal/adapters/artifact"
	"github.com/okian/lapprice/internal/adapters/mq/notify"
	"github.com/okian/lapprice/internal/adapters/repository"
	"github.com/okian/lapprice/internal/config"
	"github.com/okian/lapprice/internal/domain/predictor"
	"github.com/okian/lapprice/internal/schema"
)

// Wiring holds the options built from a Config and the cleanup for the
// connections they opened.
type Wiring struct {
	Options []Option
	closers []func(context.Context) error
}

// Close releases connections opened by FromConfig.
func (w *Wiring) Close(ctx context.Context) error {
	var errs []error
	for i := len(w.closers) - 1; i >= 0; i-- {
		errs = append(errs, w.closers[i](ctx))
	}
	return errors.Join(errs...)
}

// FromConfig builds the schema, source, artifact store and publisher
// described by cfg.
func FromConfig(ctx context.Context, cfg *config.Config) (*Wiring, error) {
	w := &Wiring{}

	s, err := schema.Load(ctx, cfg.SchemaPath)
	if err != nil {
		return nil, err
	}
	m, err := schema.LoadModel(ctx, cfg.ModelSchemaPath)
	if err != nil {
		return nil, err
	}
	w.Options = append(w.Options,
		WithSchema(s),
		WithModelParams(m),
		WithQueueSize(cfg.JobQueueSize),
		WithPredictorTTL(time.Duration(cfg.PredictorCacheTTLSeconds)*time.Second),
		WithSettings(Settings{
			WorkDir:       cfg.WorkDir,
			TestRatio:     cfg.TestRatio,
			SplitSeed:     cfg.SplitSeed,
			ExpectedR2:    cfg.ExpectedR2,
			PublishPolicy: cfg.PublishPolicy,
			Retry: RetryPolicy{
				Attempts: cfg.StoreRetries,
				Backoff:  time.Duration(cfg.StoreRetryBackoffMS) * time.Millisecond,
			},
		}),
	)

	switch cfg.SourceKind {
	case config.SourceMongo:
		src, err := repository.DialMongoSource(ctx, cfg.MongoURL, cfg.MongoDatabase, cfg.MongoCollection,
			repository.WithServerSelectionTimeout(time.Duration(cfg.MongoTimeoutMS)*time.Millisecond),
			repository.WithBatchSize(int32(cfg.MongoBatchSize)), //nolint:gosec // bounded by Validate
		)
		if err != nil {
			return nil, err
		}
		w.closers = append(w.closers, src.Close)
		w.Options = append(w.Options, WithSource(src))
	default:
		w.Options = append(w.Options, WithSource(repository.NewCSVSource(cfg.SourcePath)))
	}

	var store artifact.Store
	switch cfg.ArtifactKind {
	case config.ArtifactS3:
		s3store, err := artifact.DialS3Store(ctx, cfg.AWSRegion, cfg.S3Endpoint, cfg.Bucket, cfg.ModelKey)
		if err != nil {
			_ = w.Close(ctx)
			return nil, err
		}
		store = s3store
	default:
		store = artifact.NewLocalStore(cfg.ArtifactDir, cfg.ModelKey)
	}
	policy := predictor.LenientPolicy
	if cfg.MissingColumnPolicy == config.MissingStrict {
		policy = predictor.StrictPolicy
	}
	w.Options = append(w.Options, WithModelStore(artifact.NewModelStore(store, predictor.WithPolicy(policy))))

	if cfg.NATSURL != "" {
		pub, err := notify.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			_ = w.Close(ctx)
			return nil, fmt.Errorf("evaluation events: %w", err)
		}
		w.Options = append(w.Options, WithPublisher(pub))
	}
	return w, nil
}
