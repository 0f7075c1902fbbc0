package service

import (
	"time"

	"github.com/okian/lapprice/internal/adapters/artifact"
	"github.com/okian/lapprice/internal/adapters/mq/notify"
	"github.com/okian/lapprice/internal/adapters/repository"
	"github.com/okian/lapprice/internal/schema"
	"github.com/okian/lapprice/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSchema sets the column schema.
func WithSchema(s *schema.Schema) Option {
	return func(svc *Service) {
		if s != nil {
			svc.schema = s
		}
	}
}

// WithModelParams selects the estimator to train.
func WithModelParams(m schema.ModelParams) Option {
	return func(svc *Service) {
		if m.Name != "" {
			svc.modelParams = m.Clone()
		}
	}
}

// WithSource sets the ingestion source.
func WithSource(src repository.Source) Option {
	return func(s *Service) { s.source = src }
}

// WithModelStore sets where bundles are published.
func WithModelStore(store *artifact.ModelStore) Option {
	return func(s *Service) { s.store = store }
}

// WithPublisher sets the evaluation event publisher.
func WithPublisher(p notify.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithSettings overrides the training run settings.
func WithSettings(set Settings) Option {
	return func(s *Service) { s.settings = set }
}

// WithQueueSize sets the maximum number of pending training jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithJobHistory sets how many finished jobs stay queryable.
func WithJobHistory(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.jobHistory = n
		}
	}
}

// WithPredictorTTL sets how long a loaded predictor is reused.
func WithPredictorTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.predictorTTL = ttl
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
