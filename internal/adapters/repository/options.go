package repository

import "time"

// MongoOption applies a configuration option to the MongoSource.
type MongoOption func(*MongoSource)

// WithServerSelectionTimeout bounds how long Fetch waits for a reachable server.
func WithServerSelectionTimeout(d time.Duration) MongoOption {
	return func(s *MongoSource) {
		if d > 0 {
			s.selectionTimeout = d
		}
	}
}

// WithBatchSize sets the cursor batch size.
func WithBatchSize(n int32) MongoOption {
	return func(s *MongoSource) {
		if n > 0 {
			s.batchSize = n
		}
	}
}
