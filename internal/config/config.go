// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and LAPPRICE_ env vars.
// - Validation errors wrap ErrInvalidConfig.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// SchemaPath and ModelSchemaPath point at the column schema and the
	// model parameter documents. Empty means the embedded defaults.
	SchemaPath      string `koanf:"schema_path"`
	ModelSchemaPath string `koanf:"model_schema_path"`

	// SourceKind selects the ingestion source: csv or mongo.
	SourceKind      string `koanf:"source_kind"`
	SourcePath      string `koanf:"source_path"`
	MongoURL        string `koanf:"mongo_url"`
	MongoDatabase   string `koanf:"mongo_database"`
	MongoCollection string `koanf:"mongo_collection"`
	MongoTimeoutMS  int    `koanf:"mongo_timeout_ms"`
	MongoBatchSize  int    `koanf:"mongo_batch_size"`

	// ArtifactKind selects the artifact store: local or s3.
	ArtifactKind string `koanf:"artifact_kind"`
	ArtifactDir  string `koanf:"artifact_dir"`
	Bucket       string `koanf:"bucket"`
	ModelKey     string `koanf:"model_key"`
	AWSRegion    string `koanf:"aws_region"`
	// S3Endpoint overrides the S3 endpoint for compatible stores such as MinIO.
	S3Endpoint string `koanf:"s3_endpoint"`

	// WorkDir receives per-run feature store snapshots.
	WorkDir string `koanf:"work_dir"`

	// TestRatio and SplitSeed control the train/test split.
	TestRatio float64 `koanf:"test_ratio"`
	SplitSeed int64   `koanf:"split_seed"`

	// ExpectedR2 is the minimum candidate score for a run to continue past training.
	ExpectedR2 float64 `koanf:"expected_r2"`

	// PublishPolicy is on_accept or always.
	PublishPolicy string `koanf:"publish_policy"`

	// MissingColumnPolicy is lenient or strict; see predictor.MissingColumnPolicy.
	MissingColumnPolicy string `koanf:"missing_column_policy"`

	// JobQueueSize bounds pending training jobs.
	JobQueueSize int `koanf:"job_queue_size"`

	// PredictorCacheTTLSeconds controls how long a loaded predictor is reused.
	PredictorCacheTTLSeconds int `koanf:"predictor_cache_ttl_s"`

	// NATSURL enables evaluation events when non-empty.
	NATSURL     string `koanf:"nats_url"`
	NATSSubject string `koanf:"nats_subject"`

	// StoreRetries and StoreRetryBackoffMS bound retries of external store calls.
	StoreRetries        int `koanf:"store_retries"`
	StoreRetryBackoffMS int `koanf:"store_retry_backoff_ms"`
}

// Accepted enum values.
const (
	SourceCSV   = "csv"
	SourceMongo = "mongo"

	ArtifactLocal = "local"
	ArtifactS3    = "s3"

	PublishOnAccept = "on_accept"
	PublishAlways   = "always"

	MissingLenient = "lenient"
	MissingStrict  = "strict"
)

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		LogFormat:                "text",
		Addr:                     ":9080",
		SourceKind:               SourceCSV,
		SourcePath:               "data/laptop_data.csv",
		MongoDatabase:            "laptop_price_dataset_DB",
		MongoCollection:          "laptop_price_dataset",
		MongoTimeoutMS:           5000,
		MongoBatchSize:           500,
		ArtifactKind:             ArtifactLocal,
		ArtifactDir:              "artifact/models",
		Bucket:                   "laptop-price-models",
		ModelKey:                 "model.bin",
		AWSRegion:                "us-east-1",
		WorkDir:                  "artifact/runs",
		TestRatio:                0.2,
		SplitSeed:                42,
		ExpectedR2:               0.6,
		PublishPolicy:            PublishOnAccept,
		MissingColumnPolicy:      MissingLenient,
		JobQueueSize:             8,
		PredictorCacheTTLSeconds: 300,
		NATSSubject:              "lapprice.model.evaluated",
		StoreRetries:             2,
		StoreRetryBackoffMS:      200,
	}
}
