package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	envPrefix     = "LAPPRICE_"
	envConfigPath = "LAPPRICE_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if LAPPRICE_CONFIG is set
//  3. env (prefix LAPPRICE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// LAPPRICE_TEST_RATIO -> test_ratio; underscores are kept to match the koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields that cannot be defaulted.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SourceKind != SourceCSV && c.SourceKind != SourceMongo:
		return fmt.Errorf("%w: unknown source_kind %q", ErrInvalidConfig, c.SourceKind)
	case c.ArtifactKind != ArtifactLocal && c.ArtifactKind != ArtifactS3:
		return fmt.Errorf("%w: unknown artifact_kind %q", ErrInvalidConfig, c.ArtifactKind)
	case c.PublishPolicy != PublishOnAccept && c.PublishPolicy != PublishAlways:
		return fmt.Errorf("%w: unknown publish_policy %q", ErrInvalidConfig, c.PublishPolicy)
	case c.MissingColumnPolicy != MissingLenient && c.MissingColumnPolicy != MissingStrict:
		return fmt.Errorf("%w: unknown missing_column_policy %q", ErrInvalidConfig, c.MissingColumnPolicy)
	case c.TestRatio <= 0 || c.TestRatio >= 1:
		return fmt.Errorf("%w: test_ratio must be in (0, 1), got %v", ErrInvalidConfig, c.TestRatio)
	case c.MongoBatchSize < 0 || c.MongoBatchSize > math.MaxInt32:
		return fmt.Errorf("%w: mongo_batch_size out of range: %d", ErrInvalidConfig, c.MongoBatchSize)
	case c.SourceKind == SourceMongo && c.MongoURL == "":
		return fmt.Errorf("%w: mongo_url is required for source_kind mongo", ErrInvalidConfig)
	}
	return nil
}
