package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/lapprice/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.ExpectedR2, convey.ShouldEqual, 0.6)
				convey.So(cfg.StoreRetries, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("LAPPRICE_ADDR", ":8080")
			_ = os.Setenv("LAPPRICE_TEST_RATIO", "0.25")
			_ = os.Setenv("LAPPRICE_PUBLISH_POLICY", "always")
			_ = os.Setenv("LAPPRICE_STORE_RETRIES", "5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TestRatio, convey.ShouldEqual, 0.25)
				convey.So(cfg.PublishPolicy, convey.ShouldEqual, config.PublishAlways)
				convey.So(cfg.StoreRetries, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
source_kind: mongo
mongo_url: "mongodb://localhost:27017"
artifact_kind: s3
bucket: my-models
expected_r2: 0.7
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("LAPPRICE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.SourceKind, convey.ShouldEqual, config.SourceMongo)
				convey.So(cfg.ArtifactKind, convey.ShouldEqual, config.ArtifactS3)
				convey.So(cfg.Bucket, convey.ShouldEqual, "my-models")
				convey.So(cfg.ExpectedR2, convey.ShouldEqual, 0.7)
				convey.So(cfg.MongoCollection, convey.ShouldEqual, "laptop_price_dataset") // From defaults
			})
		})

		convey.Convey("When env vars and a file are both set", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nwork_dir: /tmp/runs\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("LAPPRICE_CONFIG", tmpFile)
			_ = os.Setenv("LAPPRICE_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkDir, convey.ShouldEqual, "/tmp/runs")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("LAPPRICE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("LAPPRICE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("LAPPRICE_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the source kind is unknown", func() {
			_ = os.Setenv("LAPPRICE_SOURCE_KIND", "postgres")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When mongo is selected without a url", func() {
			_ = os.Setenv("LAPPRICE_SOURCE_KIND", "mongo")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "mongo_url")
			})
		})

		convey.Convey("When the test ratio is out of range", func() {
			_ = os.Setenv("LAPPRICE_TEST_RATIO", "1.5")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("LAPPRICE_JOB_QUEUE_SIZE", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"LAPPRICE_CONFIG",
		"LAPPRICE_ADDR",
		"LAPPRICE_TEST_RATIO",
		"LAPPRICE_PUBLISH_POLICY",
		"LAPPRICE_STORE_RETRIES",
		"LAPPRICE_SOURCE_KIND",
		"LAPPRICE_JOB_QUEUE_SIZE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "lapprice-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
