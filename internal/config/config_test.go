package config_test

import (
	"errors"
	"testing"

	"github.com/okian/lapprice/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.SourceKind, convey.ShouldEqual, config.SourceCSV)
			convey.So(cfg.ArtifactKind, convey.ShouldEqual, config.ArtifactLocal)
			convey.So(cfg.TestRatio, convey.ShouldEqual, 0.2)
			convey.So(cfg.SplitSeed, convey.ShouldEqual, int64(42))
			convey.So(cfg.PublishPolicy, convey.ShouldEqual, config.PublishOnAccept)
			convey.So(cfg.MongoBatchSize, convey.ShouldEqual, 500)
			convey.So(cfg.MissingColumnPolicy, convey.ShouldEqual, config.MissingLenient)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the mongo batch size is negative", func() {
			cfg.MongoBatchSize = -1
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the missing column policy is unknown", func() {
			cfg.MissingColumnPolicy = "guess"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
