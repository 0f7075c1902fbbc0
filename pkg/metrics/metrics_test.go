package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should register the pipeline metrics", func() {
				So(manager, ShouldNotBeNil)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				joined := strings.Join(names, ",")
				So(joined, ShouldContainSubstring, "lapprice_pipeline_rows_ingested")
				So(joined, ShouldContainSubstring, "lapprice_pipeline_candidate_r2")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithRefreshInterval(time.Second),
				WithHistogramBuckets([]float64{0.1, 1}),
				WithCustomLabels(map[string]string{"env": "test"}),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "unit")
				So(manager.RefreshInterval(), ShouldEqual, time.Second)
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 1})
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording pipeline values", func() {
			UpdateCandidateR2(0.82)
			UpdateIncumbentR2(0.75)
			UpdateRowsIngested(1303)
			before := testutil.ToFloat64(globalManager.modelsPublished)
			RecordModelPublished()

			Convey("Then gauges and counters should reflect them", func() {
				So(testutil.ToFloat64(globalManager.candidateR2), ShouldEqual, 0.82)
				So(testutil.ToFloat64(globalManager.incumbentR2), ShouldEqual, 0.75)
				So(testutil.ToFloat64(globalManager.rowsIngested), ShouldEqual, 1303.0)
				So(testutil.ToFloat64(globalManager.modelsPublished), ShouldEqual, before+1)
			})
		})

		Convey("When recording labelled counters", func() {
			RecordTrainingRun("published")
			RecordPredictionError("malformed_field")
			RecordStoreRetry("artifact")

			Convey("Then each label set should be counted", func() {
				So(testutil.ToFloat64(globalManager.trainingRuns.WithLabelValues("published")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.predictionErrors.WithLabelValues("malformed_field")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.storeRetries.WithLabelValues("artifact")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})
	})
}
