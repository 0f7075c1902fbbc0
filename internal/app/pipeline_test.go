package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/lapprice/internal/domain/model"
	"github.com/okian/lapprice/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func table(n int) *model.RawTable {
	t := &model.RawTable{Columns: []string{"id", "v"}}
	for i := range n {
		t.Rows = append(t.Rows, map[string]string{"id": string(rune('a' + i)), "v": "x"})
	}
	return t
}

func TestSplitTable(t *testing.T) {
	Convey("Given a table of ten rows", t, func() {
		tbl := table(10)

		Convey("When split with ratio 0.2", func() {
			train, test, err := SplitTable(tbl, 0.2, 42)

			Convey("Then two rows are held out and no row is lost", func() {
				So(err, ShouldBeNil)
				So(test.Len(), ShouldEqual, 2)
				So(train.Len(), ShouldEqual, 8)
				seen := map[string]bool{}
				for _, r := range append(train.Rows, test.Rows...) {
					seen[r["id"]] = true
				}
				So(seen, ShouldHaveLength, 10)
			})

			Convey("Then the same seed gives the same split", func() {
				_, again, _ := SplitTable(tbl, 0.2, 42)
				So(again.Rows, ShouldResemble, test.Rows)
			})
		})

		Convey("When the ratio or size is unusable", func() {
			_, _, err := SplitTable(tbl, 1, 42)
			So(err, ShouldNotBeNil)
			_, _, err = SplitTable(table(1), 0.2, 42)
			So(errors.Is(err, ErrEmptyDataset), ShouldBeTrue)
		})
	})
}

func TestValidateSplit(t *testing.T) {
	Convey("Given required columns a, b and c", t, func() {
		req := []string{"a", "b", "c"}
		ok := &model.RawTable{Columns: []string{"a", "b", "c"}}

		Convey("When both halves match", func() {
			So(ValidateSplit(ok, ok, req), ShouldResemble, ValidationReport{OK: true})
		})

		Convey("When the test half lacks a column", func() {
			rep := ValidateSplit(ok, &model.RawTable{Columns: []string{"a", "b"}}, req)
			So(rep.OK, ShouldBeFalse)
			So(rep.Message, ShouldEqual, "Test dataframe has missing columns. Test dataframe missing required columns. ")
		})

		Convey("When the train half has the right count but wrong names", func() {
			rep := ValidateSplit(&model.RawTable{Columns: []string{"a", "b", "z"}}, ok, req)
			So(rep.Message, ShouldEqual, "Train dataframe missing required columns. ")
		})
	})
}

func TestWithRetry(t *testing.T) {
	Convey("Given a retry policy of two attempts", t, func() {
		ctx := context.Background()
		p := RetryPolicy{Attempts: 2, Backoff: time.Millisecond}
		log := logger.Get()
		boom := errors.New("boom")

		Convey("When every call fails", func() {
			calls := 0
			_, err := withRetry(ctx, p, "test", log, func(context.Context) (int, error) {
				calls++
				return 0, boom
			})
			So(err, ShouldEqual, boom)
			So(calls, ShouldEqual, 3)
		})

		Convey("When the second call succeeds", func() {
			calls := 0
			v, err := withRetry(ctx, p, "test", log, func(context.Context) (int, error) {
				calls++
				if calls < 2 {
					return 0, boom
				}
				return 7, nil
			})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 7)
			So(calls, ShouldEqual, 2)
		})

		Convey("When the context is canceled during backoff", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := withRetry(cctx, RetryPolicy{Attempts: 5, Backoff: time.Hour}, "test", log, func(context.Context) (int, error) {
				return 0, boom
			})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
