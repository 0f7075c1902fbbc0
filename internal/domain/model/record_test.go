package model

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEngineeredRecordValue(t *testing.T) {
	Convey("Given an engineered record without a target", t, func() {
		r := EngineeredRecord{Company: "Dell", RAM: 8, CPUCategory: 1, GPUCategory: "intel"}

		Convey("Then numeric cells come back as float64", func() {
			v, ok := r.Value(ColRAM)
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 8.0)
			v, _ = r.Value(ColCPUCategory)
			So(v, ShouldEqual, 1.0)
		})

		Convey("Then categorical cells come back as strings", func() {
			v, ok := r.Value(ColGPUCategory)
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, "intel")
		})

		Convey("Then Price and unknown columns are absent", func() {
			_, ok := r.Value(ColPrice)
			So(ok, ShouldBeFalse)
			_, ok = r.Value("Inches")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestFrame(t *testing.T) {
	Convey("Given a two row frame", t, func() {
		f := &Frame{
			Columns: []string{"a", "b", "c"},
			Rows:    [][]any{{1.0, "x", 3.0}, {4.0, "y", 6.0}},
		}

		Convey("When selecting a reordered subset", func() {
			out, missing := f.Select([]string{"c", "a"})
			So(missing, ShouldBeEmpty)
			So(out.Columns, ShouldResemble, []string{"c", "a"})
			So(out.Rows[1], ShouldResemble, []any{6.0, 4.0})
		})

		Convey("When selecting an absent column", func() {
			out, missing := f.Select([]string{"a", "z"})
			So(out, ShouldBeNil)
			So(missing, ShouldResemble, []string{"z"})
		})

		Convey("When reading floats", func() {
			vals, ok := f.Floats("a")
			So(ok, ShouldBeTrue)
			So(vals, ShouldResemble, []float64{1, 4})
			_, ok = f.Floats("b")
			So(ok, ShouldBeFalse)
		})

		Convey("When dropping and adding columns", func() {
			d := f.Drop("b")
			So(d.Columns, ShouldResemble, []string{"a", "c"})
			d.AddConstant("k", "unknown")
			So(d.Column("k"), ShouldResemble, []any{"unknown", "unknown"})
			So(f.Columns, ShouldHaveLength, 3)
		})
	})
}

func TestCategoryString(t *testing.T) {
	Convey("Given categorical cells of several types", t, func() {
		So(CategoryString("Apple"), ShouldEqual, "Apple")
		So(CategoryString(2.0), ShouldEqual, "2")
		So(CategoryString(3), ShouldEqual, "3")
		So(CategoryString(nil), ShouldEqual, "")
	})
}

func TestJobStatus(t *testing.T) {
	Convey("Given job states", t, func() {
		So(JobQueued.Done(), ShouldBeFalse)
		So(JobRunning.Done(), ShouldBeFalse)
		So(JobSucceeded.Done(), ShouldBeTrue)
		So(JobFailed.Done(), ShouldBeTrue)
	})
}
