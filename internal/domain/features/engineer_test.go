package features

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/lapprice/internal/domain/model"
	"github.com/okian/lapprice/internal/schema"
	. "github.com/smartystreets/goconvey/convey"
)

func laptop(price float64) model.RawRecord {
	return model.RawRecord{
		Company:          "Dell",
		TypeName:         "Notebook",
		Inches:           15.6,
		ScreenResolution: "Full HD 1920x1080",
		CPU:              "Intel Core i5 8250U 1.6GHz",
		RAM:              "8GB",
		Memory:           "256GB SSD",
		GPU:              "Intel UHD Graphics 620",
		OpSys:            "Windows 10",
		Weight:           "2.2kg",
		Price:            price,
		HasPrice:         true,
	}
}

func batch(prices ...float64) []model.RawRecord {
	out := make([]model.RawRecord, len(prices))
	for i, p := range prices {
		out[i] = laptop(p)
	}
	return out
}

func TestOutlierBounds(t *testing.T) {
	Convey("Given a price batch", t, func() {
		Convey("When computing bounds", func() {
			b, err := ComputeOutlierBounds([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100})
			So(err, ShouldBeNil)
			So(b.Low, ShouldAlmostEqual, -3.5, 1e-9)
			So(b.High, ShouldAlmostEqual, 14.5, 1e-9)
			So(b.Contains(14.5), ShouldBeTrue)
			So(b.Contains(100), ShouldBeFalse)
		})

		Convey("When the batch is empty", func() {
			_, err := ComputeOutlierBounds(nil)
			So(err, ShouldEqual, ErrEmptyBatch)
		})

		Convey("When interpolating quantiles", func() {
			So(Quantile([]float64{10}, 0.75), ShouldEqual, 10)
			So(Quantile([]float64{1, 2, 3, 4}, 0.25), ShouldAlmostEqual, 1.75, 1e-9)
			So(Quantile([]float64{1, 2, 3, 4}, 1), ShouldEqual, 4)
		})
	})
}

func TestTrainingVariant(t *testing.T) {
	Convey("Given the default schema engineer", t, func() {
		e := New(schema.Default())

		Convey("When the batch has a price outlier", func() {
			f, sum, err := e.Training(batch(1, 2, 3, 4, 5, 6, 7, 8, 9, 100))

			So(err, ShouldBeNil)
			So(f.Len(), ShouldEqual, 9)
			So(sum.OutliersDropped, ShouldEqual, 1)
			prices, ok := f.Floats(model.ColPrice)
			So(ok, ShouldBeTrue)
			So(prices, ShouldNotContain, 100.0)
		})

		Convey("When the batch has no outliers", func() {
			f, sum, err := e.Training(batch(10, 11, 12, 13))
			So(err, ShouldBeNil)
			So(f.Len(), ShouldEqual, 4)
			So(sum.Output(), ShouldEqual, 4)
		})

		Convey("When a row has an unsupported GPU", func() {
			recs := batch(10, 11, 12, 13)
			recs[2].GPU = "Other Gpu"
			f, sum, err := e.Training(recs)

			So(err, ShouldBeNil)
			So(f.Len(), ShouldEqual, 3)
			So(sum.GPUDropped, ShouldEqual, 1)
			So(f.Column(model.ColGPUCategory), ShouldNotContain, GPUOther)
		})

		Convey("Then columns follow the training order", func() {
			f, _, err := e.Training(batch(10, 11))
			So(err, ShouldBeNil)
			So(f.Columns, ShouldResemble, schema.Default().TrainColumns())

			row := f.Rows[0]
			So(row[f.Index(model.ColRAM)], ShouldEqual, 8.0)
			So(row[f.Index(model.ColSSD)], ShouldEqual, 256.0)
			So(row[f.Index(model.ColCPUCategory)], ShouldEqual, 0.0)
			So(row[f.Index(model.ColOpSysCategory)], ShouldEqual, OSWindows10)
		})

		Convey("When a row has malformed Ram", func() {
			recs := batch(10, 11, 12)
			recs[1].RAM = "eightGB"
			_, _, err := e.Training(recs)

			var mf *MalformedFieldError
			So(errors.As(err, &mf), ShouldBeTrue)
			So(mf.Row, ShouldEqual, 1)
			So(mf.Field, ShouldEqual, model.ColRAM)
		})

		Convey("When a row has no target", func() {
			recs := batch(10, 11)
			recs[0].HasPrice = false
			_, _, err := e.Training(recs)
			So(errors.Is(err, ErrMalformedField), ShouldBeTrue)
		})

		Convey("When the batch is empty", func() {
			_, _, err := e.Training(nil)
			So(err, ShouldEqual, ErrEmptyBatch)
		})
	})
}

func TestInferenceVariant(t *testing.T) {
	Convey("Given the default schema engineer", t, func() {
		e := New(schema.Default())

		Convey("When a row has an unsupported GPU and no price", func() {
			r := laptop(0)
			r.HasPrice = false
			r.GPU = "Other Gpu"
			f, err := e.Inference([]model.RawRecord{r})

			So(err, ShouldBeNil)
			So(f.Len(), ShouldEqual, 1)
			So(f.Columns, ShouldNotContain, model.ColPrice)
			So(f.Column(model.ColGPUCategory), ShouldResemble, []any{GPUOther})
		})

		Convey("When a single extreme price row is engineered", func() {
			f, err := e.Inference([]model.RawRecord{laptop(1e9)})
			So(err, ShouldBeNil)
			So(f.Len(), ShouldEqual, 1)
		})

		Convey("When the screen resolution is malformed", func() {
			r := laptop(0)
			r.ScreenResolution = "Retina"
			_, err := e.Inference([]model.RawRecord{r})
			So(errors.Is(err, ErrMalformedField), ShouldBeTrue)
		})
	})
}

func TestSchemaMismatch(t *testing.T) {
	Convey("Given column lists naming a column the engineer cannot produce", t, func() {
		e := NewWithColumns([]string{"Ram", "Price", "Battery"}, []string{"Ram", "Battery"})

		Convey("Then both variants fail with a schema mismatch", func() {
			_, _, err := e.Training(batch(10, 11))
			So(errors.Is(err, ErrSchemaMismatch), ShouldBeTrue)

			_, err = e.Inference(batch(10))
			var sm *SchemaMismatchError
			So(errors.As(err, &sm), ShouldBeTrue)
			So(sm.Columns, ShouldResemble, []string{"Battery"})
			So(sm.Variant, ShouldEqual, Inference)
		})

		Convey("Then inference rejects the target column", func() {
			_, err := NewWithColumns(nil, []string{"Price"}).Inference(batch(10))
			So(errors.Is(err, ErrSchemaMismatch), ShouldBeTrue)
		})
	})
}

func TestDecodeRecords(t *testing.T) {
	Convey("Given a raw table", t, func() {
		row := map[string]string{
			"Company": "Apple", "TypeName": "Ultrabook", "Inches": "13.3",
			"ScreenResolution": "IPS Panel Retina Display 2560x1600", "Cpu": "Intel Core i5 2.3GHz",
			"Ram": "8GB", "Memory": "128GB SSD", "Gpu": "Intel Iris Plus Graphics 640",
			"OpSys": "macOS", "Weight": "1.37kg", "Price": "71378.6832",
		}
		cols := []string{"Company", "TypeName", "Inches", "ScreenResolution", "Cpu", "Ram", "Memory", "Gpu", "OpSys", "Weight", "Price"}

		Convey("When every value parses", func() {
			recs, err := DecodeRecords(&model.RawTable{Columns: cols, Rows: []map[string]string{row}})
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 1)
			So(recs[0].Inches, ShouldEqual, 13.3)
			So(recs[0].HasPrice, ShouldBeTrue)
			So(recs[0].Price, ShouldAlmostEqual, 71378.6832, 1e-6)
		})

		Convey("When Inches is blank", func() {
			bad := map[string]string{}
			for k, v := range row {
				bad[k] = v
			}
			bad["Inches"] = ""
			_, err := DecodeRecords(&model.RawTable{Columns: cols, Rows: []map[string]string{row, bad}})

			var mf *MalformedFieldError
			So(errors.As(err, &mf), ShouldBeTrue)
			So(mf.Row, ShouldEqual, 1)
			So(fmt.Sprint(err), ShouldContainSubstring, "row 1")
		})

		Convey("When there is no Price column", func() {
			recs, err := DecodeRecords(&model.RawTable{Columns: cols[:10], Rows: []map[string]string{row}})
			So(err, ShouldBeNil)
			So(recs[0].HasPrice, ShouldBeFalse)
		})
	})
}
