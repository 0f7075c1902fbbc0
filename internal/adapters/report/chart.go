// Package report renders evaluation charts for a training run.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ErrNoPoints is returned when there is nothing to draw.
var ErrNoPoints = errors.New("report: no points")

const chartSize = 6 * vg.Inch

var (
	candidateColor = color.RGBA{R: 50, G: 50, B: 255, A: 255}
	incumbentColor = color.RGBA{R: 230, G: 120, B: 20, A: 255}
	idealColor     = color.RGBA{R: 200, A: 255}
)

// Series is one set of predictions drawn against the actual values.
type Series struct {
	Label     string
	Predicted []float64
}

// ActualVsPredicted writes a scatter of predicted against actual values,
// one colour per series, with the y=x line for reference. The image format
// follows the file extension (png, svg, pdf).
func ActualVsPredicted(path, title string, actual []float64, series ...Series) error {
	if len(actual) == 0 || len(series) == 0 {
		return ErrNoPoints
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "actual ln(price)"
	p.Y.Label.Text = "predicted ln(price)"
	p.Legend.Top = true
	p.Legend.Left = true

	lo, hi := math.Inf(1), math.Inf(-1)
	colors := []color.Color{candidateColor, incumbentColor}
	for i, s := range series {
		if len(s.Predicted) != len(actual) {
			return fmt.Errorf("report: series %q has %d points, want %d", s.Label, len(s.Predicted), len(actual))
		}
		pts := make(plotter.XYs, len(actual))
		for j := range actual {
			pts[j].X, pts[j].Y = actual[j], s.Predicted[j]
			lo = min(lo, actual[j], s.Predicted[j])
			hi = max(hi, actual[j], s.Predicted[j])
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		sc.Color = colors[i%len(colors)]
		sc.Shape = draw.CircleGlyph{}
		sc.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add(s.Label, sc)
	}

	ideal, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return err
	}
	ideal.Color = idealColor
	ideal.LineStyle.Width = vg.Points(1)
	ideal.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(ideal)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(chartSize, chartSize, path)
}
