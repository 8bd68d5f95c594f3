package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/pitwall-labs/lapcast/internal/pipeline"
	"github.com/pitwall-labs/lapcast/pkg/errors"
)

var (
	predictedColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	actualColor    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Chart draws predicted and actual race fastest laps against qualifying
// time and saves the image to path. The format follows the file extension.
func Chart(path string, target pipeline.Event, c *pipeline.Comparison) error {
	if c == nil || len(c.Records) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "chart")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%d round %d: race fastest lap (MAE %.2f s)", target.Year, target.Round, c.MAE)
	p.X.Label.Text = "Qualifying fastest lap (s)"
	p.Y.Label.Text = "Race fastest lap (s)"
	p.Add(plotter.NewGrid())

	predicted := make(plotter.XYs, len(c.Records))
	actual := make(plotter.XYs, len(c.Records))
	labels := make([]string, len(c.Records))
	for i, r := range c.Records {
		predicted[i] = plotter.XY{X: r.QualifyingSeconds, Y: r.PredictedRaceSeconds}
		actual[i] = plotter.XY{X: r.QualifyingSeconds, Y: r.ActualRaceSeconds}
		labels[i] = r.DriverID
	}

	predScatter, err := plotter.NewScatter(predicted)
	if err != nil {
		return errors.Wrap(err, "predicted series")
	}
	predScatter.GlyphStyle.Color = predictedColor
	predScatter.GlyphStyle.Shape = draw.CircleGlyph{}
	predScatter.GlyphStyle.Radius = vg.Points(3)

	actScatter, err := plotter.NewScatter(actual)
	if err != nil {
		return errors.Wrap(err, "actual series")
	}
	actScatter.GlyphStyle.Color = actualColor
	actScatter.GlyphStyle.Shape = draw.TriangleGlyph{}
	actScatter.GlyphStyle.Radius = vg.Points(3)

	names, err := plotter.NewLabels(plotter.XYLabels{XYs: actual, Labels: labels})
	if err != nil {
		return errors.Wrap(err, "driver labels")
	}

	p.Add(predScatter, actScatter, names)
	p.Legend.Add("Predicted", predScatter)
	p.Legend.Add("Actual", actScatter)
	p.Legend.Top = true

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save chart %s", path)
	}
	return nil
}
