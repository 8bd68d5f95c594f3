// Package report renders pipeline results for people: a plain-text table on
// stdout and an optional PNG chart.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pitwall-labs/lapcast/internal/pipeline"
)

// Text writes the training error and the comparison table as plain text.
type Text struct {
	w io.Writer
}

var _ pipeline.Observer = (*Text)(nil)

// NewText creates a Text report writing to w.
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

// Trained prints the held-out error of the fitted model.
func (t *Text) Trained(_ pipeline.Event, res *pipeline.TrainResult) error {
	_, err := fmt.Fprintf(t.w, "\nTraining error (MAE): %.2f s\n", res.HeldOutMAE)
	return err
}

// Compared prints one row per driver sorted by predicted lap time, then the
// mean absolute error.
func (t *Text) Compared(target pipeline.Event, c *pipeline.Comparison) error {
	if _, err := fmt.Fprintf(t.w, "\n--- %d Fastest Lap Predictions vs Real ---\n\n", target.Year); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(t.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Driver\tQualifyingTime (s)\tPredictedRaceTime (s)\tRaceTime (s)\tPredictionError (s)\t")
	for _, r := range c.Records {
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.3f\t%+.3f\t\n",
			r.DriverID, r.QualifyingSeconds, r.PredictedRaceSeconds, r.ActualRaceSeconds, r.ErrorSeconds)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(t.w, "\n%d Prediction Error (MAE): %.2f s\n", target.Year, c.MAE)
	return err
}
