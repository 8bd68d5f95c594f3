// Package features reshapes session lap logs into per-driver fastest laps
// and assembles them into training examples.
package features

import (
	"gonum.org/v1/gonum/mat"

	"github.com/pitwall-labs/lapcast/internal/session"
)

// DriverFastestLap is a driver's single fastest timed lap in one session.
type DriverFastestLap struct {
	DriverID string
	Seconds  float64
}

// TrainingExample pairs a driver's qualifying and race fastest laps.
type TrainingExample struct {
	DriverID          string
	QualifyingSeconds float64
	RaceSeconds       float64
}

// FastestPerDriver returns one row per driver holding the minimum timed lap
// duration. Laps without a recorded time are ignored, so a driver with no
// timed lap does not appear. Rows follow the order in which drivers first
// appear in laps; on equal durations the earlier lap wins.
func FastestPerDriver(laps []session.LapRecord) []DriverFastestLap {
	index := make(map[string]int)
	best := make([]session.LapRecord, 0)

	for _, lap := range laps {
		if !lap.Timed {
			continue
		}
		i, seen := index[lap.DriverID]
		if !seen {
			index[lap.DriverID] = len(best)
			best = append(best, lap)
			continue
		}
		if lap.Duration < best[i].Duration {
			best[i] = lap
		}
	}

	out := make([]DriverFastestLap, len(best))
	for i, lap := range best {
		out[i] = DriverFastestLap{DriverID: lap.DriverID, Seconds: lap.Duration.Seconds()}
	}
	return out
}

// Join is the inner join of qualifying and race on DriverID. Output follows
// the qualifying order; drivers missing from either side are dropped.
func Join(qualifying, race []DriverFastestLap) []TrainingExample {
	raceByDriver := make(map[string]float64, len(race))
	for _, r := range race {
		raceByDriver[r.DriverID] = r.Seconds
	}

	out := make([]TrainingExample, 0, len(qualifying))
	for _, q := range qualifying {
		seconds, ok := raceByDriver[q.DriverID]
		if !ok {
			continue
		}
		out = append(out, TrainingExample{
			DriverID:          q.DriverID,
			QualifyingSeconds: q.Seconds,
			RaceSeconds:       seconds,
		})
	}
	return out
}

// Unmatched lists the drivers of a that have no row in b, in a's order.
func Unmatched(a, b []DriverFastestLap) []string {
	present := make(map[string]struct{}, len(b))
	for _, r := range b {
		present[r.DriverID] = struct{}{}
	}

	var missing []string
	for _, r := range a {
		if _, ok := present[r.DriverID]; !ok {
			missing = append(missing, r.DriverID)
		}
	}
	return missing
}

// FeatureMatrix returns the single-feature design matrix X (qualifying
// seconds) and the target column y (race seconds). Both are nil when
// examples is empty, since gonum has no zero-row Dense.
func FeatureMatrix(examples []TrainingExample) (X, y *mat.Dense) {
	if len(examples) == 0 {
		return nil, nil
	}
	n := len(examples)
	xData := make([]float64, n)
	yData := make([]float64, n)
	for i, ex := range examples {
		xData[i] = ex.QualifyingSeconds
		yData[i] = ex.RaceSeconds
	}
	return mat.NewDense(n, 1, xData), mat.NewDense(n, 1, yData)
}

// QualifyingMatrix returns the n×1 design matrix for prediction rows.
func QualifyingMatrix(qualifying []DriverFastestLap) *mat.Dense {
	if len(qualifying) == 0 {
		return nil
	}
	data := make([]float64, len(qualifying))
	for i, q := range qualifying {
		data[i] = q.Seconds
	}
	return mat.NewDense(len(qualifying), 1, data)
}

// NoTimedLap lists the drivers that appear in laps without a single timed
// lap, in order of first appearance. FastestPerDriver leaves them out.
func NoTimedLap(laps []session.LapRecord) []string {
	timed := make(map[string]bool)
	var order []string
	for _, lap := range laps {
		if _, seen := timed[lap.DriverID]; !seen {
			order = append(order, lap.DriverID)
		}
		timed[lap.DriverID] = timed[lap.DriverID] || lap.Timed
	}

	var missing []string
	for _, id := range order {
		if !timed[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
