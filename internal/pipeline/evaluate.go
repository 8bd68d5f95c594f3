package pipeline

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/pitwall-labs/lapcast/internal/features"
	"github.com/pitwall-labs/lapcast/metrics"
	"github.com/pitwall-labs/lapcast/pkg/errors"
)

// ErrNoOverlap is returned when predictions and race results share no
// driver, leaving nothing to score.
var ErrNoOverlap = errors.New("no driver has both a prediction and a race lap")

// ComparisonRecord scores one driver's prediction.
type ComparisonRecord struct {
	DriverID             string
	QualifyingSeconds    float64
	PredictedRaceSeconds float64
	ActualRaceSeconds    float64

	// ErrorSeconds is predicted minus actual; positive means the driver was
	// faster than predicted.
	ErrorSeconds float64
}

// Comparison is the scored prediction table.
type Comparison struct {
	// Records are sorted by ascending predicted time.
	Records []ComparisonRecord

	MAE         float64
	MaxAbsError float64

	// Unmatched lists drivers that were predicted but set no race lap.
	Unmatched []string
}

// Compare joins predictions with the actual race fastest laps on DriverID
// and computes the signed error per driver and the mean absolute error.
func Compare(predictions []PredictionRecord, actual []features.DriverFastestLap) (*Comparison, error) {
	actualByDriver := make(map[string]float64, len(actual))
	for _, a := range actual {
		actualByDriver[a.DriverID] = a.Seconds
	}

	c := &Comparison{Records: make([]ComparisonRecord, 0, len(predictions))}
	for _, p := range predictions {
		seconds, ok := actualByDriver[p.DriverID]
		if !ok {
			c.Unmatched = append(c.Unmatched, p.DriverID)
			continue
		}
		c.Records = append(c.Records, ComparisonRecord{
			DriverID:             p.DriverID,
			QualifyingSeconds:    p.QualifyingSeconds,
			PredictedRaceSeconds: p.PredictedRaceSeconds,
			ActualRaceSeconds:    seconds,
			ErrorSeconds:         p.PredictedRaceSeconds - seconds,
		})
	}
	if len(c.Records) == 0 {
		return nil, errors.WithStack(ErrNoOverlap)
	}

	sort.SliceStable(c.Records, func(i, j int) bool {
		return c.Records[i].PredictedRaceSeconds < c.Records[j].PredictedRaceSeconds
	})

	n := len(c.Records)
	predicted := mat.NewVecDense(n, nil)
	observed := mat.NewVecDense(n, nil)
	for i, r := range c.Records {
		predicted.SetVec(i, r.PredictedRaceSeconds)
		observed.SetVec(i, r.ActualRaceSeconds)
	}

	var err error
	if c.MAE, err = metrics.MAE(observed, predicted); err != nil {
		return nil, err
	}
	if c.MaxAbsError, err = metrics.MaxError(observed, predicted); err != nil {
		return nil, err
	}
	return c, nil
}
