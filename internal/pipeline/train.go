// Package pipeline trains the lap time regressor, applies it to a new
// qualifying session and scores the predictions against the race.
package pipeline

import (
	"github.com/pitwall-labs/lapcast/core/model"
	"github.com/pitwall-labs/lapcast/internal/features"
	"github.com/pitwall-labs/lapcast/metrics"
	"github.com/pitwall-labs/lapcast/pkg/errors"
	"github.com/pitwall-labs/lapcast/pkg/log"
	"github.com/pitwall-labs/lapcast/sklearn/ensemble"
	"github.com/pitwall-labs/lapcast/sklearn/linear_model"
	"github.com/pitwall-labs/lapcast/sklearn/model_selection"
)

// Model kinds accepted by TrainConfig.Kind.
const (
	KindGradientBoosting = "gradient_boosting"
	KindLinear           = "linear"
)

// TrainConfig controls the split and the default model.
type TrainConfig struct {
	// Kind selects the estimator, KindGradientBoosting when empty.
	Kind string

	NEstimators  int
	LearningRate float64
	MaxDepth     int
	Subsample    float64
	TestSize     float64
	Seed         int

	// NewModel builds the estimator to fit. Nil means the estimator named
	// by Kind, configured from the fields above.
	NewModel func() model.Regressor
}

// DefaultTrainConfig returns 100 stages at learning rate 0.1, an 80/20 split
// and seed 39.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		NEstimators:  100,
		LearningRate: 0.1,
		MaxDepth:     3,
		Subsample:    1.0,
		TestSize:     0.2,
		Seed:         39,
	}
}

// Validate rejects unknown model kinds.
func (c TrainConfig) Validate() error {
	switch c.Kind {
	case "", KindGradientBoosting, KindLinear:
		return nil
	}
	return errors.NewValidationError("model.kind", "must be gradient_boosting or linear", c.Kind)
}

func (c TrainConfig) newModel() model.Regressor {
	if c.NewModel != nil {
		return c.NewModel()
	}
	if c.Kind == KindLinear {
		return linear_model.NewLinearRegression()
	}
	return ensemble.NewGradientBoostingRegressor(
		ensemble.WithNEstimators(c.NEstimators),
		ensemble.WithLearningRate(c.LearningRate),
		ensemble.WithMaxDepth(c.MaxDepth),
		ensemble.WithSubsample(c.Subsample),
		ensemble.WithRandomState(c.Seed),
	)
}

// TrainResult is a fitted model with its held-out error.
type TrainResult struct {
	Model model.Regressor

	// HeldOutMAE is the mean absolute error on the test partition.
	HeldOutMAE float64

	Split *model_selection.Split
}

// Train splits examples, fits a fresh model on the training partition and
// scores it on the held-out partition. The same examples and seed always
// produce the same HeldOutMAE.
func Train(examples []features.TrainingExample, cfg TrainConfig) (*TrainResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(examples) == 0 {
		return nil, errors.NewModelError("pipeline.Train", "no training examples", errors.ErrEmptyData)
	}

	X, y := features.FeatureMatrix(examples)
	if err := errors.CheckMatrix("pipeline.Train qualifying", X, 0); err != nil {
		return nil, err
	}
	if err := errors.CheckMatrix("pipeline.Train race", y, 0); err != nil {
		return nil, err
	}

	split, err := model_selection.TrainTestSplit(X, y, cfg.TestSize, cfg.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "split training examples")
	}

	logger := log.GetLoggerWithName("pipeline")
	logger.Debug("Training set split",
		log.SamplesKey, len(examples),
		log.TrainKey, len(split.TrainIndices),
		log.TestKey, len(split.TestIndices),
		log.RandomSeedKey, cfg.Seed,
	)

	m := cfg.newModel()
	if pg, ok := m.(model.ParameterGetter); ok {
		logger.Debug("Model configured", "params", pg.GetParams())
	}
	if err := m.Fit(split.XTrain, split.YTrain); err != nil {
		return nil, errors.Wrap(err, "fit model")
	}

	pred, err := m.Predict(split.XTest)
	if err != nil {
		return nil, errors.Wrap(err, "predict held-out rows")
	}
	mae, err := metrics.MAEMatrix(split.YTest, pred)
	if err != nil {
		return nil, errors.Wrap(err, "held-out error")
	}

	fields := []any{
		log.PhaseKey, log.PhaseValidation,
		log.MAEKey, mae,
	}
	if r2, err := m.Score(split.XTrain, split.YTrain); err == nil {
		fields = append(fields, log.R2ScoreKey, r2)
	} else {
		errors.Warn(errors.NewUndefinedMetricWarning("r2_score", err.Error(), 0))
	}
	logger.Info("Model trained", fields...)

	return &TrainResult{Model: m, HeldOutMAE: mae, Split: split}, nil
}

// PredictionRecord is the predicted race fastest lap for one driver.
type PredictionRecord struct {
	DriverID             string
	QualifyingSeconds    float64
	PredictedRaceSeconds float64
}

// Predict applies a fitted model to each qualifying fastest lap. The model
// is not modified.
func Predict(m model.Predictor, qualifying []features.DriverFastestLap) ([]PredictionRecord, error) {
	out := make([]PredictionRecord, 0, len(qualifying))
	if len(qualifying) == 0 {
		return out, nil
	}

	pred, err := m.Predict(features.QualifyingMatrix(qualifying))
	if err != nil {
		return nil, errors.Wrap(err, "predict race laps")
	}
	if rows, _ := pred.Dims(); rows != len(qualifying) {
		return nil, errors.NewDimensionError("pipeline.Predict", len(qualifying), rows, 0)
	}

	for i, q := range qualifying {
		v := pred.At(i, 0)
		if err := errors.CheckScalar("pipeline.Predict", v, i); err != nil {
			return nil, err
		}
		out = append(out, PredictionRecord{
			DriverID:             q.DriverID,
			QualifyingSeconds:    q.Seconds,
			PredictedRaceSeconds: v,
		})
	}
	return out, nil
}
