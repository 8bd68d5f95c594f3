// Package ensemble implements gradient boosted regression trees.
package ensemble

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/pitwall-labs/lapcast/core/model"
	"github.com/pitwall-labs/lapcast/metrics"
	"github.com/pitwall-labs/lapcast/pkg/errors"
	"github.com/pitwall-labs/lapcast/pkg/log"
	"github.com/pitwall-labs/lapcast/sklearn/model_selection"
	"github.com/pitwall-labs/lapcast/sklearn/tree"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// GradientBoostingRegressor fits an additive model of regression trees to
// the least squares loss. Each stage fits a tree to the current residuals
// and adds it to the ensemble scaled by the learning rate.
type GradientBoostingRegressor struct {
	state *model.StateManager

	nEstimators     int
	learningRate    float64
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	subsample       float64
	randomState     int

	initValue  float64
	estimators []*tree.DecisionTreeRegressor
	trainScore []float64
}

// NewGradientBoostingRegressor creates a regressor with 100 stages, learning
// rate 0.1, depth-3 trees and no subsampling.
func NewGradientBoostingRegressor(opts ...Option) *GradientBoostingRegressor {
	gb := &GradientBoostingRegressor{
		state:           model.NewStateManager(),
		nEstimators:     100,
		learningRate:    0.1,
		maxDepth:        3,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		subsample:       1.0,
	}
	for _, opt := range opts {
		opt(gb)
	}
	return gb
}

func (gb *GradientBoostingRegressor) validateParams() error {
	if gb.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", gb.nEstimators)
	}
	if gb.learningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", gb.learningRate)
	}
	if gb.subsample <= 0 || gb.subsample > 1 {
		return errors.NewValidationError("subsample", "must be in (0, 1]", gb.subsample)
	}
	return nil
}

// Fit trains the ensemble on X (n×p) and y (n×1).
func (gb *GradientBoostingRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GradientBoostingRegressor.Fit")

	if err := gb.validateParams(); err != nil {
		return err
	}

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("GradientBoostingRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if rows != yRows {
		return errors.NewDimensionError("GradientBoostingRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("GradientBoostingRegressor.Fit", 1, yCols, 1)
	}
	if err := errors.CheckMatrix("GradientBoostingRegressor.Fit X", X, 0); err != nil {
		return err
	}
	target := mat.Col(nil, 0, y)
	if err := errors.CheckNumericalStability("GradientBoostingRegressor.Fit y", target, 0); err != nil {
		return err
	}

	logger := log.GetLoggerWithName("ensemble.gradient_boosting").With(
		log.ModelNameKey, "GradientBoostingRegressor",
	)
	logger.Debug("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.EstimatorsKey, gb.nEstimators,
		log.LearningRateKey, gb.learningRate,
		log.MaxDepthKey, gb.maxDepth,
		log.RandomSeedKey, gb.randomState,
	)
	start := time.Now()

	gb.state.Reset()
	gb.initValue = floats.Sum(target) / float64(rows)
	gb.estimators = make([]*tree.DecisionTreeRegressor, 0, gb.nEstimators)
	gb.trainScore = make([]float64, 0, gb.nEstimators)

	raw := make([]float64, rows)
	for i := range raw {
		raw[i] = gb.initValue
	}
	residual := mat.NewDense(rows, 1, nil)

	rng := rand.New(rand.NewPCG(uint64(gb.randomState), uint64(gb.randomState)))
	nSub := rows
	if gb.subsample < 1 {
		nSub = int(math.Max(1, math.Floor(gb.subsample*float64(rows))))
	}

	for stage := 0; stage < gb.nEstimators; stage++ {
		for i := 0; i < rows; i++ {
			residual.Set(i, 0, target[i]-raw[i])
		}

		var sample []int
		XFit, yFit := mat.Matrix(X), mat.Matrix(residual)
		if nSub < rows {
			sample = rng.Perm(rows)[:nSub]
			XFit = model_selection.TakeRows(X, sample)
			yFit = model_selection.TakeRows(residual, sample)
		}

		t := tree.NewDecisionTreeRegressor(
			tree.WithCriterion("friedman_mse"),
			tree.WithMaxDepth(gb.maxDepth),
			tree.WithMinSamplesSplit(gb.minSamplesSplit),
			tree.WithMinSamplesLeaf(gb.minSamplesLeaf),
			tree.WithRandomState(rng.IntN(math.MaxInt32)),
		)
		if err := t.Fit(XFit, yFit); err != nil {
			return errors.NewModelError("GradientBoostingRegressor.Fit", "stage fit failed", err)
		}

		update, err := t.Predict(X)
		if err != nil {
			return err
		}
		for i := 0; i < rows; i++ {
			raw[i] += gb.learningRate * update.At(i, 0)
		}
		if err := errors.CheckNumericalStability("GradientBoostingRegressor.Fit", raw, stage); err != nil {
			return err
		}

		gb.estimators = append(gb.estimators, t)
		gb.trainScore = append(gb.trainScore, stageLoss(target, raw, sample))

		if (stage+1)%25 == 0 {
			logger.Debug("Boosting progress",
				log.IterationKey, stage+1,
				log.LossKey, gb.trainScore[stage],
			)
		}
	}

	gb.state.SetFitted(cols, rows)
	logger.Debug("Training completed",
		log.LossKey, gb.trainScore[len(gb.trainScore)-1],
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// stageLoss is the mean squared error over the rows a stage was fitted on.
func stageLoss(target, raw []float64, sample []int) float64 {
	if sample == nil {
		var sum float64
		for i := range target {
			d := target[i] - raw[i]
			sum += d * d
		}
		return sum / float64(len(target))
	}
	var sum float64
	for _, i := range sample {
		d := target[i] - raw[i]
		sum += d * d
	}
	return sum / float64(len(sample))
}

// Predict returns init + learningRate·Σ tree(x) for each row of X.
func (gb *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := gb.state.RequireFitted("GradientBoostingRegressor", "Predict"); err != nil {
		return nil, err
	}
	if err := gb.state.CheckPredictInput("GradientBoostingRegressor.Predict", X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	if rows == 0 {
		return nil, errors.NewValueError("GradientBoostingRegressor.Predict", "empty input")
	}

	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, gb.initValue)
	}
	for _, t := range gb.estimators {
		update, err := t.Predict(X)
		if err != nil {
			return nil, err
		}
		for i := 0; i < rows; i++ {
			out.Set(i, 0, out.At(i, 0)+gb.learningRate*update.At(i, 0))
		}
	}
	return out, nil
}

// Score returns the R² of the predictions on X against y.
func (gb *GradientBoostingRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := gb.Predict(X)
	if err != nil {
		return 0, err
	}
	yTrue, err := metrics.ColumnVector("GradientBoostingRegressor.Score", y)
	if err != nil {
		return 0, err
	}
	yPred, err := metrics.ColumnVector("GradientBoostingRegressor.Score", pred)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yTrue, yPred)
}

// TrainScore returns the in-bag training MSE after each stage.
func (gb *GradientBoostingRegressor) TrainScore() []float64 {
	return append([]float64(nil), gb.trainScore...)
}

// InitValue returns the constant the ensemble starts from, the mean of y.
func (gb *GradientBoostingRegressor) InitValue() float64 {
	return gb.initValue
}

// NEstimatorsFitted returns the number of trees in the ensemble.
func (gb *GradientBoostingRegressor) NEstimatorsFitted() int {
	return len(gb.estimators)
}

// FeatureImportances averages the trees' normalized importances.
func (gb *GradientBoostingRegressor) FeatureImportances() []float64 {
	nFeatures, _ := gb.state.GetDimensions()
	out := make([]float64, nFeatures)
	if len(gb.estimators) == 0 {
		return out
	}
	for _, t := range gb.estimators {
		floats.Add(out, t.FeatureImportances())
	}
	if total := floats.Sum(out); total > 0 {
		floats.Scale(1/total, out)
	}
	return out
}

// GetParams returns the hyperparameters in scikit-learn naming.
func (gb *GradientBoostingRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      gb.nEstimators,
		"learning_rate":     gb.learningRate,
		"max_depth":         gb.maxDepth,
		"min_samples_split": gb.minSamplesSplit,
		"min_samples_leaf":  gb.minSamplesLeaf,
		"subsample":         gb.subsample,
		"random_state":      gb.randomState,
	}
}
