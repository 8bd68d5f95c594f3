// Package linear_model provides an ordinary least squares baseline for the
// boosted models.
package linear_model

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/pitwall-labs/lapcast/core/model"
	"github.com/pitwall-labs/lapcast/metrics"
	"github.com/pitwall-labs/lapcast/pkg/errors"
)

// rcond is the relative singular value cutoff for the rank estimate.
const rcond = 1e-12

// LinearRegression is ordinary least squares, compatible with
// scikit-learn's LinearRegression.
type LinearRegression struct {
	state *model.StateManager

	fitIntercept bool

	coef      []float64
	intercept float64
	rank      int
}

// Option configures a LinearRegression.
type Option func(*LinearRegression)

// WithFitIntercept controls whether an intercept is learned.
func WithFitIntercept(fit bool) Option {
	return func(lr *LinearRegression) {
		lr.fitIntercept = fit
	}
}

// NewLinearRegression creates a LinearRegression that fits an intercept.
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{
		state:        model.NewStateManager(),
		fitIntercept: true,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit solves min ||y − Xw − b||² with a thin SVD. Rank deficient inputs get
// the minimum norm solution; a design with no variance at all predicts the
// mean of y.
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LinearRegression.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if rows != yRows {
		return errors.NewDimensionError("LinearRegression.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("LinearRegression.Fit", 1, yCols, 1)
	}
	if err := errors.CheckMatrix("LinearRegression.Fit X", X, 0); err != nil {
		return err
	}
	if err := errors.CheckMatrix("LinearRegression.Fit y", y, 0); err != nil {
		return err
	}

	Xc := mat.DenseCopyOf(X)
	target := mat.Col(nil, 0, y)

	xMean := make([]float64, cols)
	var yMean float64
	if lr.fitIntercept {
		for j := 0; j < cols; j++ {
			col := mat.Col(nil, j, Xc)
			xMean[j] = floats.Sum(col) / float64(rows)
			floats.AddConst(-xMean[j], col)
			Xc.SetCol(j, col)
		}
		yMean = floats.Sum(target) / float64(rows)
		floats.AddConst(-yMean, target)
	}

	var svd mat.SVD
	if !svd.Factorize(Xc, mat.SVDThin) {
		return errors.NewModelError("LinearRegression.Fit", "SVD did not converge", nil)
	}

	lr.coef = make([]float64, cols)
	lr.rank = svd.Rank(rcond)
	if lr.rank > 0 {
		var w mat.Dense
		svd.SolveTo(&w, mat.NewDense(rows, 1, target), lr.rank)
		mat.Col(lr.coef, 0, &w)
	}

	lr.intercept = 0
	if lr.fitIntercept {
		lr.intercept = yMean - floats.Dot(xMean, lr.coef)
	}

	lr.state.SetFitted(cols, rows)
	return nil
}

// Predict returns Xw + b.
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	if err := lr.state.CheckPredictInput("LinearRegression.Predict", X); err != nil {
		return nil, err
	}

	rows, _ := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	out.Mul(X, mat.NewDense(len(lr.coef), 1, lr.coef))
	for i := 0; i < rows; i++ {
		out.Set(i, 0, out.At(i, 0)+lr.intercept)
	}
	return out, nil
}

// Score returns R² on (X, y).
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	yv, err := metrics.ColumnVector("LinearRegression.Score", y)
	if err != nil {
		return 0, err
	}
	pv, err := metrics.ColumnVector("LinearRegression.Score", pred)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yv, pv)
}

// Coef returns a copy of the fitted coefficients.
func (lr *LinearRegression) Coef() []float64 {
	return append([]float64(nil), lr.coef...)
}

// Intercept returns the fitted intercept.
func (lr *LinearRegression) Intercept() float64 {
	return lr.intercept
}

// Rank returns the numerical rank of the centred design matrix.
func (lr *LinearRegression) Rank() int {
	return lr.rank
}

// GetParams returns the hyperparameters in scikit-learn naming.
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"fit_intercept": lr.fitIntercept,
	}
}

var _ model.Regressor = (*LinearRegression)(nil)
