// Package metrics implements regression error metrics over gonum vectors.
package metrics

import (
	"math"

	"github.com/pitwall-labs/lapcast/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func checkPair(op string, yTrue, yPred mat.Vector) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// MSE returns the mean squared error (1/n)·Σ(yTrue − yPred)².
func MSE(yTrue, yPred mat.Vector) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE returns the square root of MSE.
func RMSE(yTrue, yPred mat.Vector) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE returns the mean absolute error (1/n)·Σ|yTrue − yPred|.
func MAE(yTrue, yPred mat.Vector) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// MAEMatrix is MAE for n×1 column matrices as returned by Predict.
func MAEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, err := ColumnVector("MAEMatrix", yTrue)
	if err != nil {
		return 0, err
	}
	p, err := ColumnVector("MAEMatrix", yPred)
	if err != nil {
		return 0, err
	}
	return MAE(t, p)
}

// MaxError returns max|yTrue − yPred|.
func MaxError(yTrue, yPred mat.Vector) (float64, error) {
	n, err := checkPair("MaxError", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var worst float64
	for i := 0; i < n; i++ {
		worst = math.Max(worst, math.Abs(yTrue.AtVec(i)-yPred.AtVec(i)))
	}
	return worst, nil
}

// R2Score returns the coefficient of determination 1 − RSS/TSS. It fails
// when yTrue has no variance.
func R2Score(yTrue, yPred mat.Vector) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	values := make([]float64, n)
	for i := range values {
		values[i] = yTrue.AtVec(i)
	}
	yMean := stat.Mean(values, nil)

	var tss, rss float64
	for i := 0; i < n; i++ {
		tss += (values[i] - yMean) * (values[i] - yMean)
		diff := values[i] - yPred.AtVec(i)
		rss += diff * diff
	}

	if tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}

// ColumnVector views an n×1 matrix as a vector.
func ColumnVector(op string, m mat.Matrix) (mat.Vector, error) {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	if c != 1 {
		return nil, errors.NewDimensionError(op, 1, c, 1)
	}
	if v, ok := m.(mat.Vector); ok {
		return v, nil
	}
	return mat.NewVecDense(r, mat.Col(nil, 0, m)), nil
}
