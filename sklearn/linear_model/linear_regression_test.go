package linear_model

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"

	"github.com/pitwall-labs/lapcast/pkg/errors"
)

func TestLinearRegression_ExactLine(t *testing.T) {
	// race = 1.03·qualifying + 1.5
	X := mat.NewDense(5, 1, []float64{76, 77, 78.5, 80, 81.2})
	y := mat.NewDense(5, 1, nil)
	for i := 0; i < 5; i++ {
		y.Set(i, 0, 1.03*X.At(i, 0)+1.5)
	}

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	if !scalar.EqualWithinAbs(lr.Coef()[0], 1.03, 1e-9) {
		t.Errorf("coef = %v, want 1.03", lr.Coef())
	}
	if !scalar.EqualWithinAbs(lr.Intercept(), 1.5, 1e-7) {
		t.Errorf("intercept = %v, want 1.5", lr.Intercept())
	}

	pred, err := lr.Predict(mat.NewDense(1, 1, []float64{79}))
	if err != nil {
		t.Fatal(err)
	}
	if got := pred.At(0, 0); math.Abs(got-(1.03*79+1.5)) > 1e-7 {
		t.Errorf("Predict(79) = %v", got)
	}

	r2, err := lr.Score(X, y)
	if err != nil || r2 < 1-1e-9 {
		t.Errorf("Score() = %v, %v", r2, err)
	}
}

func TestLinearRegression_NoVariance(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{90, 90, 90})
	y := mat.NewDense(3, 1, []float64{94, 95, 96})

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	if lr.Rank() != 0 {
		t.Errorf("Rank() = %d, want 0", lr.Rank())
	}
	pred, _ := lr.Predict(mat.NewDense(1, 1, []float64{91}))
	if math.Abs(pred.At(0, 0)-95) > 1e-12 {
		t.Errorf("constant design should predict mean, got %v", pred.At(0, 0))
	}
}

func TestLinearRegression_WithoutIntercept(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{2, 4, 6})

	lr := NewLinearRegression(WithFitIntercept(false))
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinAbs(lr.Coef()[0], 2, 1e-12) || lr.Intercept() != 0 {
		t.Errorf("coef %v intercept %v", lr.Coef(), lr.Intercept())
	}
	if lr.GetParams()["fit_intercept"] != false {
		t.Error("GetParams should report fit_intercept=false")
	}
}

func TestLinearRegression_Errors(t *testing.T) {
	lr := NewLinearRegression()

	_, err := lr.Predict(mat.NewDense(1, 1, []float64{1}))
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFittedError, got %v", err)
	}

	if err := lr.Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(3, 1, nil)); err == nil {
		t.Error("expected dimension error")
	}
	if err := lr.Fit(mat.NewDense(2, 1, []float64{1, math.Inf(1)}), mat.NewDense(2, 1, nil)); err == nil {
		t.Error("expected numerical error for Inf input")
	}
}
