package model

import (
	"gonum.org/v1/gonum/mat"
)

// Scorer computes a goodness-of-fit score, R² for regressors.
type Scorer interface {
	Score(X, y mat.Matrix) (float64, error)
}

// Regressor is the contract the lap time pipeline trains against.
type Regressor interface {
	Estimator
	Scorer
}

// ParameterGetter exposes hyperparameters in scikit-learn naming.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}
