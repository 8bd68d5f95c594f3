// Package model defines the capability interfaces shared by the estimators
// and the fitted-state bookkeeping they embed.
package model

import "gonum.org/v1/gonum/mat"

// Fitter learns from a feature matrix X (n×p) and a target column y (n×1).
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor returns an n×1 prediction column for X.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator is a supervised model.
type Estimator interface {
	Fitter
	Predictor
}
