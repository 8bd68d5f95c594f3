// Package lapcast predicts Formula 1 race fastest laps from qualifying.
//
// A gradient-boosted regression model is trained on one weekend's qualifying
// and race fastest laps, applied to a later weekend's qualifying, and scored
// against that weekend's race with the mean absolute error.
//
// # Layout
//
//   - cmd/lapcast: the command line entry point
//   - internal/openf1, internal/cache: OpenF1 client with a bbolt response cache
//   - internal/session: lap records and the session loader
//   - internal/features: fastest lap per driver and the training set join
//   - internal/pipeline: train, predict and compare
//   - internal/report: text table and PNG chart
//   - sklearn/tree, sklearn/ensemble, sklearn/linear_model: the estimators
//   - sklearn/model_selection, metrics: splitting and error metrics
//   - pkg/errors, pkg/log: error types and structured logging
//
// # Quick Start
//
//	go run ./cmd/lapcast -c lapcast.yml
//
// Without a config file the 2024 Australian Grand Prix is used for training
// and the 2025 one for evaluation. The output looks like
//
//	Training error (MAE): 0.42 s
//
//	--- 2025 Fastest Lap Predictions vs Real ---
//	...
//	2025 Prediction Error (MAE): 1.31 s
//
// See examples/offline for the same stages on synthetic data.
package lapcast
