package pipeline

import (
	"context"

	"github.com/pitwall-labs/lapcast/internal/features"
	"github.com/pitwall-labs/lapcast/internal/session"
	"github.com/pitwall-labs/lapcast/pkg/errors"
	"github.com/pitwall-labs/lapcast/pkg/log"
)

// Event selects a race weekend.
type Event struct {
	Year  int
	Round int
}

// RunConfig selects the training and evaluation weekends.
type RunConfig struct {
	Train  Event
	Target Event
	Model  TrainConfig
}

// Observer receives each stage's output as soon as it is available, so the
// training error is reported even if a later stage fails.
type Observer interface {
	Trained(train Event, res *TrainResult) error
	Compared(target Event, cmp *Comparison) error
}

// Result collects every stage output of a run.
type Result struct {
	Training    *TrainResult
	Predictions []PredictionRecord
	Comparison  *Comparison
}

// Runner executes the train, predict and compare stages in order.
type Runner struct {
	loader *session.Loader
	logger log.Logger
}

// NewRunner creates a Runner reading sessions through loader.
func NewRunner(loader *session.Loader) *Runner {
	return &Runner{
		loader: loader,
		logger: log.GetLoggerWithName("pipeline"),
	}
}

// Run fits the model on cfg.Train, predicts cfg.Target's race from its
// qualifying and scores the prediction. The first failure aborts the run.
func (r *Runner) Run(ctx context.Context, cfg RunConfig, obs Observer) (*Result, error) {
	quali, err := r.fastest(ctx, cfg.Train, session.Qualifying)
	if err != nil {
		return nil, err
	}
	race, err := r.fastest(ctx, cfg.Train, session.Race)
	if err != nil {
		return nil, err
	}

	examples := features.Join(quali, race)
	r.warnDropped("Drivers missing from the training race", cfg.Train, features.Unmatched(quali, race))
	r.warnDropped("Drivers missing from the training qualifying", cfg.Train, features.Unmatched(race, quali))
	r.logger.Info("Training set assembled",
		log.SeasonKey, cfg.Train.Year,
		log.RoundKey, cfg.Train.Round,
		log.SamplesKey, len(examples),
	)

	training, err := Train(examples, cfg.Model)
	if err != nil {
		return nil, errors.Wrapf(err, "train on %d round %d", cfg.Train.Year, cfg.Train.Round)
	}
	res := &Result{Training: training}
	if err := obs.Trained(cfg.Train, training); err != nil {
		return res, err
	}

	targetQuali, err := r.fastest(ctx, cfg.Target, session.Qualifying)
	if err != nil {
		return res, err
	}
	if res.Predictions, err = Predict(training.Model, targetQuali); err != nil {
		return res, err
	}
	r.logger.Debug("Race laps predicted",
		log.PhaseKey, log.PhaseInference,
		log.DriversKey, len(res.Predictions),
	)

	targetRace, err := r.fastest(ctx, cfg.Target, session.Race)
	if err != nil {
		return res, err
	}
	if res.Comparison, err = Compare(res.Predictions, targetRace); err != nil {
		return res, errors.Wrapf(err, "compare %d round %d", cfg.Target.Year, cfg.Target.Round)
	}
	r.warnDropped("Predicted drivers without a race lap", cfg.Target, res.Comparison.Unmatched)

	if err := obs.Compared(cfg.Target, res.Comparison); err != nil {
		return res, err
	}
	return res, nil
}

// fastest loads a session and reduces it to one fastest lap per driver.
func (r *Runner) fastest(ctx context.Context, ev Event, t session.SessionType) ([]features.DriverFastestLap, error) {
	s, err := r.loader.Load(ctx, ev.Year, ev.Round, t)
	if err != nil {
		return nil, err
	}
	if missing := features.NoTimedLap(s.Laps); len(missing) > 0 {
		r.logger.Warn("Drivers without a timed lap",
			log.SeasonKey, ev.Year,
			log.RoundKey, ev.Round,
			log.SessionKey, string(t),
			log.DroppedKey, missing,
		)
	}
	return features.FastestPerDriver(s.Laps), nil
}

func (r *Runner) warnDropped(msg string, ev Event, drivers []string) {
	if len(drivers) == 0 {
		return
	}
	r.logger.Warn(msg,
		log.SeasonKey, ev.Year,
		log.RoundKey, ev.Round,
		log.DroppedKey, drivers,
	)
}
