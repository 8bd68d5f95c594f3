// Command lapcast predicts race fastest laps from qualifying and scores the
// prediction against the real race.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/pitwall-labs/lapcast/internal/cache"
	"github.com/pitwall-labs/lapcast/internal/config"
	"github.com/pitwall-labs/lapcast/internal/openf1"
	"github.com/pitwall-labs/lapcast/internal/pipeline"
	"github.com/pitwall-labs/lapcast/internal/report"
	"github.com/pitwall-labs/lapcast/internal/session"
	"github.com/pitwall-labs/lapcast/pkg/log"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "c", "./lapcast.yml", "config path")
}

func main() {
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lapcast: %v\n", err)
		os.Exit(1)
	}
	if err := log.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
		fmt.Fprintf(os.Stderr, "lapcast: %v\n", err)
		os.Exit(1)
	}
	logger := log.GetLoggerWithName("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("Run failed", log.ErrAttrKey, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	opts := []openf1.Option{openf1.WithTimeout(cfg.OpenF1.Timeout)}
	if !cfg.Cache.Disabled {
		store, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		log.GetLoggerWithName("main").Debug("Response cache opened", log.CachePath, store.Path())
		opts = append(opts, openf1.WithCache(store))
	}

	client := openf1.NewClient(cfg.OpenF1.BaseURL, opts...)
	runner := pipeline.NewRunner(session.NewLoader(client))

	runCfg := pipeline.RunConfig{
		Train:  pipeline.Event{Year: cfg.Train.Year, Round: cfg.Train.Round},
		Target: pipeline.Event{Year: cfg.Target.Year, Round: cfg.Target.Round},
		Model: pipeline.TrainConfig{
			Kind:         cfg.Model.Kind,
			NEstimators:  cfg.Model.NEstimators,
			LearningRate: cfg.Model.LearningRate,
			MaxDepth:     cfg.Model.MaxDepth,
			Subsample:    cfg.Model.Subsample,
			TestSize:     cfg.Model.TestSize,
			Seed:         cfg.Model.Seed,
		},
	}

	res, err := runner.Run(ctx, runCfg, report.NewText(os.Stdout))
	if err != nil {
		return err
	}

	if cfg.Report.PlotPath != "" {
		if err := report.Chart(cfg.Report.PlotPath, runCfg.Target, res.Comparison); err != nil {
			return err
		}
		log.GetLoggerWithName("main").Info("Chart written", "path", cfg.Report.PlotPath)
	}
	return nil
}
