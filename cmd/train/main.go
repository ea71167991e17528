package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/TickPredictor/config"
	"github.com/Alias1177/TickPredictor/internal/database"
	"github.com/Alias1177/TickPredictor/internal/ml"
	"github.com/Alias1177/TickPredictor/internal/predictor"
	"github.com/Alias1177/TickPredictor/internal/repository"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to tick store")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	repo := repository.New(db)
	ensemble := ml.NewEnsemble()
	pred := predictor.New(repo, ensemble, cfg.ModelsDir, cfg.InferenceWindow)

	report, err := pred.Train(ctx, cfg.Symbol, cfg.TrainingDays)
	if err != nil {
		log.Fatal().Err(err).Msg("training failed")
	}
	if report == nil {
		log.Warn().Str("symbol", cfg.Symbol).Msg("not enough data to train, nothing persisted")
		os.Exit(1)
	}

	best := ""
	for name, acc := range report.Accuracies {
		log.Info().Str("model", name).Float64("accuracy", acc).Msg("model result")
		if best == "" || acc > report.Accuracies[best] {
			best = name
		}
	}

	log.Info().
		Str("symbol", cfg.Symbol).
		Int("ticks", report.Ticks).
		Int("samples", report.Samples).
		Str("source", report.Source).
		Str("best_model", best).
		Str("models_dir", cfg.ModelsDir).
		Msg("training complete, artifacts persisted")
}
