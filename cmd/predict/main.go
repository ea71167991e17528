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

	// Fail early with a clear message when the artifact set is broken.
	present := ml.CheckArtifacts(cfg.ModelsDir)
	missing := 0
	for name, ok := range present {
		if !ok {
			log.Warn().Str("artifact", name).Msg("artifact missing")
			missing++
		}
	}
	if !present["scaler"] || missing == len(present) {
		log.Fatal().Str("dir", cfg.ModelsDir).Msg("no usable model artifacts, run the trainer first")
	}

	ensemble := ml.NewEnsemble()
	if err := ensemble.Load(cfg.ModelsDir); err != nil {
		log.Fatal().Err(err).Msg("failed to load ensemble")
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to tick store")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repo := repository.New(db)
	pred := predictor.New(repo, ensemble, cfg.ModelsDir, cfg.InferenceWindow)

	result, err := pred.Predict(ctx, cfg.Symbol)
	if err != nil {
		log.Fatal().Err(err).Msg("prediction failed")
	}
	if result == nil {
		log.Warn().Str("symbol", cfg.Symbol).Msg("no signal this round")
		os.Exit(0)
	}

	if err := predictor.SaveSnapshot(result, cfg.PredictionFile); err != nil {
		log.Fatal().Err(err).Msg("failed to publish prediction snapshot")
	}

	log.Info().
		Str("symbol", cfg.Symbol).
		Str("consensus", result.Consensus).
		Str("strength", result.ConsensusStrength).
		Float64("avg_confidence", result.AvgConfidence).
		Str("file", cfg.PredictionFile).
		Msg("prediction published")
}
