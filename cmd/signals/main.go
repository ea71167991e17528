package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Alias1177/TickPredictor/config"
	"github.com/Alias1177/TickPredictor/internal/notify"
	decider "github.com/Alias1177/TickPredictor/internal/signal"
)

// The signals daemon is the consumer side of the prediction file: it
// polls the snapshot written by the predictor, applies the decision
// policy and publishes the trade intent for the executor.
func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	notifier, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telegram notifier")
	}
	if notifier == nil {
		log.Info().Msg("telegram not configured, signals will only be written to disk")
	}

	d := decider.New(decider.DefaultThresholds())

	interval := time.Duration(cfg.SignalPollInterval) * time.Second
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().
		Str("prediction_file", cfg.PredictionFile).
		Str("signal_file", cfg.SignalFile).
		Dur("interval", interval).
		Msg("signal daemon started")

	for {
		if err := limiter.Wait(ctx); err != nil {
			log.Info().Msg("signal daemon stopped")
			return
		}

		pred, err := decider.LoadSnapshot(cfg.PredictionFile)
		if err != nil {
			log.Error().Err(err).Msg("failed to read prediction snapshot")
			continue
		}

		intent := d.Decide(pred, cfg.Symbol)

		strength := ""
		if pred != nil {
			strength = pred.ConsensusStrength
		}
		if err := decider.SaveIntent(intent, strength, cfg.SignalFile); err != nil {
			log.Error().Err(err).Msg("failed to publish trade intent")
			continue
		}

		if intent.Actionable() {
			if err := notifier.SendIntent(intent); err != nil {
				log.Error().Err(err).Msg("failed to notify")
			}
		}
	}
}
