package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/TickPredictor/internal/database"
)

// Config holds all application configuration
type Config struct {
	Database database.ConnectionParams

	Symbol          string // traded symbol, e.g. EURUSD
	TrainingDays    int    // calendar days of per-day tables to pull
	InferenceWindow int    // most recent ticks used for a live prediction

	ModelsDir      string // ensemble artifact directory
	PredictionFile string // latest-prediction snapshot path
	SignalFile     string // trade-intent snapshot path

	LogLevel           string
	SignalPollInterval int // seconds between decider polls

	TelegramBotToken string
	TelegramChatID   int64
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := &Config{
		Database: database.ConnectionParams{
			Host:     getEnvWithDefault("DB_HOST", "localhost"),
			Port:     getEnvWithDefault("DB_PORT", "5432"),
			User:     getEnvWithDefault("DB_USER", "mt5user"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   getEnvWithDefault("DB_NAME", "trading_bot"),
			SSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),
		},
		Symbol:             getEnvWithDefault("SYMBOL", "EURUSD"),
		TrainingDays:       getEnvIntWithDefault("TRAINING_DAYS", 7),
		InferenceWindow:    getEnvIntWithDefault("INFERENCE_WINDOW", 50),
		ModelsDir:          getEnvWithDefault("MODELS_DIR", "models"),
		PredictionFile:     getEnvWithDefault("PREDICTION_FILE", "latest_prediction.json"),
		SignalFile:         getEnvWithDefault("SIGNAL_FILE", "current_trading_signal.json"),
		LogLevel:           getEnvWithDefault("LOG_LEVEL", "info"),
		SignalPollInterval: getEnvIntWithDefault("SIGNAL_POLL_INTERVAL", 60),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:     getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0),
	}

	return cfg, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
