// Package config loads runtime configuration from the environment, with an
// optional .env.local overlay for development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every runtime knob of the service.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// Model is the Gemini model used for reasoning and normalization.
	Model string

	// TransactionsURI is where the canonical CSV lives: a local path or a
	// gs://bucket/object URI.
	TransactionsURI string

	// UploadDir receives raw uploaded files before normalization.
	UploadDir string

	// QueueWorkers is the number of concurrent normalization workers.
	QueueWorkers int
}

// Load reads configuration, preferring real environment variables over the
// .env.local file. Missing values fall back to development defaults.
func Load() (Config, error) {
	// Best effort; the file only exists in development.
	_ = godotenv.Load(".env.local")

	cfg := Config{
		Port:            getenv("PORT", "8080"),
		Model:           getenv("GEMINI_MODEL", ""),
		TransactionsURI: getenv("TRANSACTIONS_URI", "data/transactions.csv"),
		UploadDir:       getenv("UPLOAD_DIR", "data/uploads"),
		QueueWorkers:    1,
	}

	if v := os.Getenv("QUEUE_WORKERS"); v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil || workers < 1 {
			return Config{}, fmt.Errorf("invalid QUEUE_WORKERS %q", v)
		}
		cfg.QueueWorkers = workers
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
