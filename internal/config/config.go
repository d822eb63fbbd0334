package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port string

	// Auth
	LoomAPIKey string

	// Completion backend. Model, when set, overrides the model named in the
	// loaded document's generation settings.
	BackendURL    string
	BackendAPIKey string
	Model         string

	// Generation queue
	QueueSize int

	// Persistence. When TreeFile is set the server opens it at startup and
	// saves back to it by default.
	TreeFile string

	// Upload limits
	MaxUploadBytes int64

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		LoomAPIKey: os.Getenv("LOOM_API_KEY"),

		BackendURL:    envOr("BACKEND_URL", "http://localhost:8000"),
		BackendAPIKey: os.Getenv("BACKEND_API_KEY"),
		Model:         os.Getenv("MODEL"),

		QueueSize: envInt("QUEUE_SIZE", 16),

		TreeFile: os.Getenv("TREE_FILE"),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}

	return cfg
}

func (c Config) Validate() error {
	if c.LoomAPIKey == "" {
		return fmt.Errorf("LOOM_API_KEY is required")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
