package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	LogLevel string

	GeminiAPIKey string
	GeminiModel  string

	// StoreBackend selects the customer row store: "sheets" or "postgres".
	StoreBackend    string
	SpreadsheetKey  string
	SheetName       string
	GoogleCredsFile string
	GoogleCredsJSON string
	DatabaseURL     string

	NatsURL   string
	NatsToken string
}

func Load() Config {
	// Best-effort: a missing .env is the normal production case.
	_ = godotenv.Load()

	return Config{
		Port:            envInt("PAYBOT_PORT", 8650),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		GeminiAPIKey:    envStr("GEMINI_API_KEY", ""),
		GeminiModel:     envStr("PAYBOT_MODEL", "gemini-1.5-flash"),
		StoreBackend:    envStr("STORE_BACKEND", "sheets"),
		SpreadsheetKey:  envStr("SPREADSHEET_KEY", ""),
		SheetName:       envStr("SHEET_NAME", "Sheet1"),
		GoogleCredsFile: envStr("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredsJSON: envStr("GOOGLE_CREDENTIALS_JSON", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
	}
}

func envStr(key, fallback string) string {
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
