package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	JWTIssuer   string
	JWTTTL      time.Duration
	CORSOrigins []string

	// SweepInterval is how often the allowance payout sweep runs.
	SweepInterval time.Duration

	// KafkaBrokers is optional; when empty, notifications go to the log.
	KafkaBrokers []string
	KafkaTopic   string

	StripeSecretKey string

	LNDHost         string
	LNDPort         int
	LNDCertPath     string
	LNDMacaroonPath string
}

// Load reads configuration from the environment and performs minimal
// validation.
func Load() (Config, error) {
	cfg := Config{
		Port:            fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:       strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:       fallback(os.Getenv("JWT_ISSUER"), "allowance-app"),
		CORSOrigins:     parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		KafkaTopic:      fallback(os.Getenv("KAFKA_TOPIC"), "allowance-notifications"),
		StripeSecretKey: strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		LNDHost:         fallback(os.Getenv("LND_HOST"), "localhost"),
		LNDPort:         parsePositiveInt(os.Getenv("LND_PORT"), 10009),
		LNDCertPath:     strings.TrimSpace(os.Getenv("LND_CERT_PATH")),
		LNDMacaroonPath: strings.TrimSpace(os.Getenv("LND_MACAROON_PATH")),
	}

	cfg.JWTTTL = time.Duration(parsePositiveInt(os.Getenv("JWT_TTL_MINUTES"), 60)) * time.Minute
	cfg.SweepInterval = time.Duration(parsePositiveInt(os.Getenv("SWEEP_INTERVAL_MINUTES"), 60)) * time.Minute

	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		cfg.KafkaBrokers = parseCSV(brokers)
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parsePositiveInt(value string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
		return n
	}
	return def
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
