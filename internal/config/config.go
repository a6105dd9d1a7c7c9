package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPAddr         = ":8080"
	defaultJWTSecret        = "change-me-jwt-secret"
	defaultJWTTTL           = "24h"
	defaultVendorBaseURL    = "https://dev-vanilla.edviron.com/erp"
	defaultVendorTimeout    = "15s"
	defaultRetryAttempts    = "3"
	defaultRetryBaseDelay   = "500ms"
	defaultRetryMaxDelay    = "5s"
	defaultWebhookRetries   = "3"
	defaultWebhookRetention = "720h" // 30 days
)

// Config is the process-wide runtime configuration, loaded once at startup
// and passed down by reference; no package-level mutable state.
type Config struct {
	AppEnv      string
	HTTPAddr    string
	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration

	VendorBaseURL    string
	VendorSigningKey string
	VendorAPIKey     string
	VendorTimeout    time.Duration

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	WebhookSecret     string
	WebhookMaxRetries int
	WebhookRetention  time.Duration

	CORSAllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = getEnv("HTTP_ADDR", defaultHTTPAddr)
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	cfg.VendorBaseURL = strings.TrimRight(getEnv("VENDOR_BASE_URL", defaultVendorBaseURL), "/")
	cfg.VendorSigningKey = strings.TrimSpace(os.Getenv("VENDOR_SIGNING_KEY"))
	cfg.VendorAPIKey = strings.TrimSpace(os.Getenv("VENDOR_API_KEY"))

	cfg.WebhookSecret = strings.TrimSpace(os.Getenv("WEBHOOK_SECRET"))

	if extra := os.Getenv("CORS_ALLOWED_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.VendorTimeout, err = parseDurationEnv("VENDOR_TIMEOUT", defaultVendorTimeout); err != nil {
		return nil, err
	}
	if cfg.RetryBaseDelay, err = parseDurationEnv("VENDOR_RETRY_BASE_DELAY", defaultRetryBaseDelay); err != nil {
		return nil, err
	}
	if cfg.RetryMaxDelay, err = parseDurationEnv("VENDOR_RETRY_MAX_DELAY", defaultRetryMaxDelay); err != nil {
		return nil, err
	}
	if cfg.WebhookRetention, err = parseDurationEnv("WEBHOOK_RETENTION", defaultWebhookRetention); err != nil {
		return nil, err
	}
	if cfg.RetryMaxAttempts, err = parseIntEnv("VENDOR_RETRY_MAX_ATTEMPTS", defaultRetryAttempts); err != nil {
		return nil, err
	}
	if cfg.WebhookMaxRetries, err = parseIntEnv("WEBHOOK_MAX_RETRIES", defaultWebhookRetries); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.VendorTimeout <= 0 {
		return fmt.Errorf("VENDOR_TIMEOUT must be > 0")
	}
	if cfg.RetryMaxAttempts < 1 {
		return fmt.Errorf("VENDOR_RETRY_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.WebhookMaxRetries < 0 {
		return fmt.Errorf("WEBHOOK_MAX_RETRIES must be >= 0")
	}
	if cfg.WebhookRetention <= 0 {
		return fmt.Errorf("WEBHOOK_RETENTION must be > 0")
	}
	return nil
}

func getEnv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(name, def string) (time.Duration, error) {
	raw := getEnv(name, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", name, raw, err)
	}
	return d, nil
}

func parseIntEnv(name, def string) (int, error) {
	raw := getEnv(name, def)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", name, raw, err)
	}
	return n, nil
}
