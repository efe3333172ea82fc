// Package config reads the site's settings from the environment. Values
// come from the process environment or a .env file loaded by the caller;
// anything unset falls back to a development default.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full set of runtime settings for the web server.
type Config struct {
	Port    string
	GinMode string

	DatabasePath        string
	ContentPath         string
	ModelsDir           string
	CompressedModelsDir string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	ToEmail  string

	AdminUsername string
	AdminPassword string

	VisitorRetention time.Duration

	LogLevel  string
	LogFormat string

	// ResetFrames is the length of the camera reset animation.
	ResetFrames int
	// MobileBreakpoint is the viewport width (px) below which 3D scenes are
	// replaced with their static fallback.
	MobileBreakpoint int
}

// Getenv matches os.Getenv and lets tests supply their own environment.
type Getenv func(string) string

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads the configuration through getenv.
func LoadFrom(getenv Getenv) (*Config, error) {
	str := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:                str("PORT", "8080"),
		GinMode:             str("GIN_MODE", ""),
		DatabasePath:        str("DATABASE_PATH", "portfolio.db"),
		ContentPath:         str("CONTENT_PATH", ""),
		ModelsDir:           str("MODELS_DIR", "public/models"),
		CompressedModelsDir: str("COMPRESSED_MODELS_DIR", "public/models-compressed"),
		SMTPHost:            str("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:            str("SMTP_PORT", "587"),
		SMTPUser:            str("SMTP_USER", ""),
		SMTPPass:            str("SMTP_PASS", ""),
		ToEmail:             str("TO_EMAIL", ""),
		AdminUsername:       str("ADMIN_USERNAME", "admin"),
		AdminPassword:       str("ADMIN_PASSWORD", "admin123"),
		LogLevel:            strings.ToLower(str("LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(str("LOG_FORMAT", "text")),
	}

	var errs []error

	retention, err := time.ParseDuration(str("VISITOR_RETENTION", "8760h"))
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("VISITOR_RETENTION: %w", err))
	case retention <= 0:
		errs = append(errs, fmt.Errorf("VISITOR_RETENTION: must be positive, got %s", retention))
	}
	cfg.VisitorRetention = retention

	cfg.ResetFrames, err = positiveInt(str("RESET_FRAMES", "60"))
	if err != nil {
		errs = append(errs, fmt.Errorf("RESET_FRAMES: %w", err))
	}
	cfg.MobileBreakpoint, err = positiveInt(str("MOBILE_BREAKPOINT", "768"))
	if err != nil {
		errs = append(errs, fmt.Errorf("MOBILE_BREAKPOINT: %w", err))
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT: %q is not a number", cfg.Port))
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT: must be 'text' or 'json', got %q", cfg.LogFormat))
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL: must be 'debug', 'info', 'warn', or 'error', got %q", cfg.LogLevel))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// UsingDefaultAdmin reports whether the admin login still has the
// development credentials.
func (c *Config) UsingDefaultAdmin() bool {
	return c.AdminUsername == "admin" && c.AdminPassword == "admin123"
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
