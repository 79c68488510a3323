package config

import (
	"fmt"
	"os"
	"time"
)

// ApplyEnv overrides config fields from APP_ADDR, APP_MODE, DEVELOPMENT,
// JWT_SECRET, JWT_SECRET_FILE, SESSION_TTL and LOG_FILE.
func ApplyEnv(config *Config) error {
	if addr, ok := os.LookupEnv("APP_ADDR"); ok {
		config.Addr = addr
	}
	if mode, ok := os.LookupEnv("APP_MODE"); ok {
		config.Mode = mode
	}
	if development, ok := os.LookupEnv("DEVELOPMENT"); ok {
		if development != "0" {
			config.Mode = "development"
		} else {
			config.Mode = "production"
		}
	}
	if secret, ok := os.LookupEnv("JWT_SECRET"); ok {
		config.Jwt.Secret = secret
	}
	if secretPath, ok := os.LookupEnv("JWT_SECRET_FILE"); ok {
		config.Jwt.SecretPath = secretPath
	}
	if ttl, ok := os.LookupEnv("SESSION_TTL"); ok {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("unable to parse SESSION_TTL: %w", err)
		}
		config.Session.TTL = Duration{d}
	}
	if logFile, ok := os.LookupEnv("LOG_FILE"); ok {
		config.Log.File = logFile
	}
	return nil
}
