// Package config loads the worker configuration from the environment and the
// per-environment TOML file. The resulting AppConfig is an explicit value
// passed into every component constructor; there are no process globals.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"sravz-backend/pkg/apperrors"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// AppConfig holds every setting the worker needs at boot.
type AppConfig struct {
	NodeEnv        string
	NSQHost        string
	NSQLookupdHost string
	MongoURI       string

	ContaboKey             string
	ContaboSecret          string
	ContaboBucket          string
	ContaboBucketKey       string
	ContaboObjectURLPrefix string
	S3Endpoint             string

	EODAPIKey       string
	EODAPIKey2      string
	DataProviderURL string

	// BackendTopic is the NSQ topic this worker consumes, read from
	// config.<NODE_ENV>.toml.
	BackendTopic string

	MaxInFlight     int
	HandlerTimeout  time.Duration
	StatusPort      int
	EnableTelemetry bool
}

type tomlFile struct {
	Config struct {
		BackendRustTopic string `toml:"backend_rust_topic"`
	} `toml:"config"`
}

// Load builds an AppConfig from .env (best effort), required environment
// variables and the config.<NODE_ENV>.toml file. Any missing required input
// yields a ConfigMissing error.
func Load() (*AppConfig, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &AppConfig{
		ContaboBucket:    "sravz",
		ContaboBucketKey: "rust-backend",
		S3Endpoint:       "usc1.contabostorage.com",
		DataProviderURL:  "https://eodhistoricaldata.com/",
		MaxInFlight:      GetIntEnv("MAX_IN_FLIGHT", 15),
		HandlerTimeout:   GetDurationEnv("HANDLER_TIMEOUT", 15*time.Minute),
		StatusPort:       GetIntEnv("STATUS_PORT", 0),
		EnableTelemetry:  GetBoolEnv("ENABLE_TELEMETRY", false),
	}

	var err error
	if cfg.NodeEnv, err = requireEnv("NODE_ENV"); err != nil {
		return nil, err
	}
	if cfg.NSQHost, err = requireEnv("NSQ_HOST"); err != nil {
		return nil, err
	}
	if cfg.NSQLookupdHost, err = requireEnv("NSQ_LOOKUPD_HOST"); err != nil {
		return nil, err
	}
	if cfg.MongoURI, err = requireEnv("MONGOLAB_URI"); err != nil {
		return nil, err
	}
	if cfg.EODAPIKey, err = requireEnv("EODHISTORICALDATA_API_KEY"); err != nil {
		return nil, err
	}
	if cfg.EODAPIKey2, err = requireEnv("EODHISTORICALDATA_API_KEY2"); err != nil {
		return nil, err
	}
	if cfg.ContaboKey, err = requireEnv("CONTABO_KEY"); err != nil {
		return nil, err
	}
	if cfg.ContaboSecret, err = requireEnv("CONTABO_SECRET"); err != nil {
		return nil, err
	}

	cfg.ContaboObjectURLPrefix = fmt.Sprintf(
		"https://%s/adc59f4bb6a74373a1ebd286a7b11b60:%s/%s/",
		cfg.S3Endpoint, cfg.ContaboBucket, cfg.ContaboBucketKey,
	)

	file := fmt.Sprintf("config.%s.toml", cfg.NodeEnv)
	var data tomlFile
	if _, err := toml.DecodeFile(file, &data); err != nil {
		return nil, apperrors.Wrap(apperrors.ConfigMissing, fmt.Sprintf("could not read config file %s", file), err)
	}
	if data.Config.BackendRustTopic == "" {
		return nil, apperrors.Newf(apperrors.ConfigMissing, "backend_rust_topic not set in %s", file)
	}
	cfg.BackendTopic = data.Config.BackendRustTopic

	return cfg, nil
}

func requireEnv(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", apperrors.Newf(apperrors.ConfigMissing, "environment variable %s not set", key)
}

// GetEnv returns the value of an environment variable or a default value if not set
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value if not set
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value if not set
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetDurationEnv returns the duration value of an environment variable or a default value if not set
func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
