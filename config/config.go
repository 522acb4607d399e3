// Package config loads service settings from config.yaml, an optional .env
// file and VOICESCREEN_* environment variables, in that order of precedence
// (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const envPrefix = "VOICESCREEN_"

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		JSON       bool   `yaml:"json"`
	} `yaml:"log"`
	Model struct {
		Type   string `yaml:"type"`
		Path   string `yaml:"path"`
		Schema string `yaml:"schema"`
		Watch  bool   `yaml:"watch"`
	} `yaml:"model"`
	Storage struct {
		VisitorFile  string `yaml:"visitor_file"`
		AuditBackend string `yaml:"audit_backend"`
		AuditFile    string `yaml:"audit_file"`
		SQLitePath   string `yaml:"sqlite_path"`
	} `yaml:"storage"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
	RateLimit struct {
		PredictPerSecond float64 `yaml:"predict_per_second"`
		Burst            int     `yaml:"burst"`
	} `yaml:"ratelimit"`
	Support struct {
		Email string `yaml:"email"`
		URL   string `yaml:"url"`
	} `yaml:"support"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.Http.Port = 8501
	cfg.Http.Timeout = 30 * time.Second
	cfg.Http.AllowedOrigins = []string{"*"}
	cfg.Log.Level = "info"
	cfg.Log.MaxSizeMB = 50
	cfg.Log.MaxBackups = 3
	cfg.Log.MaxAgeDays = 28
	cfg.Model.Type = "decision_tree"
	cfg.Model.Path = "models/parkinsons_model.json"
	cfg.Model.Schema = "voice9"
	cfg.Model.Watch = true
	cfg.Storage.VisitorFile = "visitor_data.gob"
	cfg.Storage.AuditBackend = "csv"
	cfg.Storage.AuditFile = "prediction_log.csv"
	cfg.Storage.SQLitePath = "predictions.db"
	cfg.Cache.Size = 256
	cfg.RateLimit.PredictPerSecond = 5
	cfg.RateLimit.Burst = 10
	return cfg
}

// Load reads path on top of the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Model.Path == "" {
		return errors.New("model.path is required")
	}
	switch c.Storage.AuditBackend {
	case "csv", "sqlite":
	default:
		return fmt.Errorf("storage.audit_backend must be csv or sqlite, got %q", c.Storage.AuditBackend)
	}
	if c.RateLimit.PredictPerSecond < 0 || c.RateLimit.Burst < 0 {
		return errors.New("ratelimit values must not be negative")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	collect(envOverrideInt(&cfg.Http.Port, "PORT"))
	collect(envOverrideDuration(&cfg.Http.Timeout, "HTTP_TIMEOUT"))
	if origins := os.Getenv(envPrefix + "ALLOWED_ORIGINS"); origins != "" {
		cfg.Http.AllowedOrigins = splitList(origins)
	}
	envOverride(&cfg.Log.Level, "LOG_LEVEL")
	envOverride(&cfg.Log.File, "LOG_FILE")
	collect(envOverrideBool(&cfg.Log.JSON, "LOG_JSON"))
	envOverride(&cfg.Model.Type, "MODEL_TYPE")
	envOverride(&cfg.Model.Path, "MODEL_PATH")
	envOverride(&cfg.Model.Schema, "MODEL_SCHEMA")
	collect(envOverrideBool(&cfg.Model.Watch, "MODEL_WATCH"))
	envOverride(&cfg.Storage.VisitorFile, "VISITOR_FILE")
	envOverride(&cfg.Storage.AuditBackend, "AUDIT_BACKEND")
	envOverride(&cfg.Storage.AuditFile, "AUDIT_FILE")
	envOverride(&cfg.Storage.SQLitePath, "SQLITE_PATH")
	collect(envOverrideInt(&cfg.Cache.Size, "CACHE_SIZE"))
	collect(envOverrideFloat(&cfg.RateLimit.PredictPerSecond, "PREDICT_RATE"))
	collect(envOverrideInt(&cfg.RateLimit.Burst, "PREDICT_BURST"))
	envOverride(&cfg.Support.Email, "SUPPORT_EMAIL")
	envOverride(&cfg.Support.URL, "SUPPORT_URL")

	return errors.Join(errs...)
}

func envOverride(target *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*target = v
	}
}

func envOverrideInt(target *int, key string) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*target = n
	return nil
}

func envOverrideFloat(target *float64, key string) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*target = f
	return nil
}

func envOverrideBool(target *bool, key string) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*target = b
	return nil
}

func envOverrideDuration(target *time.Duration, key string) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*target = d
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
