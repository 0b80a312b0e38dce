// Package config loads the process-wide configuration once at startup:
// defaults, then an optional YAML file, then environment overrides. The
// resulting value is treated as immutable for the lifetime of the process.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	Redis       RedisConfig       `yaml:"redis"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ServerConfig holds HTTP boundary settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxUploadBytes  int64         `yaml:"maxUploadBytes"`
	StaticDir       string        `yaml:"staticDir"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
}

// StorageConfig locates the scratch directory for uploads.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// RecognitionConfig controls the OCR stage.
type RecognitionConfig struct {
	Language  string        `yaml:"language"`
	Timeout   time.Duration `yaml:"timeout"`
	Grayscale bool          `yaml:"grayscale"`
}

// AnalysisConfig identifies the language-model service. Token is a secret and
// is normally supplied through the environment.
type AnalysisConfig struct {
	Token    string        `yaml:"token"`
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RedisConfig enables the pipeline state tracker when Addr is set.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	StatusTTL time.Duration `yaml:"statusTTL"`
}

// LoggingConfig controls the zap level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing else is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":5000",
			ShutdownTimeout: 15 * time.Second,
			MaxUploadBytes:  10 << 20,
			AllowedOrigins:  []string{"*"},
		},
		Storage: StorageConfig{
			Dir: "/tmp/uploads",
		},
		Recognition: RecognitionConfig{
			Language: "eng",
			Timeout:  2 * time.Minute,
		},
		Analysis: AnalysisConfig{
			Model:   "gpt-4o",
			Timeout: 60 * time.Second,
		},
		Redis: RedisConfig{
			StatusTTL: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Analysis.Token) == "" {
		errs = append(errs, errors.New("analysis token is required (OPENAI_API_KEY)"))
	}
	if strings.TrimSpace(c.Analysis.Model) == "" {
		errs = append(errs, errors.New("analysis model is required"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.maxUploadBytes must be positive"))
	}
	if c.Storage.Dir == "" {
		errs = append(errs, errors.New("storage.dir is required"))
	}
	if c.Recognition.Timeout < 0 || c.Analysis.Timeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	return errors.Join(errs...)
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		cfg.Server.StaticDir = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("OCR_LANGUAGE"); v != "" {
		cfg.Recognition.Language = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Analysis.Token = v
	}
	if v := os.Getenv("OPENAI_API_ENDPOINT"); v != "" {
		cfg.Analysis.Endpoint = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.Analysis.Model = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	var errs []error
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		errs = append(errs, envErr("MAX_UPLOAD_BYTES", err))
		if err == nil {
			cfg.Server.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("OCR_GRAYSCALE"); v != "" {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envErr("OCR_GRAYSCALE", err))
		if err == nil {
			cfg.Recognition.Grayscale = b
		}
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envErr("METRICS_ENABLED", err))
		if err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"OCR_TIMEOUT", &cfg.Recognition.Timeout},
		{"ANALYSIS_TIMEOUT", &cfg.Analysis.Timeout},
		{"STATUS_TTL", &cfg.Redis.StatusTTL},
		{"SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		errs = append(errs, envErr(d.key, err))
		if err == nil {
			*d.dst = parsed
		}
	}
	return errors.Join(errs...)
}

func envErr(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("invalid %s: %w", key, err)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
