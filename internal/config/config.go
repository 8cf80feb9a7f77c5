package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig               `yaml:"store" mapstructure:"store"`
	OCR      OCRConfig                 `yaml:"ocr" mapstructure:"ocr"`
	Patterns PatternsConfig            `yaml:"patterns" mapstructure:"patterns"`
	Defaults DefaultsConfig            `yaml:"defaults" mapstructure:"defaults"`
	Export   ExportConfig              `yaml:"export" mapstructure:"export"`
	Server   ServerConfig              `yaml:"server" mapstructure:"server"`
	Batch    BatchConfig               `yaml:"batch" mapstructure:"batch"`
	Gradient map[string]GradientConfig `yaml:"gradient" mapstructure:"gradient"`
	Log      LogConfig                 `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the record store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// OCRConfig configures document text extraction.
type OCRConfig struct {
	Provider        string        `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath   string        `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey      string        `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel    string        `yaml:"mistral_model" mapstructure:"mistral_model"`
	MistralEndpoint string        `yaml:"mistral_endpoint" mapstructure:"mistral_endpoint"`
	RateLimit       float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs     int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxFileMB       int           `yaml:"max_file_mb" mapstructure:"max_file_mb"`
	Retry           RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Breaker         BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// RetryConfig configures retries of remote text extraction.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// BreakerConfig configures the circuit breaker around remote extraction.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// PatternsConfig points at an optional file of extra extraction rules.
type PatternsConfig struct {
	ExtraFile string `yaml:"extra_file" mapstructure:"extra_file"`
}

// DefaultsConfig points at the user defaults override file.
type DefaultsConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// ExportConfig configures export files.
type ExportConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// BatchConfig configures batch extraction.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// GradientConfig overrides the reference points of one metric. Unset points
// keep their built-in value.
type GradientConfig struct {
	Worst   *float64 `yaml:"worst" mapstructure:"worst"`
	Neutral *float64 `yaml:"neutral" mapstructure:"neutral"`
	Best    *float64 `yaml:"best" mapstructure:"best"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEALMACHINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "dealmachine.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent", 4)
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.mistral_model", "mistral-ocr-latest")
	v.SetDefault("ocr.mistral_endpoint", "https://api.mistral.ai/v1/ocr")
	v.SetDefault("ocr.rate_limit", 1.0)
	v.SetDefault("ocr.timeout_secs", 120)
	v.SetDefault("ocr.max_file_mb", 50)
	v.SetDefault("ocr.retry.max_attempts", 3)
	v.SetDefault("ocr.retry.initial_backoff_ms", 500)
	v.SetDefault("ocr.retry.max_backoff_ms", 10000)
	v.SetDefault("ocr.breaker.failure_threshold", 3)
	v.SetDefault("ocr.breaker.reset_timeout_secs", 60)
	v.SetDefault("defaults.file", "user_defaults.yaml")
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes: "extract",
// "records", "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "extract", "records", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, "store.path is required for sqlite")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}

	if mode == "extract" || mode == "serve" {
		switch c.OCR.Provider {
		case "local", "":
		case "mistral", "chain":
			if c.OCR.MistralKey == "" {
				errs = append(errs, "ocr.mistral_api_key is required for provider "+c.OCR.Provider)
			}
		default:
			errs = append(errs, fmt.Sprintf("ocr.provider %q must be local, mistral or chain", c.OCR.Provider))
		}
		if c.OCR.MaxFileMB <= 0 {
			errs = append(errs, "ocr.max_file_mb must be > 0")
		}
		if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 32 {
			errs = append(errs, "batch.max_concurrent must be between 1 and 32")
		}
		switch c.Export.Format {
		case "json", "yaml", "xlsx":
		default:
			errs = append(errs, fmt.Sprintf("export.format %q must be json, yaml or xlsx", c.Export.Format))
		}
	}

	if mode == "serve" && c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
