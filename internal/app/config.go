package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all the necessary configuration for an App instance to run.
// Fields with an env tag take their default from the environment; the CLI
// overrides them.
type Config struct {
	PagePath   string // "-" reads stdin
	OutputPath string `env:"LOOM_OUTPUT"` // "" or "-" writes to the app's output

	ManifestPaths   []string `env:"LOOM_MANIFESTS" envSeparator:","`
	SkipCatalog     bool     `env:"LOOM_SKIP_CATALOG"`
	ContentSelector string   `env:"LOOM_CONTENT_SELECTOR"`

	FetchAssets  bool          `env:"LOOM_FETCH_ASSETS"`
	FetchTimeout time.Duration `env:"LOOM_FETCH_TIMEOUT" envDefault:"10s"`

	Steps              []int  `env:"LOOM_STEPS" envSeparator:","`
	StepSourceURL      string `env:"LOOM_STEP_SOURCE_URL"`
	StepEvent          string `env:"LOOM_STEP_EVENT" envDefault:"story:step"`
	InsecureSkipVerify bool   `env:"LOOM_INSECURE_SKIP_VERIFY"`

	MapboxToken string `env:"LOOM_MAPBOX_TOKEN"`

	LogFormat       string `env:"LOOM_LOG_FORMAT" envDefault:"text"`
	LogLevel        string `env:"LOOM_LOG_LEVEL" envDefault:"info"`
	HealthcheckPort int    `env:"LOOM_HEALTHCHECK_PORT"`
}

// ConfigFromEnv decodes the LOOM_* variables. A nil environ reads the process
// environment.
func ConfigFromEnv(environ map[string]string) (Config, error) {
	var cfg Config
	var err error
	if environ == nil {
		err = env.Parse(&cfg)
	} else {
		err = env.ParseWithOptions(&cfg, env.Options{Environment: environ})
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, nil
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.PagePath == "" {
		return nil, errors.New("PagePath is a required configuration field and cannot be empty")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	if cfg.FetchAssets && cfg.FetchTimeout <= 0 {
		return nil, errors.New("FetchTimeout must be positive when assets are fetched")
	}
	if cfg.StepSourceURL != "" && len(cfg.Steps) > 0 {
		return nil, errors.New("steps cannot be replayed while subscribed to a step source")
	}
	for _, s := range cfg.Steps {
		if s < 0 {
			return nil, fmt.Errorf("invalid step index %d", s)
		}
	}
	if cfg.SkipCatalog && len(cfg.ManifestPaths) == 0 {
		return nil, errors.New("no adapter catalog: the default catalog is skipped and no manifest paths are set")
	}

	return &cfg, nil
}
