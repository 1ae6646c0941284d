// Package config loads paperalchemy settings from an optional YAML file and
// environment variables. Environment is only read, never modified.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itsmostafa/paperalchemy/internal/checkpoint"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "paperalchemy.yaml"

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// defaultModels holds the smart and fast model of each provider, used when
// the config names none.
var defaultModels = map[string][2]string{
	ProviderGemini: {"gemini-3-pro-preview", "gemini-3-flash-preview"},
	ProviderOpenAI: {"gpt-4.1", "gpt-4.1-mini"},
}

// LLMConfig selects and tunes the extraction model.
type LLMConfig struct {
	Provider        string        `yaml:"provider"`
	Model           string        `yaml:"model"`
	FastModel       string        `yaml:"fast_model"`
	Fast            bool          `yaml:"fast"`
	Temperature     float64       `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"`
	FastTimeout     time.Duration `yaml:"fast_timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	Project         string        `yaml:"project"`
	Location        string        `yaml:"location"`
	CredentialsFile string        `yaml:"credentials_file"`
}

// ActiveModel returns the model used for the configured speed, falling back
// to the provider's default.
func (c LLMConfig) ActiveModel() string {
	defaults := defaultModels[c.Provider]
	if c.Fast {
		if c.FastModel != "" {
			return c.FastModel
		}
		if defaults[1] != "" {
			return defaults[1]
		}
	}
	if c.Model != "" {
		return c.Model
	}
	return defaults[0]
}

// ActiveTimeout returns the client timeout for the configured speed.
func (c LLMConfig) ActiveTimeout() time.Duration {
	if c.Fast && c.FastTimeout > 0 {
		return c.FastTimeout
	}
	return c.Timeout
}

// NetworkConfig is handed to HTTP client constructors.
type NetworkConfig struct {
	ProxyURL           string `yaml:"proxy_url"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// ReviewConfig bounds the review loop. Zero means unbounded.
type ReviewConfig struct {
	MaxRetries      int           `yaml:"max_retries"`
	AttemptTimeout  time.Duration `yaml:"attempt_timeout"`
	KeepCheckpoints bool          `yaml:"keep_checkpoints"`
}

// CheckpointConfig selects where review sessions are persisted.
type CheckpointConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// ExtractConfig tunes prompt construction.
type ExtractConfig struct {
	FigureHints bool `yaml:"figure_hints"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Config is the full runtime configuration.
type Config struct {
	InputDir   string           `yaml:"input_dir"`
	OutputDir  string           `yaml:"output_dir"`
	LLM        LLMConfig        `yaml:"llm"`
	Network    NetworkConfig    `yaml:"network"`
	Review     ReviewConfig     `yaml:"review"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Extract    ExtractConfig    `yaml:"extract"`
	Log        LogConfig        `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		InputDir:  "data/input",
		OutputDir: "data/output",
		LLM: LLMConfig{
			Provider:    ProviderGemini,
			Temperature: 0.7,
			Timeout:     500 * time.Second,
			FastTimeout: 60 * time.Second,
			MaxRetries:  3,
			Location:    "us-central1",
		},
		Checkpoint: CheckpointConfig{
			Driver: checkpoint.DriverFile,
			Path:   "data/checkpoints",
		},
		Extract: ExtractConfig{FigureHints: true},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path (or DefaultFile when path is empty) on top of Default and
// applies environment overrides from getenv. A missing default file is not
// an error; a missing explicit file is.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	cfg.applyEnv(getenv)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	e := env(getenv)

	c.InputDir = e.str("PAPERALCHEMY_INPUT_DIR", c.InputDir)
	c.OutputDir = e.str("PAPERALCHEMY_OUTPUT_DIR", c.OutputDir)

	c.LLM.Provider = e.str("PAPERALCHEMY_PROVIDER", c.LLM.Provider)
	c.LLM.Model = e.str("PAPERALCHEMY_MODEL", c.LLM.Model)
	c.LLM.FastModel = e.str("PAPERALCHEMY_FAST_MODEL", c.LLM.FastModel)
	c.LLM.Fast = e.boolean("PAPERALCHEMY_FAST", c.LLM.Fast)
	c.LLM.Temperature = e.float("PAPERALCHEMY_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = e.duration("PAPERALCHEMY_LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.MaxRetries = e.integer("PAPERALCHEMY_LLM_MAX_RETRIES", c.LLM.MaxRetries)
	c.LLM.BaseURL = e.str("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Project = e.str("GOOGLE_CLOUD_PROJECT", c.LLM.Project)
	c.LLM.Location = e.str("GOOGLE_CLOUD_LOCATION", c.LLM.Location)
	c.LLM.CredentialsFile = e.str("GOOGLE_APPLICATION_CREDENTIALS", c.LLM.CredentialsFile)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = e.str("OPENAI_API_KEY", "")
	}

	c.Network.ProxyURL = e.str("PAPERALCHEMY_PROXY", e.str("HTTPS_PROXY", c.Network.ProxyURL))
	c.Network.InsecureSkipVerify = e.boolean("PAPERALCHEMY_INSECURE_SKIP_VERIFY", c.Network.InsecureSkipVerify)

	c.Review.MaxRetries = e.integer("PAPERALCHEMY_REVIEW_MAX_RETRIES", c.Review.MaxRetries)
	c.Review.AttemptTimeout = e.duration("PAPERALCHEMY_REVIEW_ATTEMPT_TIMEOUT", c.Review.AttemptTimeout)

	c.Checkpoint.Driver = e.str("PAPERALCHEMY_CHECKPOINT_DRIVER", c.Checkpoint.Driver)
	c.Checkpoint.Path = e.str("PAPERALCHEMY_CHECKPOINT_PATH", c.Checkpoint.Path)

	c.Log.Level = e.str("PAPERALCHEMY_LOG_LEVEL", c.Log.Level)
	c.Log.Format = e.str("PAPERALCHEMY_LOG_FORMAT", c.Log.Format)
	c.Log.File = e.str("PAPERALCHEMY_LOG_FILE", c.Log.File)
}

// Validate reports configuration that cannot produce a working pipeline.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
			errs = append(errs, errors.New("llm.api_key (or OPENAI_API_KEY) is required for the openai provider"))
		}
	case ProviderGemini:
		if c.LLM.Project == "" {
			errs = append(errs, errors.New("llm.project (or GOOGLE_CLOUD_PROJECT) is required for the gemini provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q (want %s or %s)", c.LLM.Provider, ProviderGemini, ProviderOpenAI))
	}
	if c.LLM.ActiveModel() == "" {
		errs = append(errs, errors.New("llm.model must not be empty"))
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, errors.New("llm.max_retries must not be negative"))
	}

	switch c.Checkpoint.Driver {
	case checkpoint.DriverFile, checkpoint.DriverSQLite:
		if c.Checkpoint.Path == "" {
			errs = append(errs, fmt.Errorf("checkpoint.path is required for the %s driver", c.Checkpoint.Driver))
		}
	case checkpoint.DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown checkpoint driver %q", c.Checkpoint.Driver))
	}

	if c.Review.MaxRetries < 0 {
		errs = append(errs, errors.New("review.max_retries must not be negative"))
	}
	if c.Review.AttemptTimeout < 0 {
		errs = append(errs, errors.New("review.attempt_timeout must not be negative"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir must not be empty"))
	}

	return errors.Join(errs...)
}

// env wraps a lookup function with typed fallbacks. Values that fail to parse
// keep the fallback.
type env func(string) string

func (e env) str(key, fallback string) string {
	if v := strings.TrimSpace(e(key)); v != "" {
		return v
	}
	return fallback
}

func (e env) integer(key string, fallback int) int {
	if v, err := strconv.Atoi(e.str(key, "")); err == nil {
		return v
	}
	return fallback
}

func (e env) float(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(e.str(key, ""), 64); err == nil {
		return v
	}
	return fallback
}

func (e env) boolean(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(e.str(key, "")); err == nil {
		return v
	}
	return fallback
}

func (e env) duration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(e.str(key, "")); err == nil {
		return v
	}
	return fallback
}
