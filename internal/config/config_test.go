package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/itsmostafa/paperalchemy/internal/checkpoint"
)

func mapEnv(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load("", mapEnv(nil))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Provider != ProviderGemini {
		t.Errorf("Provider = %q, want %q", cfg.LLM.Provider, ProviderGemini)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", cfg.LLM.Temperature)
	}
	if cfg.Review.MaxRetries != 0 || cfg.Review.AttemptTimeout != 0 {
		t.Error("review limits should default to unbounded")
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), mapEnv(nil))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paperalchemy.yaml")
	content := `
output_dir: out
llm:
  provider: openai
  model: gpt-4o
  timeout: 90s
review:
  max_retries: 5
  attempt_timeout: 10m
checkpoint:
  driver: sqlite
  path: out/checkpoints.db
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, mapEnv(map[string]string{
		"OPENAI_API_KEY":                  "sk-test",
		"HTTPS_PROXY":                     "http://proxy:3128",
		"PAPERALCHEMY_REVIEW_MAX_RETRIES": "2",
		"PAPERALCHEMY_TEMPERATURE":        "not-a-number",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"output dir from file", cfg.OutputDir, "out"},
		{"provider from file", cfg.LLM.Provider, ProviderOpenAI},
		{"timeout from file", cfg.LLM.Timeout, 90 * time.Second},
		{"api key from env", cfg.LLM.APIKey, "sk-test"},
		{"proxy from env", cfg.Network.ProxyURL, "http://proxy:3128"},
		{"env overrides file", cfg.Review.MaxRetries, 2},
		{"attempt timeout from file", cfg.Review.AttemptTimeout, 10 * time.Minute},
		{"unparsable env keeps default", cfg.LLM.Temperature, 0.7},
		{"driver from file", cfg.Checkpoint.Driver, checkpoint.DriverSQLite},
		{"input dir default kept", cfg.InputDir, "data/input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"gemini needs project", func(c *Config) {}, "llm.project"},
		{"gemini ok", func(c *Config) { c.LLM.Project = "p" }, ""},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "llama" }, "unknown llm provider"},
		{"openai needs key", func(c *Config) { c.LLM.Provider = ProviderOpenAI }, "llm.api_key"},
		{"unknown driver", func(c *Config) { c.LLM.Project = "p"; c.Checkpoint.Driver = "redis" }, "unknown checkpoint driver"},
		{"negative retries", func(c *Config) { c.LLM.Project = "p"; c.Review.MaxRetries = -1 }, "review.max_retries"},
		{"memory driver needs no path", func(c *Config) {
			c.LLM.Project = "p"
			c.Checkpoint.Driver = checkpoint.DriverMemory
			c.Checkpoint.Path = ""
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestActiveModel(t *testing.T) {
	tests := []struct {
		name      string
		provider  string
		model     string
		fastModel string
		fast      bool
		want      string
	}{
		{"gemini default", ProviderGemini, "", "", false, "gemini-3-pro-preview"},
		{"gemini fast default", ProviderGemini, "", "", true, "gemini-3-flash-preview"},
		{"openai default", ProviderOpenAI, "", "", false, "gpt-4.1"},
		{"openai fast default", ProviderOpenAI, "", "", true, "gpt-4.1-mini"},
		{"explicit model", ProviderOpenAI, "gpt-4o", "", false, "gpt-4o"},
		{"explicit fast model", ProviderGemini, "", "custom-flash", true, "custom-flash"},
		{"unknown provider", "other", "", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default().LLM
			c.Provider, c.Model, c.FastModel, c.Fast = tt.provider, tt.model, tt.fastModel, tt.fast
			if got := c.ActiveModel(); got != tt.want {
				t.Errorf("ActiveModel() = %q, want %q", got, tt.want)
			}
		})
	}

	c := Default().LLM
	if c.ActiveTimeout() != 500*time.Second {
		t.Errorf("smart timeout = %v", c.ActiveTimeout())
	}
	c.Fast = true
	if c.ActiveTimeout() != 60*time.Second {
		t.Errorf("fast timeout = %v", c.ActiveTimeout())
	}
}
