// Package llm wraps the hosted language models used for structured extraction.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/itsmostafa/paperalchemy/internal/config"
)

// ErrEmptyResponse is returned when a provider answers without any content.
var ErrEmptyResponse = errors.New("llm: empty response")

// Request is a single structured completion.
type Request struct {
	System string
	User   string

	// SchemaName and Schema constrain the response to JSON matching Schema.
	// A nil Schema requests free text.
	SchemaName string
	Schema     map[string]any
}

// Provider defines the interface for model interactions.
type Provider interface {
	// Complete sends the request and returns the raw response text.
	Complete(ctx context.Context, req Request) (string, error)

	// Name returns the provider identifier.
	Name() string

	// Model returns the model identifier being used.
	Model() string
}

// Closer is implemented by providers holding long-lived connections.
type Closer interface {
	Close() error
}

// New builds the provider selected by cfg.
func New(ctx context.Context, cfg config.LLMConfig, network config.NetworkConfig, logger *slog.Logger) (Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	hc, err := NewHTTPClient(network, cfg.ActiveTimeout())
	if err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIProvider(OpenAISettings{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.ActiveModel(),
			Temperature: cfg.Temperature,
			MaxRetries:  cfg.MaxRetries,
			HTTPClient:  hc,
		}, logger)
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, GeminiSettings{
			Project:         cfg.Project,
			Location:        cfg.Location,
			Model:           cfg.ActiveModel(),
			Temperature:     cfg.Temperature,
			MaxRetries:      cfg.MaxRetries,
			Timeout:         cfg.ActiveTimeout(),
			CredentialsFile: cfg.CredentialsFile,
			Network:         network,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// withRetry runs fn up to attempts times with exponential backoff starting
// at base. Context cancellation stops retrying immediately.
func withRetry(ctx context.Context, logger *slog.Logger, attempts int, base time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := base
	var lastErr error
	for i := 0; i < attempts; i++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil || i == attempts-1 {
			break
		}
		logger.Warn("Model call failed, will retry.",
			"attempt", i+1,
			"maxAttempts", attempts,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
