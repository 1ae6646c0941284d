package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/itsmostafa/paperalchemy/internal/version"
)

// OpenAISettings configures an OpenAI-compatible chat completions endpoint.
type OpenAISettings struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxRetries  int
	HTTPClient  *http.Client
}

// OpenAIProvider implements Provider using the openai-go SDK.
type OpenAIProvider struct {
	client      openai.Client
	model       string
	temperature float64
	logger      *slog.Logger
}

// NewOpenAIProvider creates a new OpenAI provider. BaseURL allows any
// OpenAI-compatible gateway.
func NewOpenAIProvider(s OpenAISettings, logger *slog.Logger) (*OpenAIProvider, error) {
	if s.APIKey == "" && s.BaseURL == "" {
		return nil, errors.New("openai api key missing; provide llm.api_key")
	}
	if s.Model == "" {
		return nil, errors.New("llm model is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithMaxRetries(s.MaxRetries),
		option.WithHeader("User-Agent", version.UserAgent()),
	}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	if s.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(s.HTTPClient))
	}

	return &OpenAIProvider{
		client:      openai.NewClient(opts...),
		model:       s.Model,
		temperature: s.Temperature,
		logger:      logger.With("provider", "openai", "model", s.Model),
	}, nil
}

func (p *OpenAIProvider) Name() string  { return "openai" }
func (p *OpenAIProvider) Model() string { return p.model }

// Complete sends one chat completion. Retries happen inside the SDK.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	msgs := []openai.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.User))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		Messages:    msgs,
		Temperature: openai.Float(p.temperature),
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: withoutMeta(req.Schema),
					Strict: openai.Bool(true),
				},
			},
		}
	}

	p.logger.Debug("Sending chat completion.", "promptTokens", CountTokens(req.System)+CountTokens(req.User))
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return "", errors.New("openai: model refused: " + choice.Message.Refusal)
	}
	p.logger.Debug("Chat completion received.",
		"finishReason", choice.FinishReason,
		"completionTokens", resp.Usage.CompletionTokens,
		"preview", truncate(choice.Message.Content, 200),
	)
	return choice.Message.Content, nil
}

// withoutMeta drops draft keywords the structured output endpoint rejects.
func withoutMeta(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		if k == "$schema" || k == "title" {
			continue
		}
		out[k] = v
	}
	return out
}
