package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
	htransport "google.golang.org/api/transport/http"

	"github.com/itsmostafa/paperalchemy/internal/config"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// GeminiSettings configures a Vertex AI Gemini model.
type GeminiSettings struct {
	Project         string
	Location        string
	Model           string
	Temperature     float64
	MaxRetries      int
	Timeout         time.Duration
	CredentialsFile string
	Network         config.NetworkConfig
}

// GeminiProvider implements Provider with Vertex AI.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature float32
	maxRetries  int
	timeout     time.Duration
	logger      *slog.Logger
}

// NewGeminiProvider creates a Vertex AI client. A customised network config
// switches the client to REST over an authenticated transport built from it.
func NewGeminiProvider(ctx context.Context, s GeminiSettings, logger *slog.Logger) (*GeminiProvider, error) {
	if s.Project == "" || s.Location == "" {
		return nil, errors.New("gemini: project and location cannot be empty")
	}
	if s.Model == "" {
		return nil, errors.New("llm model is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.ClientOption
	if s.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(s.CredentialsFile))
	}
	if customized(s.Network) {
		base, err := NewTransport(s.Network)
		if err != nil {
			return nil, err
		}
		rt, err := htransport.NewTransport(ctx, base, append([]option.ClientOption{option.WithScopes(cloudPlatformScope)}, opts...)...)
		if err != nil {
			return nil, fmt.Errorf("gemini: failed to build transport: %w", err)
		}
		opts = []option.ClientOption{genai.WithREST(), option.WithHTTPClient(&http.Client{Transport: rt})}
	}

	client, err := genai.NewClient(ctx, s.Project, s.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	return &GeminiProvider{
		client:      client,
		model:       s.Model,
		temperature: float32(s.Temperature),
		maxRetries:  s.MaxRetries,
		timeout:     s.Timeout,
		logger:      logger.With("provider", "gemini", "model", s.Model),
	}, nil
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.model }

// Close releases the underlying client.
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func (p *GeminiProvider) generativeModel(req Request) (*genai.GenerativeModel, error) {
	model := p.client.GenerativeModel(p.model)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr(p.temperature),
	}
	if req.Schema != nil {
		schema, err := ToGenaiSchema(req.Schema)
		if err != nil {
			return nil, err
		}
		model.GenerationConfig.ResponseMIMEType = "application/json"
		model.GenerationConfig.ResponseSchema = schema
	}
	// Safety filters stay off for academic content.
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}
	return model, nil
}

// Complete sends the request, retrying failed calls with backoff.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	model, err := p.generativeModel(req)
	if err != nil {
		return "", err
	}

	var text string
	err = withRetry(ctx, p.logger, p.maxRetries+1, 2*time.Second, func(ctx context.Context) error {
		callCtx := ctx
		if p.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}
		resp, err := model.GenerateContent(callCtx, genai.Text(req.User))
		if err != nil {
			return err
		}
		text = responseText(resp)
		if text == "" {
			return ErrEmptyResponse
		}
		p.logger.Debug("Gemini response received.", "preview", truncate(text, 200))
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

// ToGenaiSchema converts the JSON Schema subset used by paperalchemy into
// a Vertex response schema. Nullable unions like ["string","null"] become
// Nullable schemas.
func ToGenaiSchema(m map[string]any) (*genai.Schema, error) {
	s := &genai.Schema{}

	switch t := m["type"].(type) {
	case string:
		typ, err := genaiType(t)
		if err != nil {
			return nil, err
		}
		s.Type = typ
	case []any:
		for _, v := range t {
			name, _ := v.(string)
			if name == "null" {
				s.Nullable = true
				continue
			}
			typ, err := genaiType(name)
			if err != nil {
				return nil, err
			}
			s.Type = typ
		}
	default:
		return nil, fmt.Errorf("schema: unsupported type %v", m["type"])
	}

	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	switch n := m["minItems"].(type) {
	case int:
		s.MinItems = int64(n)
	case float64:
		s.MinItems = int64(n)
	}
	if req, ok := m["required"].([]any); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		child, err := ToGenaiSchema(items)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		s.Items = child
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, v := range props {
			pm, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("schema: property %s is not an object", name)
			}
			child, err := ToGenaiSchema(pm)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			s.Properties[name] = child
		}
	}
	return s, nil
}

func genaiType(name string) (genai.Type, error) {
	switch name {
	case "string":
		return genai.TypeString, nil
	case "number":
		return genai.TypeNumber, nil
	case "integer":
		return genai.TypeInteger, nil
	case "boolean":
		return genai.TypeBoolean, nil
	case "array":
		return genai.TypeArray, nil
	case "object":
		return genai.TypeObject, nil
	default:
		return genai.TypeUnspecified, fmt.Errorf("schema: unsupported type %q", name)
	}
}
