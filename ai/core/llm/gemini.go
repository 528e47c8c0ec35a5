package llm

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

// GeminiConfig configures a Google generative language endpoint.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// GeminiEndpoint sends the combined prompt as a single text part.
type GeminiEndpoint struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiEndpoint creates a Gemini endpoint.
func NewGeminiEndpoint(ctx context.Context, cfg GeminiConfig) (*GeminiEndpoint, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = GoogleTimeout
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: newHTTPClient(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gemini client")
	}
	return &GeminiEndpoint{client: client, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// Label identifies the endpoint as google/model.
func (e *GeminiEndpoint) Label() string {
	return "google/" + e.model
}

// Generate sends one generateContent request.
func (e *GeminiEndpoint) Generate(ctx context.Context, p Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(p.Combined()), nil)
	if err != nil {
		return "", errors.Wrapf(err, "gemini request to %s failed", e.model)
	}
	return cleanResponse(resp.Text())
}
