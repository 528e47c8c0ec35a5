package chain

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/argoclaw/Clawtter-Argo/ai/core/llm"
)

// NewEndpointFactory builds real endpoints from the registry. Per-call
// timeouts follow the endpoint method.
func NewEndpointFactory(ctx context.Context, r *Registry) EndpointFactory {
	return func(c Candidate) (llm.Endpoint, error) {
		timeout := llm.TimeoutFor(c.Method)
		switch c.Method {
		case llm.MethodCLI:
			return llm.NewCLIEndpoint(llm.CLIConfig{Binary: r.CLIBinary, Model: cliModel(c), Timeout: timeout}), nil
		case llm.MethodGoogle:
			p, ok := r.Provider(c.ProviderID)
			if !ok {
				return nil, errors.Errorf("unknown provider %s", c.ProviderID)
			}
			e, err := llm.NewGeminiEndpoint(ctx, llm.GeminiConfig{APIKey: p.APIKey, Model: c.ModelID, BaseURL: p.BaseURL, Timeout: timeout})
			if err != nil {
				return nil, err
			}
			return e, nil
		default:
			p, ok := r.Provider(c.ProviderID)
			if !ok {
				return nil, errors.Errorf("unknown provider %s", c.ProviderID)
			}
			return llm.NewChatEndpoint(llm.ChatConfig{
				Provider: c.ProviderID,
				Model:    c.ModelID,
				APIKey:   p.APIKey,
				BaseURL:  p.BaseURL,
				Timeout:  timeout,
			}), nil
		}
	}
}

// cliModel is the model argument for the local CLI: registry candidates
// pass provider/model, secondary entries are already full ids.
func cliModel(c Candidate) string {
	if c.ProviderID == "secondary" {
		return c.ModelID
	}
	return c.Key()
}

// NewLastResort builds the final chat endpoint, or nil when unconfigured.
// apiKey overrides the registry value when set.
func NewLastResort(r *Registry, apiKey string) llm.Endpoint {
	cfg := r.LastResort
	if cfg.Provider == "" {
		cfg.Provider = "zhipu-ai"
	}
	if cfg.Model == "" {
		cfg.Model = "glm-4-flash"
	}
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		return nil
	}
	return llm.NewChatEndpoint(llm.ChatConfig{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		APIKey:   apiKey,
		BaseURL:  cfg.BaseURL,
		Timeout:  30 * time.Second,
	})
}
