package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// providerBaseURLs are used when a chat provider has no explicit base URL.
var providerBaseURLs = map[string]string{
	"zhipu-ai":    "https://open.bigmodel.cn/api/paas/v4",
	"zai":         "https://open.bigmodel.cn/api/paas/v4",
	"deepseek":    "https://api.deepseek.com",
	"siliconflow": "https://api.siliconflow.cn/v1",
	"dashscope":   "https://dashscope.aliyuncs.com/compatible-mode/v1",
	"openrouter":  "https://openrouter.ai/api/v1",
	"nvidia":      "https://integrate.api.nvidia.com/v1",
	"nvidia-kimi": "https://integrate.api.nvidia.com/v1",
	"qwen-portal": "https://portal.qwen.ai/v1",
	"openai":      "https://api.openai.com/v1",
}

// ChatConfig configures a chat-completions endpoint.
type ChatConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// ChatEndpoint speaks the OpenAI chat-completions protocol.
type ChatEndpoint struct {
	client      *openai.Client
	provider    string
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

// NewChatEndpoint creates a chat-completions endpoint.
func NewChatEndpoint(cfg ChatConfig) *ChatEndpoint {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = providerBaseURLs[cfg.Provider]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = ChatTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.9
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	clientConfig.HTTPClient = newHTTPClient(cfg.Timeout)

	return &ChatEndpoint{
		client:      openai.NewClientWithConfig(clientConfig),
		provider:    cfg.Provider,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

// Label identifies the endpoint as provider/model.
func (e *ChatEndpoint) Label() string {
	return e.provider + "/" + e.model
}

// Generate sends one chat request.
func (e *ChatEndpoint) Generate(ctx context.Context, p Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var messages []openai.ChatCompletionMessage
	if p.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.User})

	slog.Debug("LLM: chat request", "label", e.Label(), "max_tokens", e.maxTokens)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
		Messages:    messages,
	})
	if err != nil {
		return "", errors.Wrapf(err, "chat request to %s failed", e.Label())
	}
	if len(resp.Choices) == 0 {
		return "", errors.Wrapf(ErrEmptyResponse, "%s returned no choices", e.Label())
	}
	return cleanResponse(resp.Choices[0].Message.Content)
}
