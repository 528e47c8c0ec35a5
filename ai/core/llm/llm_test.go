package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutFor(t *testing.T) {
	assert.Equal(t, 60*time.Second, TimeoutFor(MethodCLI))
	assert.Equal(t, 60*time.Second, TimeoutFor(MethodChat))
	assert.Equal(t, 15*time.Second, TimeoutFor(MethodGoogle))
}

func TestCLIEndpoint(t *testing.T) {
	ctx := context.Background()

	t.Run("echoes stdin", func(t *testing.T) {
		e := NewCLIEndpoint(CLIConfig{Binary: "sh", Args: []string{"-c", "cat"}, Model: "local/cat"})
		got, err := e.Generate(ctx, Prompt{System: "sys", User: "hello"})
		require.NoError(t, err)
		assert.Equal(t, "sys\n\nhello", got)
		assert.Equal(t, "local/cat", e.Label())
	})

	t.Run("non-zero exit", func(t *testing.T) {
		e := NewCLIEndpoint(CLIConfig{Binary: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}, Model: "m"})
		_, err := e.Generate(ctx, Prompt{User: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("empty output", func(t *testing.T) {
		e := NewCLIEndpoint(CLIConfig{Binary: "sh", Args: []string{"-c", "printf '  \\n'"}, Model: "m"})
		_, err := e.Generate(ctx, Prompt{User: "x"})
		assert.True(t, errors.Is(err, ErrEmptyResponse))
	})

	t.Run("timeout", func(t *testing.T) {
		e := NewCLIEndpoint(CLIConfig{Binary: "sh", Args: []string{"-c", "exec sleep 5"}, Model: "m", Timeout: 100 * time.Millisecond})
		start := time.Now()
		_, err := e.Generate(ctx, Prompt{User: "x"})
		require.Error(t, err)
		assert.Less(t, time.Since(start), 3*time.Second)
	})

	t.Run("default args", func(t *testing.T) {
		e := NewCLIEndpoint(CLIConfig{Model: "opencode/kimi"})
		assert.Equal(t, "opencode", e.binary)
		assert.Equal(t, []string{"run", "--model", "opencode/kimi"}, e.args)
	})
}

func TestChatEndpoint(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" hello "},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	e := NewChatEndpoint(ChatConfig{Provider: "nvidia", Model: "kimi", APIKey: "k", BaseURL: srv.URL + "/v1"})
	got, err := e.Generate(context.Background(), Prompt{System: "s", User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, "nvidia/kimi", e.Label())
	assert.Equal(t, "kimi", gotBody["model"])
	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestChatEndpoint_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"down"}}`},
		{"no choices", http.StatusOK, `{"id":"1","choices":[]}`},
		{"blank content", http.StatusOK, `{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":""}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			e := NewChatEndpoint(ChatConfig{Provider: "p", Model: "m", BaseURL: srv.URL})
			_, err := e.Generate(context.Background(), Prompt{User: "u"})
			assert.Error(t, err)
		})
	}
}

func TestGeminiEndpoint(t *testing.T) {
	var gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			gotText = req.Contents[0].Parts[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"hi there"}]}}]}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	e, err := NewGeminiEndpoint(ctx, GeminiConfig{APIKey: "k", Model: "gemini-2.5-flash", BaseURL: srv.URL})
	require.NoError(t, err)

	got, err := e.Generate(ctx, Prompt{System: "s", User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "hi there", got)
	assert.Equal(t, "s\n\nu", gotText)
	assert.Equal(t, "google/gemini-2.5-flash", e.Label())
}
