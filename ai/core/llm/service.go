// Package llm adapts the three kinds of text generator the agent talks to
// (a local CLI, Google's simple JSON API and chat-completions APIs) to one
// Endpoint interface.
package llm

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Method is the wire shape of an endpoint.
type Method string

const (
	MethodCLI    Method = "cli"
	MethodGoogle Method = "google"
	MethodChat   Method = "chat"
)

// Per-call bounds by method.
const (
	CLITimeout    = 60 * time.Second
	ChatTimeout   = 60 * time.Second
	GoogleTimeout = 15 * time.Second
)

// TimeoutFor returns the per-call bound for m.
func TimeoutFor(m Method) time.Duration {
	switch m {
	case MethodGoogle:
		return GoogleTimeout
	case MethodChat:
		return ChatTimeout
	default:
		return CLITimeout
	}
}

// ErrEmptyResponse is returned when a call succeeds but yields no text.
var ErrEmptyResponse = errors.New("empty response")

// Prompt is one generation request.
type Prompt struct {
	System string
	User   string
}

// Combined joins system and user text for endpoints without roles.
func (p Prompt) Combined() string {
	if p.System == "" {
		return p.User
	}
	return p.System + "\n\n" + p.User
}

// Endpoint produces text for a prompt. A nil error always comes with
// non-empty text.
type Endpoint interface {
	Generate(ctx context.Context, p Prompt) (string, error)
	Label() string
}

func cleanResponse(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}
