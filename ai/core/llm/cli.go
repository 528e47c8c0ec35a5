package llm

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CLIConfig configures a local generator process.
// The prompt is written to stdin and the reply read from stdout.
type CLIConfig struct {
	Binary  string
	Args    []string
	Model   string
	Timeout time.Duration
}

// CLIEndpoint runs a local process per request.
type CLIEndpoint struct {
	binary  string
	args    []string
	model   string
	timeout time.Duration
}

// NewCLIEndpoint creates a local-process endpoint. Without explicit Args it
// invokes "<binary> run --model <model>".
func NewCLIEndpoint(cfg CLIConfig) *CLIEndpoint {
	if cfg.Binary == "" {
		cfg.Binary = "opencode"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = CLITimeout
	}
	args := cfg.Args
	if args == nil {
		args = []string{"run", "--model", cfg.Model}
	}
	return &CLIEndpoint{binary: cfg.Binary, args: args, model: cfg.Model, timeout: cfg.Timeout}
}

// Label identifies the endpoint by its model id.
func (e *CLIEndpoint) Label() string {
	return e.model
}

// Generate runs the process once. A non-zero exit, a timeout or empty
// stdout is an error.
func (e *CLIEndpoint) Generate(ctx context.Context, p Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binary, e.args...)
	cmd.Stdin = strings.NewReader(p.Combined())
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.Wrapf(ctx.Err(), "%s timed out after %s", e.Label(), e.timeout)
		}
		return "", errors.Wrapf(err, "%s failed: %s", e.Label(), truncate(stderr.String(), 200))
	}
	return cleanResponse(stdout.String())
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
