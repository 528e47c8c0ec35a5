package chain

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"

	"github.com/argoclaw/Clawtter-Argo/ai/core/llm"
)

// ErrExhausted is returned when every stage failed to produce text.
var ErrExhausted = errors.New("all text generators failed")

const (
	secondaryLimit     = 10
	lastResortAttempts = 2
)

// Stage names used in logs and metrics.
const (
	StageRanked     = "ranked"
	StageSecondary  = "secondary"
	StageLastResort = "last_resort"
)

// EndpointFactory builds the endpoint for a candidate.
type EndpointFactory func(Candidate) (llm.Endpoint, error)

// FailureObserver is told once per call when the ranked stage is exhausted.
type FailureObserver interface {
	OnExhausted(ctx context.Context)
}

// Recorder receives one observation per attempt.
type Recorder interface {
	ObserveAttempt(stage string, ok bool, elapsed time.Duration)
}

// Result is generated text and the label of the endpoint that produced it.
type Result struct {
	Text  string
	Label string
}

// Chain is the three-stage degrading dispatcher.
type Chain struct {
	registry   *Registry
	factory    EndpointFactory
	rng        *rand.Rand
	health     *HealthReport
	observer   FailureObserver
	recorder   Recorder
	lastResort llm.Endpoint
	backoff    time.Duration
}

// Option configures a Chain.
type Option func(*Chain)

// WithHealthReport filters hosted candidates by a prior health check.
func WithHealthReport(h *HealthReport) Option {
	return func(c *Chain) { c.health = h }
}

// WithObserver receives the exhaustion event.
func WithObserver(o FailureObserver) Option {
	return func(c *Chain) { c.observer = o }
}

// WithRecorder receives per-attempt metrics.
func WithRecorder(r Recorder) Option {
	return func(c *Chain) { c.recorder = r }
}

// WithLastResort sets the final endpoint.
func WithLastResort(e llm.Endpoint) Option {
	return func(c *Chain) { c.lastResort = e }
}

// WithBackoff overrides the pause between last-resort attempts.
func WithBackoff(d time.Duration) Option {
	return func(c *Chain) { c.backoff = d }
}

// New creates a Chain.
func New(registry *Registry, factory EndpointFactory, rng *rand.Rand, opts ...Option) *Chain {
	c := &Chain{
		registry: registry,
		factory:  factory,
		rng:      rng,
		backoff:  time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate tries the ranked candidates, then the secondary list, then the
// last-resort endpoint. ErrExhausted means nothing produced text.
func (c *Chain) Generate(ctx context.Context, p llm.Prompt) (Result, error) {
	ranked := Rank(c.registry.Candidates(), c.health, c.rng)
	if res, ok := c.Dispatch(ctx, p, ranked, StageRanked); ok {
		return res, nil
	}

	slog.WarnContext(ctx, "Chain: every ranked provider failed", "tried", len(ranked))
	if c.observer != nil {
		c.observer.OnExhausted(ctx)
	}

	secondary := c.registry.SecondaryCandidates(secondaryLimit)
	if res, ok := c.Dispatch(ctx, p, secondary, StageSecondary); ok {
		return res, nil
	}

	if c.lastResort != nil {
		for attempt := 1; attempt <= lastResortAttempts; attempt++ {
			if res, ok := c.try(ctx, p, c.lastResort, StageLastResort); ok {
				return res, nil
			}
			if attempt < lastResortAttempts {
				select {
				case <-ctx.Done():
					return Result{}, errors.Wrap(ErrExhausted, ctx.Err().Error())
				case <-time.After(c.backoff):
				}
			}
		}
	}

	slog.ErrorContext(ctx, "Chain: generation exhausted")
	return Result{}, ErrExhausted
}

// Dispatch walks cands in order and returns the first non-empty result.
// Failures are logged and never retried in place.
func (c *Chain) Dispatch(ctx context.Context, p llm.Prompt, cands []Candidate, stage string) (Result, bool) {
	for i, cand := range cands {
		if ctx.Err() != nil {
			return Result{}, false
		}
		endpoint, err := c.factory(cand)
		if err != nil {
			slog.WarnContext(ctx, "Chain: cannot build endpoint", "stage", stage, "candidate", cand.Key(), "error", err)
			continue
		}
		slog.InfoContext(ctx, "Chain: trying provider", "stage", stage, "position", i+1, "of", len(cands), "label", endpoint.Label())
		if res, ok := c.try(ctx, p, endpoint, stage); ok {
			return res, true
		}
	}
	return Result{}, false
}

func (c *Chain) try(ctx context.Context, p llm.Prompt, e llm.Endpoint, stage string) (Result, bool) {
	start := time.Now()
	text, err := e.Generate(ctx, p)
	ok := err == nil && text != ""
	if c.recorder != nil {
		c.recorder.ObserveAttempt(stage, ok, time.Since(start))
	}
	if !ok {
		slog.WarnContext(ctx, "Chain: provider failed", "stage", stage, "label", e.Label(), "error", err)
		return Result{}, false
	}
	slog.InfoContext(ctx, "Chain: provider succeeded", "stage", stage, "label", e.Label())
	return Result{Text: text, Label: e.Label()}, true
}

// LocalEndpoint builds an endpoint for the first local candidate, used for
// cheap auxiliary checks.
func (c *Chain) LocalEndpoint() (llm.Endpoint, bool) {
	for _, cand := range c.registry.Candidates() {
		if cand.Tier != TierLocal {
			continue
		}
		e, err := c.factory(cand)
		if err == nil {
			return e, true
		}
	}
	return nil, false
}
