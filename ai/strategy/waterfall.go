// Package strategy decides what to post in a cycle and asks the generator
// chain for the text.
package strategy

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/argoclaw/Clawtter-Argo/ai/chain"
	"github.com/argoclaw/Clawtter-Argo/ai/core/llm"
	"github.com/argoclaw/Clawtter-Argo/ai/feed"
	"github.com/argoclaw/Clawtter-Argo/ai/mood"
	"github.com/argoclaw/Clawtter-Argo/ai/prompt"
	"github.com/argoclaw/Clawtter-Argo/ai/saturation"
	"github.com/argoclaw/Clawtter-Argo/ai/signals"
	"github.com/argoclaw/Clawtter-Argo/store"
)

// FragmentCap is the number of untagged fragments allowed per day.
const FragmentCap = 2

const (
	stageIntrospection = iota + 1
	stageBlog
	stageAggregation
	stageRetrospective
	stageSocial
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, p llm.Prompt) (chain.Result, error)
}

// Archive reads past artifacts.
type Archive interface {
	Historical(cutoff time.Time) ([]*store.Artifact, error)
	OnThisDay(t time.Time, years int) ([]*store.Artifact, error)
}

// Feed fetches external items.
type Feed interface {
	FetchItem(ctx context.Context, hint string) *feed.Item
	FetchBatch(ctx context.Context, count int) []feed.Item
}

// Timeline picks one social post worth commenting on.
type Timeline interface {
	Pick(ctx context.Context, interests []string) (*feed.Post, error)
}

// BlogReader picks a long-form post.
type BlogReader interface {
	Random(minLen int) (*signals.BlogPost, error)
}

// Config wires a Waterfall. Nil sources disable the strategies that need
// them.
type Config struct {
	Generator Generator
	Persona   *prompt.Persona
	Tracker   *saturation.Tracker
	Archive   Archive
	Feed      Feed
	Timeline  Timeline
	Blog      BlogReader
	Memory    *signals.Memory
	Neighbors []feed.Source
	Load      mood.LoadSampler

	// Interests returns the current ranked interest keywords.
	Interests   func() []string
	ProjectDirs []string

	ActivityWindow time.Duration
	RNG            *rand.Rand
	Now            func() time.Time
}

// Waterfall selects and runs one content strategy per cycle.
type Waterfall struct {
	Config
}

// New creates a Waterfall.
func New(cfg Config) *Waterfall {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Persona == nil {
		cfg.Persona = prompt.DefaultPersona()
	}
	if cfg.ActivityWindow <= 0 {
		cfg.ActivityWindow = time.Hour
	}
	if cfg.Interests == nil {
		p := cfg.Persona
		cfg.Interests = func() []string { return p.Interests }
	}
	return &Waterfall{Config: cfg}
}

// cycle carries the per-run inputs shared by every strategy.
type cycle struct {
	v     mood.Vector
	shift mood.VoiceShift
	now   time.Time
}

// Run picks a strategy for mood v and returns its draft, or nil when
// nothing could be produced.
func (w *Waterfall) Run(ctx context.Context, v mood.Vector) *Draft {
	c := cycle{v: v, shift: mood.SelectVoiceShift(v, w.RNG), now: w.Now()}
	if c.shift != mood.VoiceNone {
		slog.InfoContext(ctx, "Waterfall: voice shift", "shift", c.shift)
	}

	if h := c.now.Hour(); h >= 1 && h <= 6 && w.RNG.Float64() < 0.05 {
		slog.InfoContext(ctx, "Waterfall: insomnia")
		if d := w.run(ctx, KindInsomnia, c); d != nil {
			return d
		}
	}

	var kind Kind
	if w.Memory != nil && w.Memory.IsActive(w.ActivityWindow) {
		kind = w.selectActive(c)
		slog.InfoContext(ctx, "Waterfall: active mode", "strategy", kind)
		if d := w.run(ctx, kind, c); d != nil {
			return d
		}
		kind = KindExploration
	} else {
		kind = w.selectIdle(c)
		slog.InfoContext(ctx, "Waterfall: idle mode", "strategy", kind)
	}

	if d := w.run(ctx, kind, c); d != nil {
		return d
	}
	if kind != KindExploration {
		if d := w.run(ctx, KindExploration, c); d != nil {
			return d
		}
	}
	slog.InfoContext(ctx, "Waterfall: every strategy came up empty")
	return nil
}

func (w *Waterfall) fragmentsToday() int {
	if w.Tracker == nil {
		return 0
	}
	return w.Tracker.CountToday(saturation.IsFragment)
}

func (w *Waterfall) selectActive(c cycle) Kind {
	opts := []option{{KindPersonal, 10}}
	if c.v.Curiosity > 70 {
		opts = append(opts, option{KindReflection, 2})
	}
	if w.fragmentsToday() < FragmentCap && w.RNG.Float64() < 0.10 {
		opts = append(opts, option{KindFragment, 3})
	}
	return sample(w.RNG, opts)
}

func (w *Waterfall) selectIdle(c cycle) Kind {
	var opts []option
	if len(w.Neighbors) > 0 && w.RNG.Float64() < 0.10 {
		opts = append(opts, option{KindNeighbor, 1})
	}
	if w.Archive != nil && w.RNG.Float64() < 0.10 {
		opts = append(opts, option{KindOnThisDay, 1})
	}
	opts = append(opts, option{KindExploration, 5})
	if w.fragmentsToday() < FragmentCap {
		if w.RNG.Float64() < 0.40 {
			opts = append(opts, option{KindFragment, 2}, option{KindReflection, 1})
		}
	} else {
		opts = append(opts, option{KindCommentary, 2})
	}
	return sample(w.RNG, opts)
}

func (w *Waterfall) run(ctx context.Context, kind Kind, c cycle) *Draft {
	var d *Draft
	switch kind {
	case KindExploration:
		return w.explore(ctx, c)
	case KindPersonal:
		d = w.personal(ctx, c)
	case KindReflection:
		d = w.reflection(ctx, c)
	case KindFragment:
		d = w.fragment(ctx, c, false)
	case KindInsomnia:
		d = w.fragment(ctx, c, true)
	case KindNeighbor:
		d = w.neighbor(ctx, c)
	case KindOnThisDay:
		d = w.onThisDay(ctx, c)
	case KindCommentary:
		d = w.commentary(ctx, c)
	}
	if d != nil {
		d.Kind = kind
	}
	return d
}

// explore runs the idle waterfall from the band drawn for this cycle down
// to the social stage, then one last commentary attempt.
func (w *Waterfall) explore(ctx context.Context, c cycle) *Draft {
	r := w.RNG.Float64()
	stage := entryStage(r)
	slog.InfoContext(ctx, "Waterfall: exploring", "roll", r, "stage", stage)
	return w.exploreFrom(ctx, c, stage)
}

func (w *Waterfall) exploreFrom(ctx context.Context, c cycle, stage int) *Draft {
	for stage <= stageSocial {
		var d *Draft
		switch stage {
		case stageIntrospection:
			if w.saturated(w.introspectionKeywords()) {
				slog.InfoContext(ctx, "Waterfall: introspection saturated")
				stage = stageAggregation
				continue
			}
			d = w.introspection(ctx, c)
			if d != nil {
				d.Kind = KindIntrospection
			}
		case stageBlog:
			d = w.blogReflection(ctx, c)
			if d != nil {
				d.Kind = KindBlog
			}
		case stageAggregation:
			d = w.aggregation(ctx, c)
			if d != nil {
				d.Kind = KindAggregation
			}
		case stageRetrospective:
			if w.saturated(retrospectiveTopics) {
				slog.InfoContext(ctx, "Waterfall: retrospective saturated")
				stage = stageSocial
				continue
			}
			d = w.retrospective(ctx, c)
			if d != nil {
				d.Kind = KindRetrospective
			}
		case stageSocial:
			d = w.social(ctx, c)
			if d != nil {
				d.Kind = KindSocial
			}
		}
		if d != nil {
			return d
		}
		stage++
	}

	if d := w.commentary(ctx, c); d != nil {
		d.Kind = KindCommentary
		return d
	}
	return nil
}

func (w *Waterfall) saturated(topics []string) bool {
	return w.Tracker != nil && w.Tracker.IsTopicSaturated(topics, saturation.DefaultThreshold)
}

func (w *Waterfall) postedToday(marker string) bool {
	return w.Tracker != nil && w.Tracker.HasPostedToday(marker, "")
}

// generate renders the system prompt for style and returns normalized text
// with the label of the endpoint that wrote it.
func (w *Waterfall) generate(ctx context.Context, c cycle, style, user string) (string, string, bool) {
	raw, label, ok := w.generateRaw(ctx, c, style, user)
	if !ok {
		return "", "", false
	}
	text := Normalize(raw)
	return text, label, text != ""
}

func (w *Waterfall) generateRaw(ctx context.Context, c cycle, style, user string) (string, string, bool) {
	if w.Generator == nil {
		return "", "", false
	}
	system, err := w.Persona.System(style, c.shift)
	if err != nil {
		slog.WarnContext(ctx, "Waterfall: failed to build system prompt", "error", err)
		return "", "", false
	}
	res, err := w.Generator.Generate(ctx, llm.Prompt{System: system, User: timeContext(c.now) + user})
	if err != nil {
		slog.WarnContext(ctx, "Waterfall: generation failed", "style", style, "error", err)
		return "", "", false
	}
	return strings.TrimSpace(res.Text), res.Label, true
}
