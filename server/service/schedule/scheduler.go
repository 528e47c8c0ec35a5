// Package schedule runs one wake cycle: lock, schedule record, mood,
// content decision, publish, reschedule.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/argoclaw/Clawtter-Argo/ai/filter"
	"github.com/argoclaw/Clawtter-Argo/ai/metrics"
	"github.com/argoclaw/Clawtter-Argo/ai/mood"
	"github.com/argoclaw/Clawtter-Argo/ai/observability/logging"
	"github.com/argoclaw/Clawtter-Argo/ai/strategy"
	"github.com/argoclaw/Clawtter-Argo/ai/tags"
	"github.com/argoclaw/Clawtter-Argo/ai/validate"
	"github.com/argoclaw/Clawtter-Argo/store"
)

// Evolver advances the mood for a cycle.
type Evolver interface {
	Next(v mood.Vector, found bool, now time.Time) mood.Vector
}

// Decider is the act-or-skip gate.
type Decider func(v mood.Vector, hour int) bool

// Composer produces the cycle's draft, or nil.
type Composer interface {
	Run(ctx context.Context, v mood.Vector) *strategy.Draft
}

// Validator screens a draft before it is published.
type Validator interface {
	Validate(ctx context.Context, content string) validate.Verdict
	Reject(content, reason string) error
}

// Publisher writes artifacts.
type Publisher interface {
	Publish(a *store.Artifact) (string, error)
}

// Rollups writes the periodic summaries.
type Rollups interface {
	Run(ctx context.Context, v mood.Vector)
}

// Deployer renders and publishes the site.
type Deployer interface {
	Deploy(ctx context.Context) error
}

// Metrics records cycle outcomes.
type Metrics interface {
	RecordCycle(outcome string, at time.Time)
	SetMood(v mood.Vector)
	WriteTextfile(path string) error
}

// InterestUpdater drifts interest weights from recent text.
type InterestUpdater interface {
	Update(recentText string) ([]string, error)
}

// RecentText supplies the recent memory text for interest drift.
type RecentText interface {
	RecentText() string
}

// CommitSubjects lists recent commit subjects, which also feed interest
// drift.
type CommitSubjects func(ctx context.Context) []string

// Config wires a Scheduler. Rollups, Deployer, Metrics and Interests are
// optional.
type Config struct {
	Records   *RecordStore
	Lock      *Lock
	Mood      *mood.FileStore
	Relay     *mood.Relay
	Evolver   Evolver
	Decide    Decider
	Composer  Composer
	Validator Validator
	Store     Publisher
	Rollups   Rollups
	Deployer  Deployer

	Metrics     Metrics
	MetricsFile string

	Interests InterestUpdater
	Memory    RecentText
	Commits   CommitSubjects

	Location *time.Location
	RNG      *rand.Rand
	Now      func() time.Time
}

// Options alter a single run.
type Options struct {
	// Force ignores the schedule record and the act gate.
	Force bool
	// SummaryOnly runs rollups and deploy without generating a post.
	SummaryOnly bool
}

// Cycle is what one run did.
type Cycle struct {
	ID          string
	Outcome     string
	Path        string
	Probability float64
	Record      *Record
}

// Scheduler runs wake cycles.
type Scheduler struct {
	Config
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.RNG == nil {
		cfg.RNG = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(time.Now().Unix())))
	}
	if cfg.Relay == nil {
		cfg.Relay = &mood.Relay{}
	}
	if cfg.Decide == nil {
		rng := cfg.RNG
		cfg.Decide = func(v mood.Vector, hour int) bool { return mood.ShouldAct(v, hour, rng) }
	}
	return &Scheduler{Config: cfg}
}

// RunOnce executes one cycle. A held lock or a record that is not yet due
// ends the run without touching any state. Every other path persists a
// waiting record before returning.
func (s *Scheduler) RunOnce(ctx context.Context, opts Options) (cycle *Cycle, err error) {
	cycle = &Cycle{ID: shortuuid.New()}
	ctx = logging.WithCycle(ctx, cycle.ID)

	if err := s.Lock.Acquire(); err != nil {
		if errors.Is(err, ErrLocked) {
			slog.InfoContext(ctx, "Schedule: another cycle holds the lock, exiting", "lock", s.Lock.Path())
			cycle.Outcome = metrics.OutcomeLocked
			return cycle, nil
		}
		return cycle, err
	}
	defer func() {
		if rerr := s.Lock.Release(); rerr != nil {
			slog.WarnContext(ctx, "Schedule: failed to release lock", "error", rerr)
		}
	}()

	now := s.Now().In(s.Location)
	rec, lerr := s.Records.Load()
	if lerr != nil {
		slog.WarnContext(ctx, "Schedule: unreadable record, resetting", "error", lerr)
		rec = nil
	}
	if !opts.Force && !rec.Due(now) {
		cycle.Outcome = metrics.OutcomeNotDue
		cycle.Record = rec
		return cycle, nil
	}

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Schedule: cycle panicked", "panic", fmt.Sprint(r))
			cycle.Outcome = metrics.OutcomeFailed
			err = errors.Errorf("cycle panicked: %v", r)
		}
		if rerr := s.reschedule(ctx, cycle); rerr != nil && err == nil {
			err = rerr
		}
	}()

	slog.InfoContext(ctx, "Schedule: cycle start", "first_run", rec == nil, "force", opts.Force, "summary_only", opts.SummaryOnly)
	s.mark(ctx, rec, now, StatusWorking)
	cycle.Outcome = s.act(ctx, now, rec, opts, cycle)
	return cycle, nil
}

func (s *Scheduler) act(ctx context.Context, now time.Time, rec *Record, opts Options, cycle *Cycle) string {
	loaded, found, err := s.Mood.Load()
	if err != nil {
		slog.WarnContext(ctx, "Schedule: mood unreadable, using defaults", "error", err)
	}
	session := mood.NewSession(s.Mood, s.Evolver.Next(loaded, found, now), s.Now)
	if err := session.Update(func(*mood.Vector) {}); err != nil {
		slog.WarnContext(ctx, "Schedule: failed to persist mood", "error", err)
	}
	s.Relay.Bind(session)
	defer s.Relay.Bind(nil)

	v := session.Current()
	slog.InfoContext(ctx, "Schedule: mood evolved", "mood", v.Snapshot(), "event", v.LastEvent)

	if s.Interests != nil && (s.Memory != nil || s.Commits != nil) {
		if top, err := s.Interests.Update(s.driftText(ctx)); err != nil {
			slog.WarnContext(ctx, "Schedule: interest drift failed", "error", err)
		} else {
			slog.DebugContext(ctx, "Schedule: interests", "top", top[:min(5, len(top))])
		}
	}

	if opts.SummaryOnly {
		s.derive(ctx, v)
		return metrics.OutcomeSummary
	}

	hour := now.Hour()
	cycle.Probability = mood.ActProbability(v, hour)
	if !opts.Force && !s.Decide(v, hour) {
		slog.InfoContext(ctx, "Schedule: not in the mood to post", "probability", cycle.Probability)
		return metrics.OutcomeSkipped
	}

	draft := s.Composer.Run(ctx, v)
	if draft == nil {
		slog.InfoContext(ctx, "Schedule: content generation failed")
		return metrics.OutcomeEmpty
	}

	text := draft.Text()
	if verdict := s.Validator.Validate(ctx, text); !verdict.OK {
		slog.InfoContext(ctx, "Schedule: content rejected", "reason", verdict.Reason)
		if err := s.Validator.Reject(text, verdict.Reason); err != nil {
			slog.WarnContext(ctx, "Schedule: failed to log rejection", "error", err)
		}
		return metrics.OutcomeRejected
	}

	s.mark(ctx, rec, now, StatusPosting)
	v = session.Current()
	a := &store.Artifact{
		Time:         s.Now().In(s.Location),
		Tags:         tags.Assign(draft.Source, text, v, draft.NoTags),
		Mood:         v.Snapshot(),
		Model:        draft.Model,
		OriginalTime: draft.OriginalTime,
		OriginalURL:  draft.OriginalURL,
		Body:         text,
		Suffix:       draft.Source.Suffix(),
	}
	path, err := s.Store.Publish(a)
	if err != nil {
		if errors.Is(err, filter.ErrSensitiveContent) {
			slog.WarnContext(ctx, "Schedule: publish blocked", "error", err)
			return metrics.OutcomeBlocked
		}
		slog.ErrorContext(ctx, "Schedule: publish failed", "error", err)
		return metrics.OutcomeFailed
	}
	cycle.Path = path
	slog.InfoContext(ctx, "Schedule: posted", "kind", draft.Kind, "model", draft.Model, "path", path)

	s.derive(ctx, v)
	return metrics.OutcomePosted
}

// driftText joins the recent memory notes and commit subjects.
func (s *Scheduler) driftText(ctx context.Context) string {
	var parts []string
	if s.Memory != nil {
		parts = append(parts, s.Memory.RecentText())
	}
	if s.Commits != nil {
		parts = append(parts, s.Commits(ctx)...)
	}
	return strings.Join(parts, "\n")
}

// derive runs the rollup checks and then deploys.
func (s *Scheduler) derive(ctx context.Context, v mood.Vector) {
	if s.Rollups != nil {
		s.Rollups.Run(ctx, v)
	}
	if s.Deployer != nil {
		if err := s.Deployer.Deploy(ctx); err != nil {
			slog.WarnContext(ctx, "Schedule: deploy failed", "error", err)
		}
	}
}

func (s *Scheduler) mark(ctx context.Context, rec *Record, now time.Time, status Status) {
	next := Record{NextRun: now, Status: status}
	if rec != nil {
		next.NextRun, next.DelayMinutes = rec.NextRun, rec.DelayMinutes
	}
	if err := s.Records.Save(next); err != nil {
		slog.WarnContext(ctx, "Schedule: failed to mark record", "status", status, "error", err)
	}
}

// reschedule reads the clock again so a long cycle is banded by the hour
// it finished in.
func (s *Scheduler) reschedule(ctx context.Context, cycle *Cycle) error {
	now := s.Now().In(s.Location)
	delay := NextDelay(now.Hour(), s.RNG)
	rec := Record{
		NextRun:      now.Add(delay),
		DelayMinutes: int(delay / time.Minute),
		Status:       StatusWaiting,
	}
	cycle.Record = &rec

	var err error
	if serr := s.Records.Save(rec); serr != nil {
		slog.ErrorContext(ctx, "Schedule: failed to save record", "error", serr)
		err = serr
	}

	if s.Metrics != nil {
		s.Metrics.RecordCycle(cycle.Outcome, now)
		if v, found, _ := s.Mood.Load(); found {
			s.Metrics.SetMood(v)
		}
		if merr := s.Metrics.WriteTextfile(s.MetricsFile); merr != nil {
			slog.WarnContext(ctx, "Schedule: failed to flush metrics", "error", merr)
		}
	}

	slog.InfoContext(ctx, "Schedule: next run", "outcome", cycle.Outcome,
		"next_run", rec.NextRun.Format(RecordTimeLayout), "delay_minutes", rec.DelayMinutes)
	return err
}
