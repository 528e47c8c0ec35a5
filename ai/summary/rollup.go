// Package summary writes the daily and weekly rollup artifacts.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/argoclaw/Clawtter-Argo/ai/chain"
	"github.com/argoclaw/Clawtter-Argo/ai/core/llm"
	"github.com/argoclaw/Clawtter-Argo/ai/filter"
	"github.com/argoclaw/Clawtter-Argo/ai/mood"
	"github.com/argoclaw/Clawtter-Argo/ai/prompt"
	"github.com/argoclaw/Clawtter-Argo/ai/tags"
	"github.com/argoclaw/Clawtter-Argo/store"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, p llm.Prompt) (chain.Result, error)
}

// Sink is where rollups are written and past posts read from.
type Sink interface {
	PublishAt(rel string, a *store.Artifact) (string, error)
	Exists(rel string) bool
	Since(t time.Time) ([]*store.Artifact, error)
}

// MemoryReader returns the memory note for a day.
type MemoryReader interface {
	Day(t time.Time) string
}

// Config wires a Rollups.
type Config struct {
	Generator Generator
	Sink      Sink
	Memory    MemoryReader
	Persona   *prompt.Persona
	Guard     *filter.Guard
	Masker    *filter.Masker
	Location  *time.Location
	Now       func() time.Time
}

// Rollups produces the periodic summary artifacts. Each one is written at
// most once: an existing file means there is nothing to do.
type Rollups struct {
	Config
}

// New creates Rollups.
func New(cfg Config) *Rollups {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Persona == nil {
		cfg.Persona = prompt.DefaultPersona()
	}
	if cfg.Masker == nil {
		cfg.Masker = filter.NewMasker()
	}
	return &Rollups{Config: cfg}
}

// DailyPath is where the summary for day is stored, relative to the posts
// root.
func DailyPath(day time.Time) string {
	date := day.Format(time.DateOnly)
	return filepath.Join(day.Format("2006"), day.Format("01"), day.Format("02"), date+"-daily-summary.md")
}

// WeeklyPath is where the recap for the week containing t is stored. Weeks
// start on Monday; days before the first Monday of a year are week 00.
func WeeklyPath(t time.Time) string {
	return filepath.Join(t.Format("2006"), "recap", fmt.Sprintf("%s-W%02d-weekly-recap.md", t.Format("2006"), MondayWeek(t)))
}

// MondayWeek returns the Monday-first week number of t.
func MondayWeek(t time.Time) int {
	sinceMonday := (int(t.Weekday()) + 6) % 7
	return (t.YearDay() - 1 + 7 - sinceMonday) / 7
}

// Run performs both checks, logging rather than returning failures.
func (r *Rollups) Run(ctx context.Context, v mood.Vector) {
	if _, err := r.Daily(ctx, v, false); err != nil {
		slog.WarnContext(ctx, "Summary: daily summary failed", "error", err)
	}
	if _, err := r.Weekly(ctx, v, false); err != nil {
		slog.WarnContext(ctx, "Summary: weekly recap failed", "error", err)
	}
}

// Daily summarizes yesterday's memory note, or today's when force is set.
// It reports whether an artifact was written.
func (r *Rollups) Daily(ctx context.Context, v mood.Vector, force bool) (bool, error) {
	now := r.Now().In(r.Location)
	target := now.AddDate(0, 0, -1)
	if force {
		target = now
	}
	rel := DailyPath(target)
	if r.Sink.Exists(rel) {
		return false, nil
	}

	var activities []string
	if r.Memory != nil {
		for _, line := range strings.Split(r.Memory.Day(target), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			line = strings.TrimSpace(strings.TrimLeft(line, "-*"))
			if line = filter.Desensitize(line, r.Guard, r.Masker); line != "" {
				activities = append(activities, line)
			}
		}
	}
	if len(activities) == 0 && !force {
		return false, nil
	}
	activities = activities[max(0, len(activities)-20):]

	logs := "(今日无特殊记录)"
	if len(activities) > 0 {
		logs = "- " + strings.Join(activities, "\n- ")
	}
	date := target.Format(time.DateOnly)
	user := fmt.Sprintf("[任务]为 %s 写一条当日总结.\n\n[日志]\n%s\n\n[要求]\n1. 抓住亮点.\n2. 140 字以内.\n", date, logs)

	text, label, err := r.generate(ctx, "daily summary", user)
	if err != nil {
		return false, err
	}
	a := &store.Artifact{
		Time:  now,
		Tags:  []string{"DailySummary"},
		Mood:  v.Snapshot(),
		Model: label,
		Body:  text,
	}
	if _, err := r.Sink.PublishAt(rel, a); err != nil {
		return false, errors.Wrap(err, "failed to publish daily summary")
	}
	slog.InfoContext(ctx, "Summary: daily summary written", "date", date)
	return true, nil
}

// Weekly writes the recap of the last seven days on Sundays and Mondays,
// or any day when force is set.
func (r *Rollups) Weekly(ctx context.Context, v mood.Vector, force bool) (bool, error) {
	now := r.Now().In(r.Location)
	if wd := now.Weekday(); wd != time.Monday && wd != time.Sunday && !force {
		return false, nil
	}
	rel := WeeklyPath(now)
	if r.Sink.Exists(rel) {
		return false, nil
	}

	posts, err := r.Sink.Since(now.AddDate(0, 0, -7))
	if err != nil {
		return false, errors.Wrap(err, "failed to list this week's posts")
	}
	var excerpts []string
	for _, p := range posts {
		if strings.Contains(filepath.Base(p.Path), "recap") {
			continue
		}
		if e := Excerpt(p.Body, 200); e != "" {
			excerpts = append(excerpts, e)
		}
		if len(excerpts) == 20 {
			break
		}
	}
	if len(excerpts) == 0 {
		return false, nil
	}

	user := fmt.Sprintf(`[本周发言回顾]
%s

[任务]回顾本周的发言,做一次"慢变量"复盘.
1. 提炼本周反复思考的 3 个核心命题.
2. 语气沉静,有反思.
3. 格式:
   ## 本周核心命题
   1. [命题]: [分析]
   ## 留给下周
   [一句话]
`, strings.Join(excerpts, "\n---\n"))

	text, label, err := r.generate(ctx, "reflection", user)
	if err != nil {
		return false, err
	}
	a := &store.Artifact{
		Time:  now,
		Tags:  tags.Normalize([]string{"WeeklyRecap", "Insight", "SlowVariables"}),
		Mood:  v.Snapshot(),
		Model: label,
		Body:  "# Weekly Recap: Slow Variables & Insights\n\n" + text,
	}
	if _, err := r.Sink.PublishAt(rel, a); err != nil {
		return false, errors.Wrap(err, "failed to publish weekly recap")
	}
	slog.InfoContext(ctx, "Summary: weekly recap written", "week", MondayWeek(now))
	return true, nil
}

func (r *Rollups) generate(ctx context.Context, style, user string) (string, string, error) {
	if r.Generator == nil {
		return "", "", errors.New("no generator configured")
	}
	system, err := r.Persona.System(style, mood.VoiceNone)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to build system prompt")
	}
	res, err := r.Generator.Generate(ctx, llm.Prompt{System: system, User: user})
	if err != nil {
		return "", "", errors.Wrap(err, "generation failed")
	}
	return strings.TrimSpace(res.Text), res.Label, nil
}
