package summary

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argoclaw/Clawtter-Argo/ai/chain"
	"github.com/argoclaw/Clawtter-Argo/ai/core/llm"
	"github.com/argoclaw/Clawtter-Argo/ai/filter"
	"github.com/argoclaw/Clawtter-Argo/ai/mood"
	"github.com/argoclaw/Clawtter-Argo/store"
)

var tokyo = time.FixedZone("JST", 9*3600)

type stubGen struct {
	prompts []string
	err     error
}

func (g *stubGen) Generate(ctx context.Context, p llm.Prompt) (chain.Result, error) {
	g.prompts = append(g.prompts, p.User)
	if g.err != nil {
		return chain.Result{}, g.err
	}
	return chain.Result{Text: "平静的一天", Label: "stub/model"}, nil
}

type memoryDays map[string]string

func (m memoryDays) Day(t time.Time) string { return m[t.Format(time.DateOnly)] }

func newRollups(t *testing.T, now time.Time, gen *stubGen, mem memoryDays) (*Rollups, *store.Store) {
	t.Helper()
	clock := func() time.Time { return now }
	guard := filter.NewGuard(nil)
	s := store.New(t.TempDir(), tokyo, guard, clock)
	return New(Config{
		Generator: gen,
		Sink:      s,
		Memory:    mem,
		Guard:     guard,
		Location:  tokyo,
		Now:       clock,
	}), s
}

func TestMondayWeek(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2024-01-01", 1}, // Monday
		{"2023-01-01", 0}, // Sunday before the first Monday
		{"2023-01-02", 1},
		{"2026-03-09", 10},
		{"2026-03-15", 10}, // Sunday closes the week
		{"2026-12-31", 52},
	}
	for _, tt := range tests {
		d, err := time.Parse(time.DateOnly, tt.date)
		require.NoError(t, err)
		assert.Equal(t, tt.want, MondayWeek(d), tt.date)
	}
}

func TestPaths(t *testing.T) {
	d := time.Date(2026, 3, 9, 10, 0, 0, 0, tokyo)
	assert.Equal(t, filepath.Join("2026", "03", "09", "2026-03-09-daily-summary.md"), DailyPath(d))
	assert.Equal(t, filepath.Join("2026", "recap", "2026-W10-weekly-recap.md"), WeeklyPath(d))
}

func TestDaily(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, tokyo)
	mem := memoryDays{"2026-03-09": strings.Join([]string{
		"# 2026-03-09",
		"- 修复了调度器",
		"- 新的 api key 已经配置好",
		"- 联系人 someone@example.com",
	}, "\n")}
	gen := &stubGen{}
	r, s := newRollups(t, now, gen, mem)

	wrote, err := r.Daily(context.Background(), mood.Default(), false)
	require.NoError(t, err)
	assert.True(t, wrote)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "- 修复了调度器")
	assert.Contains(t, gen.prompts[0], "[email]")
	assert.NotContains(t, gen.prompts[0], "api key")

	data, err := os.ReadFile(filepath.Join(s.Root(), DailyPath(now.AddDate(0, 0, -1))))
	require.NoError(t, err)
	assert.Contains(t, string(data), "tags: DailySummary")
	assert.Contains(t, string(data), "平静的一天")

	wrote, err = r.Daily(context.Background(), mood.Default(), false)
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Len(t, gen.prompts, 1)
}

func TestDailyWithoutMemory(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, tokyo)
	gen := &stubGen{}
	r, _ := newRollups(t, now, gen, memoryDays{})

	wrote, err := r.Daily(context.Background(), mood.Default(), false)
	require.NoError(t, err)
	assert.False(t, wrote)

	wrote, err = r.Daily(context.Background(), mood.Default(), true)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Contains(t, gen.prompts[0], "今日无特殊记录")
}

func TestDailyGenerationFails(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, tokyo)
	r, s := newRollups(t, now, &stubGen{err: errors.New("down")}, memoryDays{"2026-03-09": "- 写代码"})

	_, err := r.Daily(context.Background(), mood.Default(), false)
	assert.Error(t, err)
	assert.False(t, s.Exists(DailyPath(now.AddDate(0, 0, -1))))
}

func TestWeekly(t *testing.T) {
	monday := time.Date(2026, 3, 16, 9, 0, 0, 0, tokyo)
	gen := &stubGen{}
	r, s := newRollups(t, monday, gen, memoryDays{})

	wrote, err := r.Weekly(context.Background(), mood.Default(), false)
	require.NoError(t, err)
	assert.False(t, wrote, "nothing posted this week")

	_, err = s.Publish(&store.Artifact{
		Time:   monday.Add(-48 * time.Hour),
		Tags:   []string{"Reflection"},
		Body:   "# 标题\n\n这周一直在想缓存失效.\n\n> 引用",
		Suffix: "auto",
	})
	require.NoError(t, err)

	wrote, err = r.Weekly(context.Background(), mood.Default(), false)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Contains(t, gen.prompts[0], "这周一直在想缓存失效.")
	assert.NotContains(t, gen.prompts[0], "引用")

	data, err := os.ReadFile(filepath.Join(s.Root(), WeeklyPath(monday)))
	require.NoError(t, err)
	assert.Contains(t, string(data), "tags: Insight, SlowVariables, WeeklyRecap")

	wrote, err = r.Weekly(context.Background(), mood.Default(), false)
	require.NoError(t, err)
	assert.False(t, wrote)
}

func TestWeeklySkipsMidweek(t *testing.T) {
	wednesday := time.Date(2026, 3, 18, 9, 0, 0, 0, tokyo)
	gen := &stubGen{}
	r, _ := newRollups(t, wednesday, gen, memoryDays{})
	wrote, err := r.Weekly(context.Background(), mood.Default(), false)
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Empty(t, gen.prompts)
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name    string
		content string
		maxLen  int
		want    string
	}{
		{"first paragraph", "第一段\n续行\n\n第二段", 100, "第一段 续行"},
		{"skips heading and quote", "# 标题\n> 引用\n正文", 100, "正文"},
		{"truncates", "你好世界", 2, "你好"},
		{"default length", strings.Repeat("字", 300), 0, strings.Repeat("字", 200)},
		{"empty", "", 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Excerpt(tt.content, tt.maxLen); got != tt.want {
				t.Errorf("Excerpt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"normal truncation", "你好世界", 2, "你好"},
		{"no truncation needed", "你好", 10, "你好"},
		{"zero maxLen", "你好", 0, "你好"},
		{"mixed content truncation", "你好 World", 4, "你好 W"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateRunes(tt.s, tt.maxLen); got != tt.want {
				t.Errorf("truncateRunes() = %q, want %q", got, tt.want)
			}
		})
	}
}
