package strategy

import (
	"context"
	"math/rand/v2"
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
	"github.com/argoclaw/Clawtter-Argo/ai/feed"
	"github.com/argoclaw/Clawtter-Argo/ai/mood"
	"github.com/argoclaw/Clawtter-Argo/ai/saturation"
	"github.com/argoclaw/Clawtter-Argo/ai/signals"
	"github.com/argoclaw/Clawtter-Argo/ai/tags"
	"github.com/argoclaw/Clawtter-Argo/store"
)

var (
	tokyo = time.FixedZone("JST", 9*3600)
	now   = time.Date(2026, 5, 20, 21, 0, 0, 0, tokyo)
)

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed*31+7))
}

// fakeGen answers per style; styles listed in fail return an error.
type fakeGen struct {
	reply map[string]string
	fail  map[string]bool
	calls []string
}

func (g *fakeGen) Generate(ctx context.Context, p llm.Prompt) (chain.Result, error) {
	style := "general"
	if _, after, ok := strings.Cut(p.System, "当前上下文风格:"); ok {
		style, _, _ = strings.Cut(after, "\n")
	}
	g.calls = append(g.calls, style)
	if g.fail[style] {
		return chain.Result{}, errors.New("generator down")
	}
	if r, ok := g.reply[style]; ok {
		return chain.Result{Text: r, Label: "test/model"}, nil
	}
	return chain.Result{Text: "今天的一点想法", Label: "test/model"}, nil
}

type fakeToday struct {
	list []*store.Artifact
}

func (f *fakeToday) Today() ([]*store.Artifact, error) { return f.list, nil }

type fakeFeed struct {
	batch []feed.Item
	item  *feed.Item
}

func (f *fakeFeed) FetchItem(ctx context.Context, hint string) *feed.Item { return f.item }

func (f *fakeFeed) FetchBatch(ctx context.Context, count int) []feed.Item {
	return f.batch[:min(count, len(f.batch))]
}

type fakeTimeline struct {
	post *feed.Post
}

func (f *fakeTimeline) Pick(ctx context.Context, interests []string) (*feed.Post, error) {
	return f.post, nil
}

type fakeArchive struct {
	past []*store.Artifact
}

func (f *fakeArchive) Historical(cutoff time.Time) ([]*store.Artifact, error) { return f.past, nil }

func (f *fakeArchive) OnThisDay(t time.Time, years int) ([]*store.Artifact, error) {
	return f.past, nil
}

func newWaterfall(gen Generator, today ...*store.Artifact) *Waterfall {
	return New(Config{
		Generator: gen,
		Tracker:   saturation.NewTracker(&fakeToday{list: today}),
		RNG:       newRNG(1),
		Now:       func() time.Time { return now },
	})
}

func testCycle() cycle {
	return cycle{v: mood.Default(), now: now}
}

func TestSample(t *testing.T) {
	rng := newRNG(42)
	counts := map[Kind]int{}
	opts := []option{{KindFragment, 1}, {KindExploration, 3}, {KindNeighbor, 0}}
	for range 20000 {
		counts[sample(rng, opts)]++
	}
	assert.Zero(t, counts[KindNeighbor])
	assert.InDelta(t, 0.25, float64(counts[KindFragment])/20000, 0.02)
	assert.InDelta(t, 0.75, float64(counts[KindExploration])/20000, 0.02)
	assert.Equal(t, Kind(""), sample(rng, nil))
}

func TestEntryStage(t *testing.T) {
	tests := []struct {
		r    float64
		want int
	}{
		{0, stageIntrospection},
		{0.149, stageIntrospection},
		{0.15, stageBlog},
		{0.249, stageBlog},
		{0.25, stageAggregation},
		{0.699, stageAggregation},
		{0.70, stageRetrospective},
		{0.80, stageSocial},
		{0.999, stageSocial},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, entryStage(tt.r), "r=%v", tt.r)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  你好  ", "你好"},
		{"bracket title", "【深夜随想】\n今天很安静", "今天很安静"},
		{"ascii bracket title", "[Note]\nquiet day", "quiet day"},
		{"hashtags", "写完了 #golang #编程\n收工", "写完了\n收工"},
		{"quotes", "“一句话”", "一句话"},
		{"inline bracket kept", "[a] inline text", "[a] inline text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestCap(t *testing.T) {
	long := strings.Repeat("字", 400)
	got := Cap(long, PersonalLimit)
	assert.Equal(t, PersonalLimit, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "短", Cap("短", PersonalLimit))
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		in      string
		idx     int
		comment string
	}{
		{"#2\n这条有意思", 1, "这条有意思"},
		{"# 3 最后一条\n补充", 2, "最后一条\n补充"},
		{"#9\n越界", 0, "越界"},
		{"没有编号", 0, "没有编号"},
	}
	for _, tt := range tests {
		idx, comment := parseChoice(tt.in, 3)
		assert.Equal(t, tt.idx, idx, tt.in)
		assert.Equal(t, tt.comment, comment, tt.in)
	}
}

func TestAggregationCitesChosenItem(t *testing.T) {
	gen := &fakeGen{reply: map[string]string{"aggregation": "#2\n这个项目值得关注 #AI"}}
	w := newWaterfall(gen)
	w.Feed = &fakeFeed{batch: []feed.Item{
		{Source: "Hacker News", Title: "one", URL: "https://a", Type: feed.TypeTechNews},
		{Source: "Twitter Briefing", Title: "@bob", Text: "hello", URL: "https://x.com/bob/status/1", Type: feed.TypeSocial},
		{Source: "Moltbook", Title: "three", URL: "https://c", Type: feed.TypeCommunity},
	}}

	d := w.aggregation(context.Background(), testCycle())
	require.NotNil(t, d)
	assert.Equal(t, "这个项目值得关注", d.Body)
	assert.Equal(t, tags.SourceTwitter, d.Source)
	assert.Equal(t, "https://x.com/bob/status/1", d.OriginalURL)
	assert.Contains(t, d.Quote, "[@bob](https://x.com/bob/status/1)")
	assert.Equal(t, "test/model", d.Model)
}

func TestExploreFallsThrough(t *testing.T) {
	gen := &fakeGen{fail: map[string]bool{"introspection": true}}
	w := newWaterfall(gen)
	w.Feed = &fakeFeed{item: &feed.Item{Source: "Hacker News", Title: "story", URL: "https://hn/1", Type: feed.TypeTechNews}}

	d := w.exploreFrom(context.Background(), testCycle(), stageIntrospection)
	require.NotNil(t, d)
	assert.Equal(t, KindCommentary, d.Kind)
	assert.Equal(t, tags.SourceHackerNews, d.Source)
	assert.Equal(t, []string{"introspection", "commentary"}, gen.calls)
}

func TestExploreSkipsSaturatedIntrospection(t *testing.T) {
	gen := &fakeGen{}
	w := newWaterfall(gen, &store.Artifact{Body: "系统负载有点高"}, &store.Artifact{Body: "又在看系统日志"})
	w.Feed = &fakeFeed{batch: []feed.Item{{Source: "RSS", Title: "t", URL: "https://r/1", Type: feed.TypeBlog}}}

	d := w.exploreFrom(context.Background(), testCycle(), stageIntrospection)
	require.NotNil(t, d)
	assert.Equal(t, KindAggregation, d.Kind)
	assert.Equal(t, tags.SourceRSS, d.Source)
	assert.NotContains(t, gen.calls, "introspection")
}

func TestIntrospectionSaturatesOnTaskKeywords(t *testing.T) {
	dir := t.TempDir()
	note := "## 今日完成\n- 重构了 scheduler 的 reschedule 逻辑\n- 整理 memory 目录里的旧笔记文件\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2026-05-20.md"), []byte(note), 0o644))

	tests := []struct {
		name      string
		memory    bool
		today     []string
		saturated bool
	}{
		{"fixed topic", false, []string{"今天做了一次蒸馏", "记忆又蒸馏了一遍"}, true},
		{"task keyword", true, []string{"scheduler 跑得很稳", "又看了一眼 scheduler"}, true},
		{"task keyword without memory", false, []string{"scheduler 跑得很稳", "又看了一眼 scheduler"}, false},
		{"below threshold", true, []string{"scheduler 跑得很稳", "下雨了"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var today []*store.Artifact
			for _, body := range tt.today {
				today = append(today, &store.Artifact{Body: body})
			}
			w := newWaterfall(&fakeGen{}, today...)
			if tt.memory {
				w.Memory = signals.NewMemory(dir, tokyo, func() time.Time { return now }, newRNG(3), nil)
			}
			assert.Equal(t, tt.saturated, w.saturated(w.introspectionKeywords()))
		})
	}

	t.Run("keywords", func(t *testing.T) {
		w := newWaterfall(&fakeGen{})
		w.Memory = signals.NewMemory(dir, tokyo, func() time.Time { return now }, newRNG(3), nil)
		kw := w.introspectionKeywords()
		assert.Equal(t, []string{"scheduler", "reschedule", "memory"}, kw[:3])
		assert.Contains(t, kw, "蒸馏")
	})
}

func TestExploreNothingAvailable(t *testing.T) {
	gen := &fakeGen{fail: map[string]bool{"introspection": true}}
	w := newWaterfall(gen)
	assert.Nil(t, w.exploreFrom(context.Background(), testCycle(), stageIntrospection))
}

func TestRetrospectiveSaturatedJumpsToSocial(t *testing.T) {
	gen := &fakeGen{}
	marker := "> **Perspective Evolution (Reflecting on 2026-01-01)**:"
	w := newWaterfall(gen, &store.Artifact{Body: "a\n\n" + marker}, &store.Artifact{Body: "b\n\n" + marker})
	w.Archive = &fakeArchive{past: []*store.Artifact{{Body: "old", Time: now.AddDate(0, -1, 0)}}}
	w.Timeline = &fakeTimeline{post: &feed.Post{ID: "9", Handle: "carol", Text: "new release"}}

	d := w.exploreFrom(context.Background(), testCycle(), stageRetrospective)
	require.NotNil(t, d)
	assert.Equal(t, KindSocial, d.Kind)
	assert.Equal(t, tags.SourceTwitter, d.Source)
	assert.Equal(t, "https://x.com/carol/status/9", d.OriginalURL)
}

func TestRetrospectiveQuotesOldPost(t *testing.T) {
	w := newWaterfall(&fakeGen{})
	w.Archive = &fakeArchive{past: []*store.Artifact{{
		Body: "当时觉得缓存是万能的\n\n> quoted earlier",
		Time: time.Date(2026, 2, 1, 10, 0, 0, 0, tokyo),
	}}}

	d := w.retrospective(context.Background(), testCycle())
	require.NotNil(t, d)
	assert.Equal(t, tags.SourceOwn, d.Source)
	assert.Contains(t, d.Quote, "Reflecting on 2026-02-01")
	assert.Contains(t, d.Quote, "当时觉得缓存是万能的")
	assert.NotContains(t, d.Quote, "quoted earlier")

	d = w.onThisDay(context.Background(), testCycle())
	require.NotNil(t, d)
	assert.Contains(t, d.Quote, "On This Day in 2026")
}

func TestSocialSkipsPostedToday(t *testing.T) {
	post := &feed.Post{ID: "5", Handle: "dave", Text: "hi"}
	w := newWaterfall(&fakeGen{}, &store.Artifact{OriginalURL: post.URL(), Body: "done"})
	w.Timeline = &fakeTimeline{post: post}
	assert.Nil(t, w.social(context.Background(), testCycle()))
}

func TestFragmentIsUntagged(t *testing.T) {
	w := newWaterfall(&fakeGen{})
	d := w.run(context.Background(), KindFragment, testCycle())
	require.NotNil(t, d)
	assert.True(t, d.NoTags)
	assert.Equal(t, KindFragment, d.Kind)
}

func TestPersonalIsCapped(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2026-05-20.md"), []byte("- 和人类讨论了部署脚本"), 0o644))

	gen := &fakeGen{reply: map[string]string{"personal": strings.Repeat("长", 500)}}
	w := newWaterfall(gen)
	w.Memory = signals.NewMemory(dir, tokyo, func() time.Time { return now }, newRNG(2), nil)

	d := w.personal(context.Background(), testCycle())
	require.NotNil(t, d)
	assert.Equal(t, PersonalLimit, len([]rune(d.Body)))
}

func TestSelectIdleRespectsFragmentCap(t *testing.T) {
	w := newWaterfall(&fakeGen{}, &store.Artifact{Body: "a"}, &store.Artifact{Body: "b"})
	seen := map[Kind]bool{}
	for range 500 {
		seen[w.selectIdle(testCycle())] = true
	}
	assert.False(t, seen[KindFragment])
	assert.False(t, seen[KindReflection], "reflection only competes inside the rambling branch")
	assert.True(t, seen[KindCommentary])
	assert.True(t, seen[KindExploration])
}

func TestSelectIdleRamblingBranch(t *testing.T) {
	w := newWaterfall(&fakeGen{})
	counts := map[Kind]int{}
	for range 2000 {
		counts[w.selectIdle(testCycle())]++
	}
	assert.Positive(t, counts[KindReflection])
	assert.Positive(t, counts[KindFragment])
	assert.Zero(t, counts[KindCommentary])
	assert.Greater(t, counts[KindFragment], counts[KindReflection])
}

func TestSelectActive(t *testing.T) {
	w := newWaterfall(&fakeGen{}, &store.Artifact{Body: "a"}, &store.Artifact{Body: "b"})
	v := mood.Default()
	v.Curiosity = 10
	for range 100 {
		assert.Equal(t, KindPersonal, w.selectActive(cycle{v: v, now: now}))
	}
}

func TestRun(t *testing.T) {
	t.Run("produces a draft", func(t *testing.T) {
		w := newWaterfall(&fakeGen{})
		item := feed.Item{Source: "Hacker News", Title: "story", URL: "https://hn/2", Type: feed.TypeTechNews}
		w.Feed = &fakeFeed{batch: []feed.Item{item}, item: &item}
		d := w.Run(context.Background(), mood.Default())
		require.NotNil(t, d)
		assert.NotEmpty(t, d.Body)
		assert.Equal(t, "test/model", d.Model)
	})

	t.Run("no generator", func(t *testing.T) {
		w := newWaterfall(nil)
		assert.Nil(t, w.Run(context.Background(), mood.Default()))
	})
}

func TestDraftText(t *testing.T) {
	assert.Equal(t, "body", (&Draft{Body: "body"}).Text())
	assert.Equal(t, "body\n\n> q", (&Draft{Body: "body", Quote: "> q"}).Text())
}
