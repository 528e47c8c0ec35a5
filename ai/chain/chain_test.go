package chain

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argoclaw/Clawtter-Argo/ai/core/llm"
)

type fakeEndpoint struct {
	label string
	text  string
	err   error
	calls *int32
}

func (f *fakeEndpoint) Label() string { return f.label }

func (f *fakeEndpoint) Generate(ctx context.Context, p llm.Prompt) (string, error) {
	if f.calls != nil {
		atomic.AddInt32(f.calls, 1)
	}
	return f.text, f.err
}

type countingObserver struct{ n int }

func (o *countingObserver) OnExhausted(context.Context) { o.n++ }

type fakeFactory struct {
	endpoints map[string]*fakeEndpoint
	calls     map[string]*int32
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{endpoints: map[string]*fakeEndpoint{}, calls: map[string]*int32{}}
}

func (f *fakeFactory) set(key, text string, err error) {
	var n int32
	f.calls[key] = &n
	f.endpoints[key] = &fakeEndpoint{label: key, text: text, err: err, calls: &n}
}

func (f *fakeFactory) build(c Candidate) (llm.Endpoint, error) {
	key := c.Key()
	if c.ProviderID == "secondary" {
		key = c.ModelID
	}
	e, ok := f.endpoints[key]
	if !ok {
		return &fakeEndpoint{label: key, err: errors.New("unreachable")}, nil
	}
	return e, nil
}

func (f *fakeFactory) count(key string) int32 {
	if n, ok := f.calls[key]; ok {
		return atomic.LoadInt32(n)
	}
	return 0
}

func seeded() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func TestDispatch_StopsAtFirstSuccess(t *testing.T) {
	f := newFakeFactory()
	f.set("p/one", "", errors.New("boom"))
	f.set("p/two", "", context.DeadlineExceeded)
	f.set("p/three", "hello", nil)
	f.set("p/four", "never", nil)

	c := New(&Registry{}, f.build, seeded())
	cands := []Candidate{
		{ProviderID: "p", ModelID: "one"},
		{ProviderID: "p", ModelID: "two"},
		{ProviderID: "p", ModelID: "three"},
		{ProviderID: "p", ModelID: "four"},
	}

	res, ok := c.Dispatch(context.Background(), llm.Prompt{User: "u"}, cands, StageRanked)
	require.True(t, ok)
	assert.Equal(t, Result{Text: "hello", Label: "p/three"}, res)
	assert.Equal(t, int32(1), f.count("p/one"))
	assert.Equal(t, int32(1), f.count("p/two"))
	assert.Zero(t, f.count("p/four"))
}

func TestDispatch_EmptyTextIsFailure(t *testing.T) {
	f := newFakeFactory()
	f.set("p/blank", "", nil)
	f.set("p/ok", "fine", nil)

	c := New(&Registry{}, f.build, seeded())
	res, ok := c.Dispatch(context.Background(), llm.Prompt{}, []Candidate{
		{ProviderID: "p", ModelID: "blank"},
		{ProviderID: "p", ModelID: "ok"},
	}, StageRanked)
	require.True(t, ok)
	assert.Equal(t, "p/ok", res.Label)
}

func TestGenerate_SecondaryAfterTotalFailure(t *testing.T) {
	f := newFakeFactory()
	reg := &Registry{
		Providers: map[string]ProviderConfig{
			"opencode": {API: "cli", Models: []ModelConfig{{ID: "a"}, {ID: "b"}}},
			"nvidia":   {API: "openai-completions", Models: []ModelConfig{{ID: "c"}}},
		},
	}
	for _, k := range []string{"opencode/a", "opencode/b", "nvidia/c"} {
		f.set(k, "", errors.New("down"))
	}

	var secondary []string
	for i := range 10 {
		name := "backup/m" + string(rune('0'+i))
		secondary = append(secondary, name)
		f.set(name, "", errors.New("down"))
	}
	reg.Secondary = secondary

	// Backups run in configured order; only the third one is healthy.
	order := reg.SecondaryCandidates(10)
	third := order[2].ModelID
	require.Equal(t, "backup/m2", third)
	f.set(third, "rescued", nil)

	obs := &countingObserver{}
	lastCalls := int32(0)
	last := &fakeEndpoint{label: "zhipu-ai/glm-4-flash", text: "last", calls: &lastCalls}
	c := New(reg, f.build, rand.New(rand.NewPCG(7, 7)), WithObserver(obs), WithLastResort(last))

	res, err := c.Generate(context.Background(), llm.Prompt{User: "u"})
	require.NoError(t, err)
	assert.Equal(t, Result{Text: "rescued", Label: third}, res)
	assert.Equal(t, 1, obs.n, "stress must rise exactly once")
	assert.Zero(t, atomic.LoadInt32(&lastCalls))
	assert.Zero(t, f.count(order[3].ModelID))
}

func TestGenerate_LastResortRetries(t *testing.T) {
	reg := &Registry{Providers: map[string]ProviderConfig{
		"opencode": {API: "cli", Models: []ModelConfig{{ID: "a"}}},
	}}
	f := newFakeFactory()
	f.set("opencode/a", "", errors.New("down"))

	lastCalls := int32(0)
	last := &fakeEndpoint{label: "zhipu-ai/glm-4-flash", err: errors.New("busy"), calls: &lastCalls}
	obs := &countingObserver{}
	c := New(reg, f.build, seeded(), WithObserver(obs), WithLastResort(last), WithBackoff(time.Millisecond))

	_, err := c.Generate(context.Background(), llm.Prompt{User: "u"})
	assert.True(t, errors.Is(err, ErrExhausted))
	assert.Equal(t, int32(2), atomic.LoadInt32(&lastCalls))
	assert.Equal(t, 1, obs.n)
}

func TestGenerate_FirstRankedWins(t *testing.T) {
	reg := &Registry{Providers: map[string]ProviderConfig{
		"opencode": {API: "cli", Models: []ModelConfig{{ID: "a"}}},
		"other":    {API: "chat", Models: []ModelConfig{{ID: "z"}}},
	}}
	f := newFakeFactory()
	f.set("opencode/a", "local text", nil)
	f.set("other/z", "hosted text", nil)
	obs := &countingObserver{}

	res, err := New(reg, f.build, seeded(), WithObserver(obs)).Generate(context.Background(), llm.Prompt{})
	require.NoError(t, err)
	assert.Equal(t, "local text", res.Text)
	assert.Zero(t, obs.n)
	assert.Zero(t, f.count("other/z"))
}

func TestRank(t *testing.T) {
	reg := &Registry{Providers: map[string]ProviderConfig{
		"opencode":    {API: "cli", Models: []ModelConfig{{ID: "l1"}, {ID: "l2"}}},
		"nvidia":      {API: "chat", Models: []ModelConfig{{ID: "c1"}}},
		"qwen-portal": {API: "chat", Models: []ModelConfig{{ID: "c2"}}},
		"openrouter":  {API: "chat", Models: []ModelConfig{{ID: "h1"}}},
		"google":      {API: "google-generative-ai", Models: []ModelConfig{{ID: "h2"}}},
	}}
	cands := reg.Candidates()

	t.Run("tiers are contiguous", func(t *testing.T) {
		for seed := uint64(0); seed < 20; seed++ {
			got := Rank(cands, nil, rand.New(rand.NewPCG(seed, 1)))
			require.Len(t, got, 6)
			var tiers []Tier
			for _, c := range got {
				tiers = append(tiers, c.Tier)
			}
			assert.Equal(t, []Tier{1, 1, 2, 2, 3, 3}, tiers)
		}
	})

	t.Run("health filters hosted but not local", func(t *testing.T) {
		report := &HealthReport{Results: []HealthResult{
			{Provider: "nvidia", Model: "nvidia/c1", Success: true},
			{Provider: "google", Model: "h2", Success: true},
			{Provider: "openrouter", Model: "h1", Success: false},
		}}
		got := Rank(cands, report, seeded())
		var keys []string
		for _, c := range got {
			if c.Tier != TierLocal {
				keys = append(keys, c.Key())
			}
		}
		if diff := cmp.Diff([]string{"nvidia/c1", "google/h2"}, keys); diff != "" {
			t.Errorf("ranked hosted candidates mismatch (-want +got):\n%s", diff)
		}
		assert.Len(t, got, 4)
	})

	t.Run("empty filter result falls back to full list", func(t *testing.T) {
		hostedOnly := []Candidate{{ProviderID: "x", ModelID: "y", Tier: TierHosted}}
		got := Rank(hostedOnly, &HealthReport{}, seeded())
		assert.Len(t, got, 1)
	})

	t.Run("same seed same order", func(t *testing.T) {
		a := Rank(cands, nil, rand.New(rand.NewPCG(5, 5)))
		b := Rank(cands, nil, rand.New(rand.NewPCG(5, 5)))
		assert.Equal(t, a, b)
	})
}

func TestHealthReport_SaveLoad(t *testing.T) {
	reg := &Registry{Providers: map[string]ProviderConfig{
		"nvidia": {API: "chat", Models: []ModelConfig{{ID: "c1"}}},
	}}
	path := t.TempDir() + "/model-status.json"

	missing, err := LoadHealthReport(path)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, BuildHealthReport(reg, time.Now()).Save(path))
	got, err := LoadHealthReport(path)
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.True(t, got.Healthy(Candidate{ProviderID: "nvidia", ModelID: "c1"}))
}

func TestRegistry_SecondaryDefaultsToAllModels(t *testing.T) {
	reg := &Registry{Providers: map[string]ProviderConfig{
		"a": {API: "chat", Models: []ModelConfig{{ID: "1"}, {ID: "2"}}},
		"b": {API: "cli", Models: []ModelConfig{{ID: "3"}}},
	}}
	got := reg.SecondaryCandidates(10)
	var names []string
	for _, c := range got {
		assert.Equal(t, llm.MethodCLI, c.Method)
		names = append(names, c.ModelID)
	}
	assert.ElementsMatch(t, []string{"a/1", "a/2", "b/3"}, names)
	assert.Len(t, reg.SecondaryCandidates(2), 2)
}

func TestRegistry_SecondaryKeepsConfiguredOrder(t *testing.T) {
	reg := &Registry{}
	for i := range 12 {
		reg.Secondary = append(reg.Secondary, fmt.Sprintf("backup/m%02d", i))
	}
	var names []string
	for _, c := range reg.SecondaryCandidates(10) {
		names = append(names, c.ModelID)
	}
	assert.Equal(t, reg.Secondary[:10], names)
}
