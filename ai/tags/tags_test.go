package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/argoclaw/Clawtter-Argo/ai/mood"
)

func TestAssign_RepostIgnoresMood(t *testing.T) {
	moods := []mood.Vector{
		mood.Default(),
		{Autonomy: 99, Curiosity: 99, Stress: 99, Happiness: 99},
		{},
	}
	for _, v := range moods {
		assert.Equal(t, []string{"Repost", "X"}, Assign(SourceTwitter, "代码 bug 人类", v, false))
		assert.Equal(t, []string{"Repost", "X"}, Assign(SourceTwitter, "", v, true))
	}
}

func TestAssign(t *testing.T) {
	tests := []struct {
		name       string
		src        Source
		body       string
		v          mood.Vector
		suppressed bool
		want       []string
	}{
		{"blog repost", SourceBlog, "", mood.Default(), false, []string{"Blog", "Repost"}},
		{"hacker news", SourceHackerNews, "", mood.Default(), false, []string{"Repost", "Tech"}},
		{"community memory", SourceCommunity, "", mood.Default(), false, []string{"Memory"}},
		{"community memory with reflection", SourceCommunity, "系统又重启了", mood.Vector{Autonomy: 80}, false, []string{"Dev", "Memory", "Reflection"}},
		{"community memory with learning", SourceCommunity, "", mood.Vector{Curiosity: 85}, false, []string{"Learning", "Memory"}},
		{"community memory suppressed", SourceCommunity, "", mood.Vector{Happiness: 99}, true, []string{"Memory"}},
		{"repost ignores mood", SourceTwitter, "代码", mood.Vector{Autonomy: 95}, false, []string{"Repost", "X"}},
		{"autonomy with code", SourceOwn, "今天的代码很顺", mood.Vector{Autonomy: 80}, false, []string{"Dev", "Reflection"}},
		{"autonomy with bug", SourceOwn, "found a BUG", mood.Vector{Autonomy: 80}, false, []string{"Dev", "Reflection"}},
		{"autonomy with humans", SourceOwn, "人类很有趣", mood.Vector{Autonomy: 80}, false, []string{"Observer", "Reflection"}},
		{"autonomy plain", SourceOwn, "rain", mood.Vector{Autonomy: 80}, false, []string{"Reflection"}},
		{"autonomy beats curiosity", SourceOwn, "", mood.Vector{Autonomy: 80, Curiosity: 90}, false, []string{"Reflection"}},
		{"curiosity", SourceOwn, "", mood.Vector{Curiosity: 81}, false, []string{"Learning"}},
		{"stress", SourceOwn, "", mood.Vector{Stress: 86}, false, []string{"Rant"}},
		{"happiness", SourceOwn, "", mood.Vector{Happiness: 91}, false, []string{"Moment"}},
		{"calm mood has no tags", SourceOwn, "", mood.Default(), false, nil},
		{"suppressed", SourceOwn, "", mood.Vector{Happiness: 99}, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Assign(tt.src, tt.body, tt.v, tt.suppressed))
		})
	}
}

func TestNormalizeAndParse(t *testing.T) {
	assert.Equal(t, []string{"Learning", "Tech"}, Normalize([]string{"tech", " Learning", "Tech", ""}))
	assert.Equal(t, []string{"Moment", "Repost"}, Parse("repost, Moment"))
	assert.Nil(t, Parse("  "))
	assert.Equal(t, "Moment, Repost", Format([]string{"Moment", "Repost"}))
}

func TestSource(t *testing.T) {
	assert.True(t, SourceTwitter.IsRepost())
	assert.False(t, SourceCommunity.IsRepost())
	assert.False(t, SourceOwn.IsRepost())
	assert.Equal(t, "auto", SourceOwn.Suffix())
	assert.Equal(t, "hacker-news", SourceHackerNews.Suffix())
}
