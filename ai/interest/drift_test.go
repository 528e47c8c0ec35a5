package interest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	base := []string{"Rust", "agents", "kyoto"}

	tests := []struct {
		name    string
		weights map[string]float64
		text    string
		want    map[string]float64
	}{
		{
			name: "fresh keywords start at one",
			text: "",
			want: map[string]float64{"rust": 1.0, "agents": 1.0, "kyoto": 1.0},
		},
		{
			name:    "mentions boost capped at three",
			weights: map[string]float64{"rust": 1.0, "agents": 1.0, "kyoto": 1.0},
			text:    "rust rust RUST rust rust and agents",
			want:    map[string]float64{"rust": 1.6, "agents": 1.2, "kyoto": 1.0},
		},
		{
			name:    "decay pulls toward one",
			weights: map[string]float64{"rust": 2.0, "agents": 0.5, "kyoto": 1.0},
			text:    "nothing relevant",
			want:    map[string]float64{"rust": 1.9, "agents": 0.55, "kyoto": 1.0},
		},
		{
			name:    "ceiling holds",
			weights: map[string]float64{"rust": 2.4, "agents": 1.0, "kyoto": 1.0},
			text:    "rust rust rust",
			want:    map[string]float64{"rust": 2.5, "agents": 1.0, "kyoto": 1.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(base, tt.weights, tt.text)
			require.Len(t, got, len(tt.want))
			for k, w := range tt.want {
				assert.InDelta(t, w, got[k], 1e-9, k)
			}
		})
	}
}

func TestRanked(t *testing.T) {
	got := Ranked(map[string]float64{"b": 1.0, "a": 1.0, "c": 2.0})
	assert.Equal(t, []string{"c", "a", "b"}, got)
}

func TestDrift_UpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interest.json")
	d := NewDrift(path, []string{"go", "tea"}, nil)

	ranked, err := d.Update("go go go")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "tea"}, ranked)

	state := d.Load()
	assert.InDelta(t, 1.6, state.Weights["go"], 1e-9)
	assert.False(t, state.UpdatedAt.IsZero())
}
