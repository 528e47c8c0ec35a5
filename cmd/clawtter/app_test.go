package main

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argoclaw/Clawtter-Argo/internal/profile"
)

// farZone returns a zone whose offset differs from the host's.
func farZone(t *testing.T) string {
	t.Helper()
	_, hostOffset := time.Now().Zone()
	for _, name := range []string{"Pacific/Kiritimati", "Etc/GMT+12"} {
		loc, err := time.LoadLocation(name)
		require.NoError(t, err)
		if _, off := time.Now().In(loc).Zone(); off != hostOffset {
			return name
		}
	}
	t.Fatal("no zone differs from the host")
	return ""
}

func TestPipelineUsesProfileTimezone(t *testing.T) {
	tz := farZone(t)
	p := &profile.Profile{Data: t.TempDir(), Timezone: tz}
	require.NoError(t, p.Validate())

	a, err := newApp(p)
	require.NoError(t, err)
	pl := a.pipeline(context.Background())

	loc, err := time.LoadLocation(tz)
	require.NoError(t, err)
	_, want := time.Now().In(loc).Zone()

	for name, now := range map[string]time.Time{
		"waterfall": pl.waterfall.Now(),
		"validator": pl.validator.Now(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tz, now.Location().String())
			_, off := now.Zone()
			assert.Equal(t, want, off)
			assert.WithinDuration(t, time.Now(), now, time.Minute)
		})
	}
}
