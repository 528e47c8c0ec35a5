package schedule

import (
	"math/rand/v2"
	"time"
)

// NextDelay draws the wait until the next cycle: 2-5h during the deep
// night (00:00-05:59), 30-90min otherwise.
func NextDelay(hour int, rng *rand.Rand) time.Duration {
	lo, hi := 30, 90
	if hour >= 0 && hour <= 5 {
		lo, hi = 120, 300
	}
	return time.Duration(lo+rng.IntN(hi-lo+1)) * time.Minute
}
