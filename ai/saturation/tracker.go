// Package saturation guards against repeating the same topic within a day
// by scanning the artifacts already published today.
package saturation

import (
	"log/slog"
	"strings"

	"github.com/argoclaw/Clawtter-Argo/store"
)

// DefaultThreshold is how many similar posts make a topic saturated.
const DefaultThreshold = 2

// TodaySource lists today's artifacts.
type TodaySource interface {
	Today() ([]*store.Artifact, error)
}

// Tracker answers day-scoped repetition questions. It keeps no state of its
// own; every answer is recomputed from the artifacts.
type Tracker struct {
	src TodaySource
}

// NewTracker creates a Tracker over src.
func NewTracker(src TodaySource) *Tracker {
	return &Tracker{src: src}
}

func (t *Tracker) today() []*store.Artifact {
	list, err := t.src.Today()
	if err != nil {
		slog.Warn("Saturation: failed to read today's artifacts", "error", err)
		return nil
	}
	return list
}

// IsTopicSaturated reports whether at least threshold of today's artifacts
// mention any of keywords, case-insensitively.
func (t *Tracker) IsTopicSaturated(keywords []string, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(kw); kw != "" {
			lowered = append(lowered, kw)
		}
	}
	if len(lowered) == 0 {
		return false
	}

	count := 0
	for _, a := range t.today() {
		body := strings.ToLower(a.Body)
		for _, kw := range lowered {
			if strings.Contains(body, kw) {
				count++
				break
			}
		}
	}
	if count >= threshold {
		slog.Info("Saturation: topic saturated", "keywords", keywords, "count", count)
		return true
	}
	return false
}

// CountToday counts today's artifacts matching pred.
func (t *Tracker) CountToday(pred func(*store.Artifact) bool) int {
	n := 0
	for _, a := range t.today() {
		if pred(a) {
			n++
		}
	}
	return n
}

// HasPostedToday reports whether any of today's artifacts contains substr.
// Artifacts containing exclude, when set, are ignored.
func (t *Tracker) HasPostedToday(substr, exclude string) bool {
	if substr == "" {
		return false
	}
	for _, a := range t.today() {
		text := a.Compose()
		if exclude != "" && strings.Contains(text, exclude) {
			continue
		}
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

// IsFragment matches the untagged low-density posts counted by the
// rambling cap.
func IsFragment(a *store.Artifact) bool {
	return !a.HasTags()
}
