// Package feed fetches candidate items from external sources. Failures are
// reported as empty results; nothing here is fatal to a cycle.
package feed

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Item types.
const (
	TypeTechNews  = "tech_news"
	TypeSocial    = "social"
	TypeCommunity = "community"
	TypeBlog      = "blog"
)

// Item is one externally fetched piece of content.
type Item struct {
	Source string `json:"source"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	URL    string `json:"url"`
	Type   string `json:"type"`
	Author string `json:"author,omitempty"`
}

// Source yields a single item per call.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*Item, error)
}

type weighted struct {
	src    Source
	weight int
}

// Aggregator picks among registered sources.
type Aggregator struct {
	sources []weighted
	rng     *rand.Rand
}

// NewAggregator creates an empty aggregator.
func NewAggregator(rng *rand.Rand) *Aggregator {
	return &Aggregator{rng: rng}
}

// Register adds src; weight is how many slots it gets in a batch pool.
func (a *Aggregator) Register(src Source, weight int) {
	if src == nil {
		return
	}
	if weight <= 0 {
		weight = 1
	}
	a.sources = append(a.sources, weighted{src: src, weight: weight})
}

// Len returns the number of registered sources.
func (a *Aggregator) Len() int {
	return len(a.sources)
}

// FetchItem fetches from the source whose name contains hint, or from a
// weighted random source when hint is empty or unknown.
func (a *Aggregator) FetchItem(ctx context.Context, hint string) *Item {
	if len(a.sources) == 0 {
		return nil
	}
	if hint != "" {
		for _, w := range a.sources {
			if strings.Contains(strings.ToLower(w.src.Name()), strings.ToLower(hint)) {
				return a.fetch(ctx, w.src)
			}
		}
	}
	pool := a.pool()
	return a.fetch(ctx, pool[a.rng.IntN(len(pool))])
}

// FetchBatch walks a shuffled weighted pool of sources until count items
// with distinct URLs are collected or the pool runs out.
func (a *Aggregator) FetchBatch(ctx context.Context, count int) []Item {
	pool := a.pool()
	a.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	seen := make(map[string]bool)
	var out []Item
	for _, src := range pool {
		if len(out) >= count || ctx.Err() != nil {
			break
		}
		item := a.fetch(ctx, src)
		if item == nil || item.URL == "" || seen[item.URL] {
			continue
		}
		seen[item.URL] = true
		out = append(out, *item)
	}
	return out
}

func (a *Aggregator) pool() []Source {
	var pool []Source
	for _, w := range a.sources {
		for range w.weight {
			pool = append(pool, w.src)
		}
	}
	return pool
}

func (a *Aggregator) fetch(ctx context.Context, src Source) *Item {
	item, err := src.Fetch(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Feed: source failed", "source", src.Name(), "error", err)
		return nil
	}
	return item
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// plainText strips markup and truncates to n runes.
func plainText(s string, n int) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
