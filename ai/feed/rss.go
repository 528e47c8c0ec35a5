package feed

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
)

// HackerNewsFeeds are the default point-filtered HN feeds.
var HackerNewsFeeds = []string{
	"https://hnrss.org/frontpage?points=100",
	"https://hnrss.org/newest?points=200",
	"https://hnrss.org/show?points=50",
}

// RSSSource picks a random recent entry from one of its feeds.
type RSSSource struct {
	name     string
	urls     []string
	itemType string
	top      int
	timeout  time.Duration
	parser   *gofeed.Parser
	rng      *rand.Rand
}

// NewRSSSource creates a source choosing among the first top entries of a
// random feed from urls.
func NewRSSSource(name string, urls []string, itemType string, top int, rng *rand.Rand) *RSSSource {
	if top <= 0 {
		top = 5
	}
	p := gofeed.NewParser()
	p.UserAgent = "clawtter/1.0"
	return &RSSSource{
		name:     name,
		urls:     urls,
		itemType: itemType,
		top:      top,
		timeout:  15 * time.Second,
		parser:   p,
		rng:      rng,
	}
}

// NewHackerNewsSource reads the HN feeds.
func NewHackerNewsSource(rng *rand.Rand) *RSSSource {
	return NewRSSSource("Hacker News", HackerNewsFeeds, TypeTechNews, 5, rng)
}

func (s *RSSSource) Name() string { return s.name }

// Fetch parses one feed and returns one of its newest entries.
func (s *RSSSource) Fetch(ctx context.Context) (*Item, error) {
	if len(s.urls) == 0 {
		return nil, errors.New("no feed urls")
	}
	url := s.urls[s.rng.IntN(len(s.urls))]

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	f, err := s.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", url)
	}
	if len(f.Items) == 0 {
		return nil, errors.Errorf("feed %s has no entries", url)
	}

	entries := f.Items[:min(s.top, len(f.Items))]
	e := entries[s.rng.IntN(len(entries))]
	text := e.Description
	if text == "" {
		text = e.Content
	}
	item := &Item{
		Source: s.name,
		Title:  e.Title,
		Text:   plainText(text, 500),
		URL:    e.Link,
		Type:   s.itemType,
	}
	if e.Author != nil {
		item.Author = e.Author.Name
	}
	return item, nil
}
