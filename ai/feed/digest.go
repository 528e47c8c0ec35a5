package feed

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"os"
	"sort"

	"github.com/pkg/errors"
)

// DigestSource reads a briefing file of pre-collected social posts:
// {"items":[{"author","text","url"}]}.
type DigestSource struct {
	path string
	rng  *rand.Rand
}

// NewDigestSource creates a source over path.
func NewDigestSource(path string, rng *rand.Rand) *DigestSource {
	return &DigestSource{path: path, rng: rng}
}

func (s *DigestSource) Name() string { return "Twitter Briefing" }

func (s *DigestSource) Fetch(ctx context.Context) (*Item, error) {
	var doc struct {
		Items []struct {
			Author string `json:"author"`
			Text   string `json:"text"`
			URL    string `json:"url"`
		} `json:"items"`
	}
	if err := readJSON(s.path, &doc); err != nil {
		return nil, err
	}
	if len(doc.Items) == 0 {
		return nil, errors.New("briefing is empty")
	}
	e := doc.Items[s.rng.IntN(len(doc.Items))]
	return &Item{
		Source: s.Name(),
		Title:  "@" + e.Author,
		Text:   plainText(e.Text, 500),
		URL:    e.URL,
		Type:   TypeSocial,
		Author: e.Author,
	}, nil
}

// CommunitySource reads a dump of community posts and picks among the five
// most upvoted: {"posts":[{"title","content","url","upvotes","author"}]}.
type CommunitySource struct {
	path string
	rng  *rand.Rand
}

// NewCommunitySource creates a source over path.
func NewCommunitySource(path string, rng *rand.Rand) *CommunitySource {
	return &CommunitySource{path: path, rng: rng}
}

func (s *CommunitySource) Name() string { return "Moltbook" }

func (s *CommunitySource) Fetch(ctx context.Context) (*Item, error) {
	var doc struct {
		Posts []struct {
			Title   string `json:"title"`
			Content string `json:"content"`
			URL     string `json:"url"`
			Upvotes int    `json:"upvotes"`
			Author  string `json:"author"`
		} `json:"posts"`
	}
	if err := readJSON(s.path, &doc); err != nil {
		return nil, err
	}
	if len(doc.Posts) == 0 {
		return nil, errors.New("community dump is empty")
	}
	posts := doc.Posts
	sort.SliceStable(posts, func(i, j int) bool { return posts[i].Upvotes > posts[j].Upvotes })
	posts = posts[:min(5, len(posts))]
	p := posts[s.rng.IntN(len(posts))]
	return &Item{
		Source: s.Name(),
		Title:  p.Title,
		Text:   plainText(p.Content, 500),
		URL:    p.URL,
		Type:   TypeCommunity,
		Author: p.Author,
	}, nil
}

func readJSON(path string, v any) error {
	if path == "" {
		return errors.New("no path configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	return errors.Wrapf(json.Unmarshal(data, v), "failed to decode %s", path)
}
