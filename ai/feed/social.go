package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Post is one timeline entry returned by the social CLI.
type Post struct {
	ID     string   `json:"id"`
	Text   string   `json:"text"`
	Handle string   `json:"-"`
	Name   string   `json:"-"`
	Media  []string `json:"-"`
	Score  int      `json:"-"`
}

// URL links to the post on the network.
func (p Post) URL() string {
	return fmt.Sprintf("https://x.com/%s/status/%s", p.Handle, p.ID)
}

// SocialConfig configures the timeline reader.
type SocialConfig struct {
	Binary      string
	Args        []string
	Timeout     time.Duration
	Owner       string
	KeyAccounts []string
}

var (
	discussionMarkers = []string{"?", "？", "怎么看", "what do you think", "thoughts", "为什么", "why"}
	reactionMarkers   = []string{"!", "！", "哈哈", "lol", "wow", "amazing", "太"}
)

// SocialReader shells out to a social CLI returning JSON timeline entries
// and scores them by relevance.
type SocialReader struct {
	cfg SocialConfig
	rng *rand.Rand
}

// NewSocialReader creates a reader; the default command is
// "bird-x home --json -n 40".
func NewSocialReader(cfg SocialConfig, rng *rand.Rand) *SocialReader {
	if cfg.Binary == "" {
		cfg.Binary = "bird-x"
	}
	if cfg.Args == nil {
		cfg.Args = []string{"home", "--json", "-n", "40"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SocialReader{cfg: cfg, rng: rng}
}

func (r *SocialReader) Name() string { return "Twitter" }

// Timeline runs the CLI and decodes its output.
func (r *SocialReader) Timeline(ctx context.Context) ([]Post, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.cfg.Binary, r.cfg.Args...)
	cmd.WaitDelay = time.Second
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "%s failed", r.cfg.Binary)
	}

	var raw []struct {
		ID     string `json:"id"`
		Text   string `json:"text"`
		Author struct {
			Username string `json:"username"`
			Name     string `json:"name"`
		} `json:"author"`
		Media []struct {
			URL string `json:"url"`
		} `json:"media"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, errors.Wrap(err, "failed to decode timeline")
	}

	posts := make([]Post, 0, len(raw))
	for _, e := range raw {
		p := Post{ID: e.ID, Text: e.Text, Handle: e.Author.Username, Name: e.Author.Name}
		for _, m := range e.Media {
			if m.URL != "" {
				p.Media = append(p.Media, m.URL)
			}
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// Score rates a post: +3 key account, +1 interest match, +2 discussion
// marker, +1 reaction marker.
func (r *SocialReader) Score(p Post, interests []string) int {
	score := 0
	for _, acct := range r.cfg.KeyAccounts {
		if strings.EqualFold(strings.TrimPrefix(acct, "@"), p.Handle) {
			score += 3
			break
		}
	}
	lower := strings.ToLower(p.Text)
	if containsAny(lower, interests) {
		score++
	}
	if containsAny(lower, discussionMarkers) {
		score += 2
	}
	if containsAny(lower, reactionMarkers) {
		score++
	}
	return score
}

// Pick returns a random post from the five best scored, skipping the
// owner's own posts and plain retweets. It returns nil when nothing is
// left.
func (r *SocialReader) Pick(ctx context.Context, interests []string) (*Post, error) {
	posts, err := r.Timeline(ctx)
	if err != nil {
		return nil, err
	}
	var pool []Post
	for _, p := range posts {
		if p.ID == "" || strings.TrimSpace(p.Text) == "" || strings.HasPrefix(p.Text, "RT @") {
			continue
		}
		if r.cfg.Owner != "" && strings.EqualFold(p.Handle, strings.TrimPrefix(r.cfg.Owner, "@")) {
			continue
		}
		p.Score = r.Score(p, interests)
		pool = append(pool, p)
	}
	if len(pool) == 0 {
		return nil, nil
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Score > pool[j].Score })
	pool = pool[:min(5, len(pool))]
	p := pool[r.rng.IntN(len(pool))]
	return &p, nil
}

// Fetch adapts Pick to the Source interface.
func (r *SocialReader) Fetch(ctx context.Context) (*Item, error) {
	p, err := r.Pick(ctx, nil)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.New("timeline has no usable posts")
	}
	return &Item{
		Source: r.Name(),
		Title:  "@" + p.Handle,
		Text:   p.Text,
		URL:    p.URL(),
		Type:   TypeSocial,
		Author: p.Handle,
	}, nil
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
