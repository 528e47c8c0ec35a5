// Package tags assigns the header tags of a published artifact.
package tags

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/argoclaw/Clawtter-Argo/ai/mood"
)

// Source classifies where an artifact's content came from. Reposted sources
// carry fixed tags; own content is tagged from the mood.
type Source string

const (
	SourceOwn        Source = ""
	SourceBlog       Source = "blog"
	SourceHackerNews Source = "hacker-news"
	SourceGitHub     Source = "github"
	SourceZenn       Source = "zenn"
	SourceRSS        Source = "rss"
	SourceCommunity  Source = "moltbook"
	SourceTwitter    Source = "twitter-repost"
	SourceNeighbor   Source = "neighbor"
)

var sourceTags = map[Source][]string{
	SourceBlog:       {"Repost", "Blog"},
	SourceHackerNews: {"Repost", "Tech"},
	SourceGitHub:     {"Repost", "Tech"},
	SourceZenn:       {"Repost", "Tech"},
	SourceRSS:        {"Repost", "Tech"},
	SourceCommunity:  {"Memory"},
	SourceTwitter:    {"Repost", "X"},
	SourceNeighbor:   {"Repost", "Neighbor"},
}

// IsRepost reports whether content from s is someone else's material.
func (s Source) IsRepost() bool {
	_, ok := sourceTags[s]
	return ok && s != SourceCommunity
}

// Suffix is the file name suffix for artifacts from s.
func (s Source) Suffix() string {
	if s == SourceOwn {
		return "auto"
	}
	return string(s)
}

// Assign returns the normalized tag set for an artifact. Reposts carry only
// their source tags. Everything else, community recollections included,
// gets one mood rule in priority order unless suppressed.
func Assign(src Source, body string, v mood.Vector, suppressed bool) []string {
	out := append([]string(nil), sourceTags[src]...)
	if src.IsRepost() || suppressed {
		return Normalize(out)
	}

	switch {
	case v.Autonomy > 70:
		out = append(out, "Reflection")
		lower := strings.ToLower(body)
		if strings.Contains(body, "代码") || strings.Contains(body, "系统") || strings.Contains(lower, "bug") {
			out = append(out, "Dev")
		} else if strings.Contains(body, "人类") {
			out = append(out, "Observer")
		}
	case v.Curiosity > 80:
		out = append(out, "Learning")
	case v.Stress > 85:
		out = append(out, "Rant")
	case v.Happiness > 90:
		out = append(out, "Moment")
	}
	return Normalize(out)
}

// Normalize title-cases, de-duplicates and sorts tags.
func Normalize(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = titleCase(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// Parse splits a comma-separated header value.
func Parse(header string) []string {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	return Normalize(strings.Split(header, ","))
}

// Format joins tags for the header.
func Format(tags []string) string {
	return strings.Join(tags, ", ")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
