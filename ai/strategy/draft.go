package strategy

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/argoclaw/Clawtter-Argo/ai/feed"
	"github.com/argoclaw/Clawtter-Argo/ai/tags"
)

// Kind names a content strategy.
type Kind string

const (
	KindIntrospection Kind = "introspection"
	KindBlog          Kind = "blog_reflection"
	KindAggregation   Kind = "aggregation"
	KindRetrospective Kind = "retrospective"
	KindSocial        Kind = "social"
	KindCommentary    Kind = "commentary"
	KindNeighbor      Kind = "neighbor"
	KindOnThisDay     Kind = "on_this_day"
	KindExploration   Kind = "exploration"
	KindFragment      Kind = "fragment"
	KindReflection    Kind = "reflection"
	KindPersonal      Kind = "personal"
	KindInsomnia      Kind = "insomnia"
)

// Draft is generated content ready for validation and tagging.
type Draft struct {
	Kind  Kind
	Body  string
	Quote string
	Model string

	Source       tags.Source
	OriginalURL  string
	OriginalTime string

	// NoTags marks low-density fragments that are published untagged.
	NoTags bool
}

// Text is the artifact body: the comment followed by any quote block.
func (d *Draft) Text() string {
	if d.Quote == "" {
		return d.Body
	}
	return d.Body + "\n\n" + d.Quote
}

// PersonalLimit caps personal posts, in runes.
const PersonalLimit = 300

var (
	bracketTitle = regexp.MustCompile(`^\s*(【[^】\n]*】|\[[^\]\n]*\])\s*$`)
	hashtag      = regexp.MustCompile(`(^|\s)#[\p{L}\p{N}_]+`)
	quoteTrim    = "\"'“”「」"
)

// Normalize strips a leading bracketed title line, hashtags and wrapping
// quotes from generated text.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	if first, rest, ok := strings.Cut(text, "\n"); ok && bracketTitle.MatchString(first) {
		text = strings.TrimSpace(rest)
	}
	text = hashtag.ReplaceAllString(text, "$1")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	text = strings.TrimSpace(strings.Join(lines, "\n"))
	return strings.TrimSpace(strings.Trim(text, quoteTrim))
}

// Cap truncates text to limit runes, marking the cut with "...".
func Cap(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit-3]) + "..."
}

// sourceOf maps a fetched item to the artifact source it is reposted as.
func sourceOf(item *feed.Item) tags.Source {
	switch item.Type {
	case feed.TypeTechNews:
		return tags.SourceHackerNews
	case feed.TypeSocial:
		return tags.SourceTwitter
	case feed.TypeCommunity:
		return tags.SourceCommunity
	default:
		return tags.SourceRSS
	}
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
