// Package filter keeps credentials and private identifiers out of anything
// the agent publishes.
package filter

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrSensitiveContent is returned when text trips the denylist.
var ErrSensitiveContent = errors.New("sensitive content")

// DefaultDenylist holds substrings that must never reach a published
// artifact. Matching is case-insensitive.
var DefaultDenylist = []string{
	"验证码",
	"verification code",
	"verification_code",
	"密钥",
	"api key",
	"apikey",
	"secret",
	"credential",
	"claim",
	"token",
	"password",
	"密码",
	"scuttle",
	"moltbook.com/claim",
}

// Guard screens composed artifact text before it is written.
type Guard struct {
	denylist []string
}

// NewGuard creates a Guard. An empty list uses DefaultDenylist.
func NewGuard(denylist []string) *Guard {
	if len(denylist) == 0 {
		denylist = DefaultDenylist
	}
	lowered := make([]string, 0, len(denylist))
	for _, kw := range denylist {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &Guard{denylist: lowered}
}

// Match returns the first denylisted keyword found in text.
func (g *Guard) Match(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range g.denylist {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// Screen returns ErrSensitiveContent, annotated with the keyword, when text
// contains any denylisted substring.
func (g *Guard) Screen(text string) error {
	if kw, ok := g.Match(text); ok {
		return errors.Wrapf(ErrSensitiveContent, "matched %q", kw)
	}
	return nil
}

// FilterLines drops every line that trips the denylist.
func (g *Guard) FilterLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if _, ok := g.Match(line); !ok {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
