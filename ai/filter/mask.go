package filter

import (
	"regexp"
	"strings"
)

// Kind names one class of private identifier the Masker rewrites.
type Kind int

const (
	Phone Kind = iota
	Email
	IP
	HomePath
	BearerToken
)

var patterns = map[Kind]*regexp.Regexp{
	Phone:       regexp.MustCompile(`\b1[3-9]\d{9}\b`),
	Email:       regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`),
	IP:          regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1?\d\d?)\.){3}(?:25[0-5]|2[0-4]\d|1?\d\d?)\b`),
	HomePath:    regexp.MustCompile(`/(?:home|Users)/[A-Za-z0-9._-]+`),
	BearerToken: regexp.MustCompile(`\b(?:sk|ghp|xox[bp])-?[A-Za-z0-9_-]{16,}\b`),
}

// replacements are fixed placeholders rather than partial masks so nothing
// of the original survives in published text.
var replacements = map[Kind]string{
	Phone:       "[phone]",
	Email:       "[email]",
	IP:          "[ip]",
	HomePath:    "~",
	BearerToken: "[redacted]",
}

// Masker rewrites private identifiers in text destined for a prompt.
type Masker struct {
	kinds []Kind
}

// NewMasker creates a masker for kinds; none means all of them.
func NewMasker(kinds ...Kind) *Masker {
	if len(kinds) == 0 {
		kinds = []Kind{BearerToken, Email, Phone, IP, HomePath}
	}
	return &Masker{kinds: kinds}
}

// Mask returns text with every match replaced by its placeholder.
func (m *Masker) Mask(text string) string {
	for _, k := range m.kinds {
		re, ok := patterns[k]
		if !ok {
			continue
		}
		text = re.ReplaceAllString(text, replacements[k])
	}
	return text
}

// Desensitize drops denylisted lines and masks what remains.
func Desensitize(text string, g *Guard, m *Masker) string {
	if g != nil {
		text = g.FilterLines(text)
	}
	if m != nil {
		text = m.Mask(text)
	}
	return strings.TrimSpace(text)
}
