package store

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/argoclaw/Clawtter-Argo/ai/tags"
)

// TimeLayout is the header time format.
const TimeLayout = "2006-01-02 15:04:05"

const delimiter = "---"

// Artifact is one published post: a small header followed by a body.
// Artifacts are never modified once written.
type Artifact struct {
	Time         time.Time
	Tags         []string
	Mood         string
	Model        string
	Cover        string
	OriginalTime string
	OriginalURL  string
	Body         string

	// Suffix names the file; Path is set once the artifact is on disk.
	Suffix string
	Path   string
}

// HasTags reports whether the artifact carries any tag.
func (a *Artifact) HasTags() bool {
	return len(a.Tags) > 0
}

// Compose renders the artifact in its on-disk form.
func (a *Artifact) Compose() string {
	var b strings.Builder
	b.WriteString(delimiter + "\n")
	fmt.Fprintf(&b, "time: %s\n", a.Time.Format(TimeLayout))
	fmt.Fprintf(&b, "tags: %s\n", tags.Format(a.Tags))
	fmt.Fprintf(&b, "mood: %s\n", a.Mood)
	fmt.Fprintf(&b, "model: %s\n", a.Model)
	for _, kv := range [][2]string{
		{"cover", a.Cover},
		{"original_time", a.OriginalTime},
		{"original_url", a.OriginalURL},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&b, "%s: %s\n", kv[0], kv[1])
		}
	}
	b.WriteString(delimiter + "\n\n")
	b.WriteString(strings.TrimSpace(a.Body))
	b.WriteString("\n")
	return b.String()
}

// Decode parses an artifact. Header values are unquoted single lines so a
// plain "key: value" split is used rather than a YAML decoder, which would
// reinterpret times and colons in model labels. Text without a header is
// returned as a body-only artifact.
func Decode(data string, loc *time.Location) (*Artifact, error) {
	a := &Artifact{}
	if !strings.HasPrefix(data, delimiter+"\n") {
		a.Body = strings.TrimSpace(data)
		return a, nil
	}

	rest := data[len(delimiter)+1:]
	end := strings.Index(rest, "\n"+delimiter)
	if end < 0 {
		return nil, errors.New("unterminated header")
	}
	header := rest[:end]
	a.Body = strings.TrimSpace(strings.TrimPrefix(rest[end+1:], delimiter))

	sc := bufio.NewScanner(strings.NewReader(header))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "time":
			t, err := time.ParseInLocation(TimeLayout, value, loc)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid time %q", value)
			}
			a.Time = t
		case "tags":
			a.Tags = tags.Parse(value)
		case "mood":
			a.Mood = value
		case "model":
			a.Model = value
		case "cover":
			a.Cover = value
		case "original_time":
			a.OriginalTime = value
		case "original_url":
			a.OriginalURL = value
		}
	}
	return a, nil
}

// FileName is the base name an artifact is stored under.
func (a *Artifact) FileName() string {
	suffix := a.Suffix
	if suffix == "" {
		suffix = "auto"
	}
	return fmt.Sprintf("%s-%s.md", a.Time.Format("2006-01-02-150405"), suffix)
}
