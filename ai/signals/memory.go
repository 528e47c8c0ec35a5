// Package signals reads the local context a post can draw on: the owner's
// daily memory notes, recent file activity, code commits and blog posts.
package signals

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// MemoryDay is one daily memory note.
type MemoryDay struct {
	Date    string
	Content string
}

var (
	markdownPrefix = regexp.MustCompile(`^[#>\-\*\d\.\s]+`)
	inlineCode     = regexp.MustCompile("`.*?`")

	echoCues = []string{"人类", "互动", "交流", "对话", "聊天", "讨论", "协作", "一起", "回应", "反馈", "指示", "陪伴"}
	unsafe   = []string{"http", "/home/", "~/", "api", "token", "password", "密码", "credential", "verification", "验证码", "密钥", "claim", "sk-"}
	taskCues = []string{"实施", "成果", "完成"}
)

// Sanitizer cleans a line before it reaches a prompt. A nil Sanitizer
// leaves text untouched.
type Sanitizer func(string) string

// Memory reads daily notes named YYYY-MM-DD.md.
type Memory struct {
	dir   string
	loc   *time.Location
	now   func() time.Time
	rng   *rand.Rand
	clean Sanitizer
}

// NewMemory creates a reader over dir.
func NewMemory(dir string, loc *time.Location, now func() time.Time, rng *rand.Rand, clean Sanitizer) *Memory {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	if clean == nil {
		clean = func(s string) string { return s }
	}
	return &Memory{dir: dir, loc: loc, now: now, rng: rng, clean: clean}
}

// Path returns the note file for the day containing t.
func (m *Memory) Path(t time.Time) string {
	return filepath.Join(m.dir, t.In(m.loc).Format(time.DateOnly)+".md")
}

// Day returns the note for the day containing t, or "".
func (m *Memory) Day(t time.Time) string {
	data, err := os.ReadFile(m.Path(t))
	if err != nil {
		return ""
	}
	return string(data)
}

// Recent returns today's and yesterday's notes, today first.
func (m *Memory) Recent() []MemoryDay {
	now := m.now().In(m.loc)
	var days []MemoryDay
	for _, t := range []time.Time{now, now.AddDate(0, 0, -1)} {
		if c := m.Day(t); c != "" {
			days = append(days, MemoryDay{Date: t.Format(time.DateOnly), Content: c})
		}
	}
	return days
}

// RecentText joins Recent into one string.
func (m *Memory) RecentText() string {
	var parts []string
	for _, d := range m.Recent() {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, "\n")
}

// IsActive reports whether today's note was modified within window, which
// is taken as a sign the owner is around.
func (m *Memory) IsActive(window time.Duration) bool {
	info, err := os.Stat(m.Path(m.now()))
	if err != nil {
		return false
	}
	return m.now().Sub(info.ModTime()) < window
}

// InteractionEcho returns one short safe line mentioning an interaction,
// or "".
func (m *Memory) InteractionEcho() string {
	var candidates []string
	for _, line := range m.cleanLines() {
		if !containsAny(line, echoCues) {
			continue
		}
		line = strings.NewReplacer("“", "", "”", "", `"`, "", "'", "").Replace(line)
		line = strings.TrimSpace(inlineCode.ReplaceAllString(line, ""))
		if n := utf8.RuneCountInString(line); n >= 6 && n <= 80 {
			candidates = append(candidates, line)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return strings.TrimSpace(truncateRunes(candidates[m.rng.IntN(len(candidates))], 60))
}

// DetailAnchors returns up to n short concrete lines from recent notes
// followed by commit subjects, deduplicated case-insensitively.
func (m *Memory) DetailAnchors(commits []Commit, n int) []string {
	var anchors []string
	for _, line := range m.cleanLines() {
		if c := utf8.RuneCountInString(line); c >= 8 && c <= 90 {
			anchors = append(anchors, line)
		}
	}
	perRepo := map[string]int{}
	for _, c := range commits {
		if perRepo[c.Repo] >= 3 {
			continue
		}
		perRepo[c.Repo]++
		if l := utf8.RuneCountInString(c.Subject); l >= 6 && l <= 80 {
			anchors = append(anchors, c.Repo+": "+c.Subject)
		}
	}

	seen := map[string]bool{}
	var out []string
	for _, a := range anchors {
		key := strings.ToLower(a)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, truncateRunes(a, 80))
		if len(out) == n {
			break
		}
	}
	return out
}

// TaskHistory returns up to five bullet items following a completion
// heading in today's note.
func (m *Memory) TaskHistory() []string {
	var tasks []string
	collecting := false
	for _, raw := range strings.Split(m.Day(m.now()), "\n") {
		line := strings.TrimSpace(raw)
		if containsAny(line, taskCues) {
			collecting = true
			continue
		}
		if !collecting {
			continue
		}
		if strings.HasPrefix(line, "-") {
			task := strings.TrimSpace(strings.TrimLeft(line, "-* "))
			if n := utf8.RuneCountInString(task); n > 10 && n < 100 {
				tasks = append(tasks, m.clean(task))
			}
		}
		if line == "" && len(tasks) > 3 {
			break
		}
	}
	return tasks[:min(5, len(tasks))]
}

// cleanLines yields the sanitized, prefix-stripped lines of the recent
// notes that contain nothing resembling a credential or link.
func (m *Memory) cleanLines() []string {
	var lines []string
	for _, raw := range strings.Split(m.clean(m.RecentText()), "\n") {
		line := strings.TrimSpace(markdownPrefix.ReplaceAllString(strings.TrimSpace(raw), ""))
		if line == "" || containsAny(strings.ToLower(line), unsafe) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
