package signals

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// CodeWindow is how far back commits count as recent.
const CodeWindow = 3 * time.Hour

// Commit is one recent commit subject.
type Commit struct {
	Repo    string
	Subject string
}

// gitWorkers bounds concurrent git invocations.
const gitWorkers = 4

// RecentCommits lists commit subjects made within window in each git
// working tree of dirs, in dirs order. Directories that are missing or not
// repositories are skipped.
func RecentCommits(ctx context.Context, dirs []string, window time.Duration) []Commit {
	perDir := make([][]Commit, len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(gitWorkers)
	for i, dir := range dirs {
		g.Go(func() error {
			perDir[i] = commitsIn(gctx, dir, window)
			return nil
		})
	}
	_ = g.Wait()

	var commits []Commit
	for _, list := range perDir {
		commits = append(commits, list...)
	}
	return commits
}

// Subjects returns the subject line of each commit.
func Subjects(commits []Commit) []string {
	out := make([]string, 0, len(commits))
	for _, c := range commits {
		out = append(out, c.Subject)
	}
	return out
}

func commitsIn(ctx context.Context, dir string, window time.Duration) []Commit {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	since := fmt.Sprintf("--since=%d minutes ago", int(window.Minutes()))
	cmd := exec.CommandContext(ctx, "git", "log", since, "--pretty=format:%s")
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil
	}
	var commits []Commit
	for _, s := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if s = strings.TrimSpace(s); s != "" {
			commits = append(commits, Commit{Repo: filepath.Base(dir), Subject: s})
		}
	}
	return commits
}

// HumanActivity is a summary of files recently touched under some roots.
type HumanActivity struct {
	Files      int
	Extensions []string
	Latest     string
}

// RecentFiles counts regular files under roots modified within window,
// ignoring hidden paths and dependency caches. It returns nil when nothing
// was touched.
func RecentFiles(roots []string, window time.Duration, now time.Time) *HumanActivity {
	counts := map[string]int{}
	var (
		total      int
		latest     string
		latestTime time.Time
	)
	for _, root := range roots {
		_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			name := d.Name()
			if d.IsDir() {
				if path != root && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "__pycache__" || name == "vendor") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(name, ".") {
				return nil
			}
			info, err := d.Info()
			if err != nil || now.Sub(info.ModTime()) > window {
				return nil
			}
			total++
			if ext := filepath.Ext(name); ext != "" {
				counts[ext]++
			}
			if info.ModTime().After(latestTime) {
				latestTime, latest = info.ModTime(), name
			}
			return nil
		})
	}
	if total == 0 {
		return nil
	}
	return &HumanActivity{Files: total, Extensions: topKeys(counts, 3), Latest: latest}
}

func topKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys[:min(n, len(keys))]
}
