// Package store persists published artifacts as one markdown file each,
// laid out as <root>/YYYY/MM/DD/<timestamp>-<suffix>.md.
package store

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/argoclaw/Clawtter-Argo/ai/cache"
)

// ErrExists is returned when an artifact would overwrite another one.
var ErrExists = errors.New("artifact already exists")

// Screener vets composed text before it is written.
type Screener interface {
	Screen(text string) error
}

// Store is the artifact directory.
type Store struct {
	root   string
	loc    *time.Location
	screen Screener
	now    func() time.Time

	// today memoizes the current day's artifacts; Publish invalidates it.
	today *cache.DayIndex[[]*Artifact]
}

// New creates a store rooted at root. screen may be nil.
func New(root string, loc *time.Location, screen Screener, now func() time.Time) *Store {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		root:   root,
		loc:    loc,
		screen: screen,
		now:    now,
		today:  cache.NewDayIndex[[]*Artifact](loc, now),
	}
}

// Root returns the artifact directory.
func (s *Store) Root() string {
	return s.root
}

// Location returns the zone artifacts are dated in.
func (s *Store) Location() *time.Location {
	return s.loc
}

func (s *Store) dayDir(t time.Time) string {
	t = t.In(s.loc)
	return filepath.Join(s.root, t.Format("2006"), t.Format("01"), t.Format("02"))
}

// Publish screens and writes a new artifact under its day directory and
// returns the path.
func (s *Store) Publish(a *Artifact) (string, error) {
	rel, err := filepath.Rel(s.root, filepath.Join(s.dayDir(a.Time), a.FileName()))
	if err != nil {
		return "", errors.Wrap(err, "failed to build artifact path")
	}
	return s.PublishAt(rel, a)
}

// PublishAt screens and writes a at a path relative to the root. Nothing is
// written when screening fails or the path is taken.
func (s *Store) PublishAt(rel string, a *Artifact) (string, error) {
	composed := a.Compose()
	if s.screen != nil {
		if err := s.screen.Screen(composed); err != nil {
			slog.Warn("Store: artifact blocked by security filter", "error", err)
			return "", errors.Wrap(err, "artifact rejected")
		}
	}

	path := filepath.Join(s.root, rel)
	if _, err := os.Stat(path); err == nil {
		return "", errors.Wrapf(ErrExists, "%s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create artifact dir")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temp file")
	}
	if _, err := tmp.WriteString(composed); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, "failed to write artifact")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, "failed to close artifact")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, "failed to move artifact into place")
	}

	a.Path = path
	s.today.Invalidate(a.Time)
	slog.Info("Store: artifact published", "path", path, "tags", a.Tags)
	return path, nil
}

// Exists reports whether a path relative to the root is taken.
func (s *Store) Exists(rel string) bool {
	_, err := os.Stat(filepath.Join(s.root, rel))
	return err == nil
}

// Today returns the artifacts dated on the current day.
func (s *Store) Today() ([]*Artifact, error) {
	now := s.now()
	if cached, ok := s.today.Get(now); ok {
		return cached, nil
	}
	list, err := s.Day(now)
	if err != nil {
		return nil, err
	}
	s.today.Put(now, list)
	return list, nil
}

// Day scans the directory for t's date and returns the artifacts whose
// header carries that date, oldest first.
func (s *Store) Day(t time.Time) ([]*Artifact, error) {
	dir := s.dayDir(t)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to list %s", dir)
	}

	want := t.In(s.loc).Format(time.DateOnly)
	var out []*Artifact
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		a, err := s.read(filepath.Join(dir, e.Name()))
		if err != nil {
			slog.Debug("Store: skipping unreadable artifact", "name", e.Name(), "error", err)
			continue
		}
		if a.Time.In(s.loc).Format(time.DateOnly) == want {
			out = append(out, a)
		}
	}
	sortByTime(out)
	return out, nil
}

// Since returns every dated artifact created at or after t.
func (s *Store) Since(t time.Time) ([]*Artifact, error) {
	return s.collect(func(a *Artifact) bool { return !a.Time.Before(t) })
}

// Historical returns own posts older than cutoff, excluding rollups.
func (s *Store) Historical(cutoff time.Time) ([]*Artifact, error) {
	return s.collect(func(a *Artifact) bool {
		name := filepath.Base(a.Path)
		if strings.Contains(name, "summary") || strings.Contains(name, "recap") {
			return false
		}
		return a.Time.Before(cutoff)
	})
}

// OnThisDay returns artifacts from the same month and day 1..years years
// before t.
func (s *Store) OnThisDay(t time.Time, years int) ([]*Artifact, error) {
	var out []*Artifact
	for y := 1; y <= years; y++ {
		past := t.In(s.loc).AddDate(-y, 0, 0)
		list, err := s.Day(past)
		if err != nil {
			return nil, err
		}
		out = append(out, list...)
	}
	return out, nil
}

// Recent returns the newest n dated artifacts, newest first.
func (s *Store) Recent(n int) ([]*Artifact, error) {
	all, err := s.collect(func(*Artifact) bool { return true })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Time.After(all[j].Time) })
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (s *Store) collect(keep func(*Artifact) bool) ([]*Artifact, error) {
	var out []*Artifact
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == s.root {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}
		a, err := s.read(path)
		if err != nil || a.Time.IsZero() {
			return nil
		}
		if keep(a) {
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan artifacts")
	}
	sortByTime(out)
	return out, nil
}

func (s *Store) read(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := Decode(string(data), s.loc)
	if err != nil {
		return nil, err
	}
	a.Path = path
	return a, nil
}

func sortByTime(list []*Artifact) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Time.Before(list[j].Time) })
}
