package mood

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// FileStore persists a Vector as a single JSON document.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the persisted mood. A missing file yields Default and
// found=false. A corrupt file is treated the same way and logged.
func (s *FileStore) Load() (v Vector, found bool, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), false, nil
		}
		return Default(), false, errors.Wrapf(err, "failed to read mood file %s", s.path)
	}

	v = Default()
	if err := json.Unmarshal(data, &v); err != nil {
		slog.Warn("Mood: corrupt mood file, using defaults", "path", s.path, "error", err)
		return Default(), false, nil
	}
	v.ClampAll()
	return v, true, nil
}

// Save overwrites the file with v. The write goes through a temp file and
// rename so a crash never leaves a half-written document.
func (s *FileStore) Save(v Vector) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode mood")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create mood dir")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write mood file")
	}
	return errors.Wrap(os.Rename(tmp, s.path), "failed to replace mood file")
}

// Session is the working mood of one cycle. Every mutation is persisted
// immediately so later steps and the next cycle see it.
type Session struct {
	store   *FileStore
	current Vector
	now     func() time.Time
}

// NewSession wraps an already loaded vector.
func NewSession(store *FileStore, v Vector, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{store: store, current: v, now: now}
}

// Current returns a copy of the working mood.
func (s *Session) Current() Vector {
	return s.current
}

// Update applies fn, clamps and persists.
func (s *Session) Update(fn func(*Vector)) error {
	fn(&s.current)
	s.current.ClampAll()
	s.current.LastUpdated = s.now()
	return s.store.Save(s.current)
}

// OnExhausted records a total generation failure as a stressful event.
func (s *Session) OnExhausted(ctx context.Context) {
	err := s.Update(func(v *Vector) {
		v.Adjust(Stress, 15)
		v.LastEvent = "systemic failure: every text generator was unreachable"
	})
	if err != nil {
		slog.WarnContext(ctx, "Mood: failed to persist failure event", "error", err)
	}
}

// Relay forwards exhaustion events to the Session bound for the current
// cycle. Components built before the mood is loaded hold the Relay.
type Relay struct {
	session *Session
}

// Bind routes later events to s.
func (r *Relay) Bind(s *Session) {
	r.session = s
}

// OnExhausted forwards to the bound session, if any.
func (r *Relay) OnExhausted(ctx context.Context) {
	if r.session == nil {
		slog.WarnContext(ctx, "Mood: exhaustion event with no active session")
		return
	}
	r.session.OnExhausted(ctx)
}
