package schedule

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// ErrLocked means another live cycle holds the lock.
var ErrLocked = errors.New("another cycle holds the lock")

// DefaultLockMaxAge is how long a lock is honoured before it is treated as
// abandoned.
const DefaultLockMaxAge = 10 * time.Minute

// LockInfo is the lock file body.
type LockInfo struct {
	HolderPID  int    `json:"holder_pid"`
	AcquiredAt string `json:"acquired_at"`
}

// Lock is a marker file with a max age. Its age is taken from the file's
// modification time so a holder that crashed before writing the body
// still expires.
type Lock struct {
	path   string
	maxAge time.Duration
	now    func() time.Time
}

// NewLock creates a lock at path.
func NewLock(path string, maxAge time.Duration, now func() time.Time) *Lock {
	if maxAge <= 0 {
		maxAge = DefaultLockMaxAge
	}
	if now == nil {
		now = time.Now
	}
	return &Lock{path: path, maxAge: maxAge, now: now}
}

// Path returns the lock file.
func (l *Lock) Path() string {
	return l.path
}

// Acquire creates the lock. A live lock yields ErrLocked; a stale one is
// removed and taken over.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create lock dir")
	}
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			body, _ := json.Marshal(LockInfo{
				HolderPID:  os.Getpid(),
				AcquiredAt: l.now().Format(time.RFC3339),
			})
			_, werr := f.Write(body)
			if cerr := f.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				_ = os.Remove(l.path)
				return errors.Wrap(werr, "failed to write lock")
			}
			return nil
		}
		if !os.IsExist(err) {
			return errors.Wrap(err, "failed to create lock")
		}

		stale, err := l.Stale()
		if err != nil {
			if os.IsNotExist(errors.Cause(err)) {
				continue
			}
			return err
		}
		if !stale {
			return ErrLocked
		}
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "failed to remove stale lock")
		}
	}
	return ErrLocked
}

// Stale reports whether the existing lock is older than the max age.
func (l *Lock) Stale() (bool, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return false, errors.Wrap(err, "failed to stat lock")
	}
	return l.now().Sub(info.ModTime()) >= l.maxAge, nil
}

// Info returns the body of the current lock, if any.
func (l *Lock) Info() (LockInfo, bool) {
	var info LockInfo
	data, err := os.ReadFile(l.path)
	if err != nil {
		return info, false
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, true
	}
	return info, true
}

// Release removes the lock. A missing lock is not an error.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to release lock")
	}
	return nil
}
