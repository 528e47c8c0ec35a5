package schedule

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Status is the scheduler state persisted between cycles.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusWorking Status = "working"
	StatusPosting Status = "posting"
	StatusWaiting Status = "waiting"
)

// RecordTimeLayout is the next_run format on disk.
const RecordTimeLayout = "2006-01-02 15:04:05"

// Record is the single schedule record.
type Record struct {
	NextRun      time.Time
	DelayMinutes int
	Status       Status
}

type recordJSON struct {
	NextRun      string `json:"next_run"`
	DelayMinutes int    `json:"delay_minutes"`
	Status       Status `json:"status"`
}

// Due reports whether a cycle may act at now. Anything but a waiting
// record is left over from an interrupted cycle and is due immediately.
func (r *Record) Due(now time.Time) bool {
	if r == nil || r.Status != StatusWaiting {
		return true
	}
	return !now.Before(r.NextRun)
}

// RecordStore reads and writes the record file.
type RecordStore struct {
	path string
	loc  *time.Location
}

// NewRecordStore creates a store at path. Times are written in loc.
func NewRecordStore(path string, loc *time.Location) *RecordStore {
	if loc == nil {
		loc = time.Local
	}
	return &RecordStore{path: path, loc: loc}
}

// Path returns the record file.
func (s *RecordStore) Path() string {
	return s.path
}

// Load returns the record, or nil when there is none. A record that cannot
// be decoded is discarded so the cycle starts over.
func (s *RecordStore) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read schedule %s", s.path)
	}

	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("Schedule: corrupt record, resetting", "path", s.path, "error", err)
		return nil, nil
	}
	next, err := time.ParseInLocation(RecordTimeLayout, raw.NextRun, s.loc)
	if err != nil {
		slog.Warn("Schedule: bad next_run, resetting", "next_run", raw.NextRun, "error", err)
		return nil, nil
	}
	return &Record{NextRun: next, DelayMinutes: raw.DelayMinutes, Status: raw.Status}, nil
}

// Save overwrites the record file.
func (s *RecordStore) Save(r Record) error {
	data, err := json.MarshalIndent(recordJSON{
		NextRun:      r.NextRun.In(s.loc).Format(RecordTimeLayout),
		DelayMinutes: r.DelayMinutes,
		Status:       r.Status,
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode schedule")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create schedule dir")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write schedule")
	}
	return errors.Wrap(os.Rename(tmp, s.path), "failed to replace schedule")
}

// Raw returns the record file as written, for status output.
func (s *RecordStore) Raw() (json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read schedule %s", s.path)
	}
	if !json.Valid(data) {
		return nil, errors.Errorf("schedule %s is not valid JSON", s.path)
	}
	return data, nil
}
