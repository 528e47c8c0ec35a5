package chain

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// HealthReport records which provider/model pairs answered in the last
// check. It is produced outside the cycle and only read here.
type HealthReport struct {
	Timestamp string         `json:"timestamp"`
	Results   []HealthResult `json:"results"`
}

// HealthResult is one checked model.
type HealthResult struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Success  bool   `json:"success"`
	Status   string `json:"status,omitempty"`
}

// Healthy reports whether c was marked successful. Model ids are matched
// both bare and as provider/model.
func (h *HealthReport) Healthy(c Candidate) bool {
	for _, r := range h.Results {
		if !r.Success || r.Provider != c.ProviderID {
			continue
		}
		if r.Model == c.ModelID || r.Model == c.Key() {
			return true
		}
	}
	return false
}

// LoadHealthReport reads path. A missing file is not an error and yields
// nil.
func LoadHealthReport(path string) (*HealthReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read health report")
	}
	var h HealthReport
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, errors.Wrap(err, "failed to decode health report")
	}
	return &h, nil
}

// BuildHealthReport marks every configured model healthy.
func BuildHealthReport(r *Registry, now time.Time) *HealthReport {
	h := &HealthReport{Timestamp: now.Format(time.RFC3339)}
	for _, c := range r.Candidates() {
		h.Results = append(h.Results, HealthResult{
			Provider: c.ProviderID,
			Model:    c.Key(),
			Success:  true,
			Status:   "configured",
		})
	}
	return h
}

// Save writes the report as JSON.
func (h *HealthReport) Save(path string) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode health report")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create report dir")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "failed to write health report")
}
