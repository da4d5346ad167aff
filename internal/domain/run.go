package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a replenishment run.
type RunStatus int

const (
	RunPending RunStatus = iota
	RunCompleted
	RunFailed
)

var runStatusLabels = map[RunStatus]string{
	RunPending:   "Pending",
	RunCompleted: "Completed",
	RunFailed:    "Failed",
}

var runStatusCodes = map[string]RunStatus{
	"pending":   RunPending,
	"completed": RunCompleted,
	"failed":    RunFailed,
}

// RunStatusLabel returns a human-readable label for a run status.
func RunStatusLabel(status RunStatus) string {
	if label, ok := runStatusLabels[status]; ok {
		return label
	}

	return "Unknown"
}

// ParseRunStatus returns the status for a given label (case-insensitive).
func ParseRunStatus(label string) (RunStatus, bool) {
	code, ok := runStatusCodes[strings.ToLower(strings.TrimSpace(label))]

	return code, ok
}

func (s RunStatus) String() string {
	return RunStatusLabel(s)
}

// MarshalText renders the status label in JSON payloads.
func (s RunStatus) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(RunStatusLabel(s))), nil
}

func (s *RunStatus) UnmarshalText(text []byte) error {
	code, ok := ParseRunStatus(string(text))
	if !ok {
		return fmt.Errorf("unknown run status %q", text)
	}
	*s = code
	return nil
}

// RunSummary describes one replenishment run and the bundle it produced.
type RunSummary struct {
	ID           uuid.UUID `json:"id"`
	Sequence     string    `json:"sequence"`
	Profile      string    `json:"profile"`
	Source       string    `json:"source"`
	Status       RunStatus `json:"status"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Lines        int       `json:"lines"`
	Skipped      int       `json:"skipped"`
	Products     int       `json:"products"`
	OrderedUnits int       `json:"ordered_units"`
	Shortfalls   int       `json:"shortfalls"`
	OutputDir    string    `json:"output_dir"`
	Files        []string  `json:"files"`
	BundlePath   string    `json:"bundle_path,omitempty"`
	BundleKey    string    `json:"bundle_key,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// Duration returns how long the run took.
func (r RunSummary) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// IngestReport summarises one ERP export ingested into the snapshot store.
type IngestReport struct {
	SnapshotDate time.Time `json:"snapshot_date"`
	Lines        int       `json:"lines"`
	Products     int       `json:"products"`
}
