package domain

import "time"

type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunSummary is the persisted outcome of one diagnostic run.
type RunSummary struct {
	ID            string      `json:"id"`
	Source        string      `json:"source"`
	Status        RunStatus   `json:"status"`
	StartedAt     time.Time   `json:"started_at"`
	FinishedAt    time.Time   `json:"finished_at"`
	TotalRecords  int         `json:"total_records"`
	Uncategorized int         `json:"uncategorized"`
	RootCauses    []RootCause `json:"root_causes"`
	Artifacts     []string    `json:"artifacts,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// TopCategory returns the highest-priority category, or UNKNOWN if none.
func (r *RunSummary) TopCategory() Category {
	if len(r.RootCauses) == 0 {
		return CategoryUnknown
	}
	return r.RootCauses[0].Category
}
