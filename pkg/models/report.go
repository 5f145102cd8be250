package models

import "time"

// TaskState represents the lifecycle state of a report generation task
type TaskState string

const (
	TaskStateIdle      TaskState = "idle"
	TaskStatePending   TaskState = "pending"
	TaskStateRunning   TaskState = "running"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
)

// Stage identifies one step of the report generation pipeline
type Stage string

const (
	StageAnalysis     Stage = "analysis"
	StageIntegration  Stage = "integration"
	StageFinalization Stage = "finalization"
)

// StageStatus records the progress of a single pipeline stage
type StageStatus struct {
	Stage       Stage      `json:"stage"`
	Status      TaskState  `json:"status"`
	Detail      string     `json:"detail,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ReportStatus is the tracker snapshot returned to API clients
type ReportStatus struct {
	ProjectID         string        `json:"project_id"`
	Status            TaskState     `json:"status"`
	Stages            []StageStatus `json:"stages"`
	Message           string        `json:"message,omitempty"`
	RequestedSegments []int         `json:"requested_segments,omitempty"`
	Cascade           *bool         `json:"cascade,omitempty"`
	Error             string        `json:"error,omitempty"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// IsActive reports whether a run is queued or in flight.
func (r *ReportStatus) IsActive() bool {
	return r.Status == TaskStatePending || r.Status == TaskStateRunning
}

// GenerateRequest is the payload accepted by the report generation endpoint.
// A nil or empty segment list means every segment; cascade defaults to true.
type GenerateRequest struct {
	Segments []int `json:"regenerate_segments,omitempty"`
	Cascade  *bool `json:"cascade,omitempty"`
}

// FinalReport carries the compiled report document and its location
type FinalReport struct {
	ProjectID    string    `json:"project_id"`
	Content      string    `json:"content"`
	RelativePath string    `json:"relative_path"`
	UpdatedAt    time.Time `json:"updated_at"`
}
