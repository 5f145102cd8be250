package services

import (
	"fmt"
	"sync"
	"time"

	apperrors "github.com/scriptorium/scriptorium/pkg/errors"
	"github.com/scriptorium/scriptorium/pkg/models"
)

const (
	messageQueued      = "Task queued"
	messageStarting    = "Starting report pipeline"
	messageCompleted   = "Report generation completed successfully"
	messageFailed      = "Report generation failed"
	messageFinalEdited = "Final report updated via API"

	detailFinalEdited = "Final report edited via API"
	detailAborted     = "Aborted"
)

// StatusTracker keeps the per-project pipeline state in memory. State does
// not survive a restart; report files on disk are the durable record.
type StatusTracker struct {
	mu       sync.Mutex
	trackers map[string]*models.ReportStatus
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		trackers: make(map[string]*models.ReportStatus),
	}
}

func newReportStatus(projectID string) *models.ReportStatus {
	return &models.ReportStatus{
		ProjectID: projectID,
		Status:    models.TaskStateIdle,
		Stages: []models.StageStatus{
			{Stage: models.StageAnalysis, Status: models.TaskStateIdle},
			{Stage: models.StageIntegration, Status: models.TaskStateIdle},
			{Stage: models.StageFinalization, Status: models.TaskStateIdle},
		},
		UpdatedAt: time.Now().UTC(),
	}
}

// Snapshot returns a copy of the tracker for a project, registering an
// idle tracker for projects never run.
func (t *StatusTracker) Snapshot(projectID string) *models.ReportStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyStatus(t.tracker(projectID))
}

func (t *StatusTracker) tracker(projectID string) *models.ReportStatus {
	status, ok := t.trackers[projectID]
	if !ok {
		status = newReportStatus(projectID)
		t.trackers[projectID] = status
	}
	return status
}

// Begin replaces the tracker with a fresh pending one. A pipeline that is
// already queued or running blocks the start.
func (t *StatusTracker) Begin(projectID string, segments []int, cascade bool) (*models.ReportStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if current, ok := t.trackers[projectID]; ok && current.IsActive() {
		return nil, fmt.Errorf("project %s: %w", projectID, apperrors.ErrTaskConflict)
	}

	status := newReportStatus(projectID)
	status.Status = models.TaskStatePending
	status.Message = messageQueued
	status.RequestedSegments = segments
	status.Cascade = &cascade
	t.trackers[projectID] = status
	return copyStatus(status), nil
}

// SetRunning marks the pipeline as started.
func (t *StatusTracker) SetRunning(projectID string) {
	t.setStatus(projectID, models.TaskStateRunning, messageStarting, "")
}

// SetCompleted marks the pipeline as finished.
func (t *StatusTracker) SetCompleted(projectID string) {
	t.setStatus(projectID, models.TaskStateCompleted, messageCompleted, "")
}

// SetFailed marks the pipeline as failed and aborts the unfinished stages.
func (t *StatusTracker) SetFailed(projectID string, cause error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := t.tracker(projectID)
	now := time.Now().UTC()
	status.Status = models.TaskStateFailed
	status.Message = messageFailed
	if cause != nil {
		status.Error = cause.Error()
	}
	for i := range status.Stages {
		stage := &status.Stages[i]
		if stage.Status == models.TaskStateCompleted || stage.Status == models.TaskStateFailed {
			continue
		}
		stage.Status = models.TaskStateFailed
		stage.Detail = detailAborted
		stage.CompletedAt = &now
		if stage.StartedAt == nil {
			stage.StartedAt = &now
		}
	}
	status.UpdatedAt = now
}

func (t *StatusTracker) setStatus(projectID string, state models.TaskState, message, errText string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := t.tracker(projectID)
	status.Status = state
	status.Message = message
	if errText != "" {
		status.Error = errText
	}
	status.UpdatedAt = time.Now().UTC()
}

// UpdateStage transitions a single stage. Running stamps the start time;
// completed and failed stamp the completion time.
func (t *StatusTracker) UpdateStage(projectID string, stage models.Stage, state models.TaskState, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := t.tracker(projectID)
	now := time.Now().UTC()
	for i := range status.Stages {
		entry := &status.Stages[i]
		if entry.Stage != stage {
			continue
		}
		entry.Status = state
		if detail != "" {
			entry.Detail = detail
		}
		switch state {
		case models.TaskStateRunning:
			entry.StartedAt = &now
			entry.CompletedAt = nil
		case models.TaskStateCompleted, models.TaskStateFailed:
			entry.CompletedAt = &now
			if entry.StartedAt == nil {
				entry.StartedAt = &now
			}
		}
		break
	}
	status.UpdatedAt = now
}

// MarkFinalEdited records a manual edit of the final report. The
// finalization stage completes; an idle or queued pipeline reports
// completed overall, a running or failed one keeps its state.
func (t *StatusTracker) MarkFinalEdited(projectID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := t.tracker(projectID)
	now := time.Now().UTC()
	for i := range status.Stages {
		entry := &status.Stages[i]
		if entry.Stage != models.StageFinalization {
			continue
		}
		entry.Status = models.TaskStateCompleted
		entry.Detail = detailFinalEdited
		entry.CompletedAt = &now
		if entry.StartedAt == nil {
			entry.StartedAt = &now
		}
		break
	}
	if status.Status == models.TaskStateIdle || status.Status == models.TaskStatePending {
		status.Status = models.TaskStateCompleted
	}
	status.Message = messageFinalEdited
	status.UpdatedAt = now
}

func copyStatus(status *models.ReportStatus) *models.ReportStatus {
	clone := *status
	clone.Stages = make([]models.StageStatus, len(status.Stages))
	copy(clone.Stages, status.Stages)
	if status.RequestedSegments != nil {
		clone.RequestedSegments = append([]int(nil), status.RequestedSegments...)
	}
	if status.Cascade != nil {
		cascade := *status.Cascade
		clone.Cascade = &cascade
	}
	return &clone
}
