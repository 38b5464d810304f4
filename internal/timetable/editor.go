package timetable

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/schooldesk/schooldesk/internal/backend"
)

// Status is the state of an editing session.
type Status string

const (
	StatusLoading    Status = "loading"
	StatusReady      Status = "ready"
	StatusPlacing    Status = "placing"
	StatusRemoving   Status = "removing"
	StatusMoving     Status = "moving"
	StatusSubmitting Status = "submitting"
	StatusSubmitted  Status = "submitted"
)

// Submitter sends an encoded timetable to the backend.
type Submitter interface {
	SubmitTimetable(ctx context.Context, token string, submission backend.TimetableSubmission) error
}

// Target identifies the timetable being edited.
type Target struct {
	ClassroomID int64 `json:"classroom_id"`
	ShiftID     int64 `json:"shift_id"`
	SchoolID    int64 `json:"school_id"`
}

// Snapshot is a consistent view of an editor.
type Snapshot struct {
	ID        string      `json:"id"`
	Target    Target      `json:"target"`
	Status    Status      `json:"status"`
	Cells     []Cell      `json:"cells"`
	Remaining []Remaining `json:"remaining"`
	// NextWeek reports whether the submission may choose its starting week.
	NextWeek  bool   `json:"next_week_available"`
	LastError string `json:"last_error,omitempty"`
}

// Editor is one editing session over a grid.
type Editor struct {
	mu       sync.Mutex
	id       string
	owner    string
	target   Target
	status   Status
	grid     *Grid
	nextWeek bool
	lastErr  string
	touched  time.Time
}

func newEditor(id, owner string, target Target, now time.Time) *Editor {
	return &Editor{id: id, owner: owner, target: target, status: StatusLoading, touched: now}
}

// ID returns the editor id.
func (e *Editor) ID() string { return e.id }

// Owner returns the client id that opened the editor.
func (e *Editor) Owner() string { return e.owner }

// Ready installs the decoded grid and leaves the loading state.
func (e *Editor) Ready(grid *Grid, nextWeek bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusLoading {
		return ErrEditorBusy
	}
	e.grid = grid
	e.nextWeek = nextWeek
	e.status = StatusReady
	return nil
}

// Snapshot returns the current view.
func (e *Editor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

func (e *Editor) snapshot() Snapshot {
	s := Snapshot{ID: e.id, Target: e.target, Status: e.status, NextWeek: e.nextWeek, LastError: e.lastErr}
	if e.grid != nil {
		s.Cells = e.grid.Cells()
		s.Remaining = e.grid.Remaining()
	}
	return s
}

func (e *Editor) mutate(during Status, fn func(g *Grid) error) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.status {
	case StatusReady:
	case StatusSubmitted:
		return e.snapshot(), ErrEditorClosed
	default:
		return e.snapshot(), ErrEditorBusy
	}
	e.status = during
	err := fn(e.grid)
	e.status = StatusReady
	if err == nil {
		e.lastErr = ""
	}
	return e.snapshot(), err
}

// Place puts subjectID into (day, slot).
func (e *Editor) Place(subjectID int64, day, slot int) (Snapshot, error) {
	return e.mutate(StatusPlacing, func(g *Grid) error {
		_, err := g.Place(subjectID, day, slot)
		return err
	})
}

// Remove deletes cellID.
func (e *Editor) Remove(cellID int) (Snapshot, error) {
	return e.mutate(StatusRemoving, func(g *Grid) error {
		return g.Remove(cellID)
	})
}

// ClearAll empties the grid.
func (e *Editor) ClearAll() (Snapshot, error) {
	return e.mutate(StatusRemoving, func(g *Grid) error {
		g.ClearAll()
		return nil
	})
}

// Move relocates cellID.
func (e *Editor) Move(cellID, day, slot int) (Snapshot, error) {
	return e.mutate(StatusMoving, func(g *Grid) error {
		_, err := g.Move(cellID, day, slot)
		return err
	})
}

// Submit encodes the grid and sends it. nextWeek is only forwarded when the
// next-week capability is on. On failure the editor returns to ready and
// keeps the error for the next snapshot; on success it is closed.
func (e *Editor) Submit(ctx context.Context, api Submitter, token string, nextWeek *bool) (Snapshot, error) {
	e.mu.Lock()
	switch e.status {
	case StatusReady:
	case StatusSubmitted:
		defer e.mu.Unlock()
		return e.snapshot(), ErrEditorClosed
	default:
		defer e.mu.Unlock()
		return e.snapshot(), ErrEditorBusy
	}
	e.status = StatusSubmitting
	submission := backend.TimetableSubmission{
		ClassroomID: e.target.ClassroomID,
		ShiftID:     e.target.ShiftID,
		SchoolID:    e.target.SchoolID,
		Matrix:      e.grid.Encode(),
	}
	if e.nextWeek && nextWeek != nil {
		v := *nextWeek
		submission.NextWeek = &v
	}
	e.mu.Unlock()

	err := api.SubmitTimetable(ctx, token, submission)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.status = StatusReady
		e.lastErr = errorMessage(err)
		return e.snapshot(), err
	}
	e.status = StatusSubmitted
	e.lastErr = ""
	return e.snapshot(), nil
}

func (e *Editor) touch(now time.Time) {
	e.mu.Lock()
	e.touched = now
	e.mu.Unlock()
}

func (e *Editor) idleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.touched
}

func errorMessage(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return "Request Failed"
}
