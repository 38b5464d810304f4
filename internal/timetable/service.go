package timetable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/schooldesk/schooldesk/internal/backend"
	"github.com/schooldesk/schooldesk/internal/settings"
	"github.com/schooldesk/schooldesk/internal/storage"
)

// Backend is the subset of the school backend the editor needs.
type Backend interface {
	Submitter
	ClassroomTimetable(ctx context.Context, token string, classroomID int64) (*backend.Timetable, error)
	ClassroomSubjects(ctx context.Context, token string, classroomID int64) ([]backend.ClassroomSubject, error)
}

// SettingsLoader reads the cached client settings.
type SettingsLoader interface {
	Load(ctx context.Context, store storage.Store) (settings.Settings, error)
}

// Observer records submission outcomes.
type Observer interface {
	ObserveTimetableSubmission(outcome string)
}

// Service opens and submits editors.
type Service struct {
	api      Backend
	settings SettingsLoader
	palette  *Palette
	registry *Registry
	observer Observer
	logger   *slog.Logger
}

// NewService constructs a Service. observer may be nil.
func NewService(api Backend, loader SettingsLoader, palette *Palette, registry *Registry, observer Observer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, settings: loader, palette: palette, registry: registry, observer: observer, logger: logger}
}

// Registry returns the editor registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Open loads the classroom timetable and roster and opens an editor for
// clientID.
func (s *Service) Open(ctx context.Context, clientID, token string, store storage.Store, classroomID int64) (*Editor, error) {
	prefs, err := s.settings.Load(ctx, store)
	if err != nil {
		s.logger.Warn("timetable settings", slog.Any("error", err))
	}

	var (
		stored *backend.Timetable
		roster []backend.ClassroomSubject
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stored, err = s.api.ClassroomTimetable(gctx, token, classroomID)
		return err
	})
	g.Go(func() error {
		var err error
		roster, err = s.api.ClassroomSubjects(gctx, token, classroomID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("timetable: load classroom %d: %w", classroomID, err)
	}

	layout := Layout{
		SlotsPerDay: stored.SlotsPerDay,
		DayStart:    prefs.DayStartOffset(),
		SlotLength:  prefs.LessonLength(),
	}
	subjects := make([]Subject, 0, len(roster))
	for _, cs := range roster {
		subjects = append(subjects, Subject{ID: cs.SubjectID, Name: cs.Name, Teachers: cs.Teachers, Quota: cs.WeekHours})
	}

	editor := s.registry.Open(clientID, Target{
		ClassroomID: classroomID,
		ShiftID:     stored.ShiftID,
		SchoolID:    stored.SchoolID,
	})
	grid, err := Decode(stored.Matrix, subjects, layout, s.palette, prefs.Theme)
	if err != nil {
		s.registry.Close(editor.ID())
		return nil, err
	}
	if err := editor.Ready(grid, prefs.TimetableNextWeek); err != nil {
		s.registry.Close(editor.ID())
		return nil, err
	}
	return editor, nil
}

// Submit sends the editor's grid and closes it on success.
func (s *Service) Submit(ctx context.Context, editor *Editor, token string, nextWeek *bool) (Snapshot, error) {
	snap, err := editor.Submit(ctx, s.api, token, nextWeek)
	if errors.Is(err, ErrEditorBusy) || errors.Is(err, ErrEditorClosed) {
		return snap, err
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	} else {
		s.registry.Close(editor.ID())
	}
	if s.observer != nil {
		s.observer.ObserveTimetableSubmission(outcome)
	}
	return snap, err
}
