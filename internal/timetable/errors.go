package timetable

import (
	"fmt"

	"github.com/schooldesk/schooldesk/internal/shared"
)

// Grid and editor errors.
var (
	ErrUnknownSubject      = fmt.Errorf("timetable: unknown subject: %w", shared.ErrValidation)
	ErrInvalidSlotPosition = fmt.Errorf("timetable: invalid slot position: %w", shared.ErrValidation)
	ErrSlotOccupied        = fmt.Errorf("timetable: target slot is already occupied: %w", shared.ErrConflict)
	ErrNoHoursRemaining    = fmt.Errorf("timetable: no weekly hours remaining: %w", shared.ErrConflict)
	ErrCellNotFound        = fmt.Errorf("timetable: cell not found: %w", shared.ErrNotFound)
	ErrEditorBusy          = fmt.Errorf("timetable: editor is busy: %w", shared.ErrConflict)
	ErrEditorClosed        = fmt.Errorf("timetable: editor is closed: %w", shared.ErrConflict)
	ErrEditorNotFound      = fmt.Errorf("timetable: editor not found: %w", shared.ErrNotFound)
)
