// Package timetable edits the weekly subject grid of a classroom.
package timetable

import (
	"fmt"
	"sort"
	"time"

	"github.com/schooldesk/schooldesk/internal/settings"
)

// Subject is a roster entry with its weekly hours quota.
type Subject struct {
	ID       int64    `json:"subject_id"`
	Name     string   `json:"name"`
	Teachers []string `json:"teachers"`
	Quota    int      `json:"quota"`
}

// Cell is a subject placed into a slot.
type Cell struct {
	ID        int       `json:"id"`
	SubjectID int64     `json:"subject_id"`
	Day       int       `json:"day"`
	Slot      int       `json:"slot"`
	Name      string    `json:"name"`
	Teachers  []string  `json:"teachers"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Color     string    `json:"color"`
}

// Remaining is the unscheduled weekly hours of a subject.
type Remaining struct {
	SubjectID int64  `json:"subject_id"`
	Name      string `json:"name"`
	Hours     int    `json:"hours"`
	Quota     int    `json:"quota"`
}

// Grid is the in-memory timetable of one classroom. Cell ids are arena
// indexes: decoded cells take day*SlotsPerDay+slot, later placements take
// the next index after the decoded range.
type Grid struct {
	layout    Layout
	palette   *Palette
	theme     settings.Theme
	subjects  map[int64]Subject
	order     []int64
	cells     map[int]*Cell
	occupied  map[int]int
	remaining map[int64]int
	nextID    int
}

// Decode builds a grid from a stored matrix shaped [day][slot]. Null cells
// are empty. Every referenced subject must be in roster.
func Decode(matrix [][]*int64, roster []Subject, layout Layout, palette *Palette, theme settings.Theme) (*Grid, error) {
	if layout.SlotsPerDay <= 0 {
		return nil, fmt.Errorf("%w: %d slots per day", ErrInvalidSlotPosition, layout.SlotsPerDay)
	}
	g := &Grid{
		layout:    layout,
		palette:   palette,
		theme:     theme,
		subjects:  make(map[int64]Subject, len(roster)),
		order:     make([]int64, 0, len(roster)),
		cells:     make(map[int]*Cell),
		occupied:  make(map[int]int),
		remaining: make(map[int64]int, len(roster)),
		nextID:    DaysPerWeek * layout.SlotsPerDay,
	}
	for _, s := range roster {
		if _, dup := g.subjects[s.ID]; !dup {
			g.order = append(g.order, s.ID)
		}
		g.subjects[s.ID] = s
		g.remaining[s.ID] = s.Quota
	}
	for day, row := range matrix {
		for slot, ref := range row {
			if ref == nil {
				continue
			}
			if !layout.Valid(day, slot) {
				return nil, fmt.Errorf("%w: day %d slot %d", ErrInvalidSlotPosition, day, slot)
			}
			if _, ok := g.subjects[*ref]; !ok {
				return nil, fmt.Errorf("%w: %d", ErrUnknownSubject, *ref)
			}
			g.put(layout.index(day, slot), *ref, day, slot)
		}
	}
	return g, nil
}

func (g *Grid) put(id int, subjectID int64, day, slot int) *Cell {
	subject := g.subjects[subjectID]
	cell := &Cell{
		ID:        id,
		SubjectID: subjectID,
		Name:      subject.Name,
		Teachers:  subject.Teachers,
		Color:     g.palette.Color(subject.Name, g.theme),
	}
	g.cells[id] = cell
	g.remaining[subjectID]--
	g.position(cell, day, slot)
	return cell
}

func (g *Grid) position(cell *Cell, day, slot int) {
	cell.Day, cell.Slot = day, slot
	cell.Start, cell.End = g.layout.SlotTimes(day, slot)
	g.occupied[g.layout.index(day, slot)] = cell.ID
}

// Layout returns the grid layout.
func (g *Grid) Layout() Layout {
	return g.layout
}

// Place puts subject into (day, slot) and consumes one weekly hour.
func (g *Grid) Place(subjectID int64, day, slot int) (Cell, error) {
	if _, ok := g.subjects[subjectID]; !ok {
		return Cell{}, fmt.Errorf("%w: %d", ErrUnknownSubject, subjectID)
	}
	if !g.layout.Valid(day, slot) {
		return Cell{}, fmt.Errorf("%w: day %d slot %d", ErrInvalidSlotPosition, day, slot)
	}
	if g.remaining[subjectID] <= 0 {
		return Cell{}, fmt.Errorf("%w: subject %d", ErrNoHoursRemaining, subjectID)
	}
	if _, taken := g.occupied[g.layout.index(day, slot)]; taken {
		return Cell{}, ErrSlotOccupied
	}
	id := g.nextID
	g.nextID++
	return *g.put(id, subjectID, day, slot), nil
}

// Remove deletes a cell and returns its hour to the subject.
func (g *Grid) Remove(cellID int) error {
	cell, ok := g.cells[cellID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrCellNotFound, cellID)
	}
	delete(g.occupied, g.layout.index(cell.Day, cell.Slot))
	delete(g.cells, cellID)
	g.remaining[cell.SubjectID]++
	return nil
}

// Move changes the position of a cell. Remaining hours are untouched.
func (g *Grid) Move(cellID, day, slot int) (Cell, error) {
	cell, ok := g.cells[cellID]
	if !ok {
		return Cell{}, fmt.Errorf("%w: %d", ErrCellNotFound, cellID)
	}
	if !g.layout.Valid(day, slot) {
		return Cell{}, fmt.Errorf("%w: day %d slot %d", ErrInvalidSlotPosition, day, slot)
	}
	if cell.Day == day && cell.Slot == slot {
		return *cell, nil
	}
	if _, taken := g.occupied[g.layout.index(day, slot)]; taken {
		return Cell{}, ErrSlotOccupied
	}
	delete(g.occupied, g.layout.index(cell.Day, cell.Slot))
	g.position(cell, day, slot)
	return *cell, nil
}

// ClearAll drops every cell and restores each subject's full quota.
func (g *Grid) ClearAll() {
	g.cells = make(map[int]*Cell)
	g.occupied = make(map[int]int)
	for id, s := range g.subjects {
		g.remaining[id] = s.Quota
	}
}

// Encode rebuilds the [day][slot] matrix from the placed cells.
func (g *Grid) Encode() [][]*int64 {
	matrix := make([][]*int64, DaysPerWeek)
	for day := range matrix {
		matrix[day] = make([]*int64, g.layout.SlotsPerDay)
	}
	for _, cell := range g.cells {
		ref := cell.SubjectID
		matrix[cell.Day][cell.Slot] = &ref
	}
	return matrix
}

// Cells returns the placed cells ordered by day and slot.
func (g *Grid) Cells() []Cell {
	out := make([]Cell, 0, len(g.cells))
	for _, cell := range g.cells {
		out = append(out, *cell)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].Slot < out[j].Slot
	})
	return out
}

// Remaining returns the roster with unscheduled hours, in roster order.
func (g *Grid) Remaining() []Remaining {
	out := make([]Remaining, 0, len(g.order))
	for _, id := range g.order {
		s := g.subjects[id]
		out = append(out, Remaining{SubjectID: id, Name: s.Name, Hours: g.remaining[id], Quota: s.Quota})
	}
	return out
}

// Placed counts the cells referencing subjectID.
func (g *Grid) Placed(subjectID int64) int {
	n := 0
	for _, cell := range g.cells {
		if cell.SubjectID == subjectID {
			n++
		}
	}
	return n
}
