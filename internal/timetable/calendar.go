package timetable

import "time"

// DaysPerWeek is the number of rows of a timetable matrix.
const DaysPerWeek = 7

// PlaceholderWeek is the Monday the rendered week is anchored on. Only the
// weekday and time of day of a synthesized slot carry meaning.
var PlaceholderWeek = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Layout describes the slots of a shift.
type Layout struct {
	SlotsPerDay int
	DayStart    time.Duration
	SlotLength  time.Duration
}

// Valid reports whether day and slot fall inside the layout.
func (l Layout) Valid(day, slot int) bool {
	return day >= 0 && day < DaysPerWeek && slot >= 0 && slot < l.SlotsPerDay
}

// SlotTimes returns the placeholder start and end of (day, slot).
func (l Layout) SlotTimes(day, slot int) (start, end time.Time) {
	start = PlaceholderWeek.AddDate(0, 0, day).Add(l.DayStart + time.Duration(slot)*l.SlotLength)
	return start, start.Add(l.SlotLength)
}

func (l Layout) index(day, slot int) int {
	return day*l.SlotsPerDay + slot
}
