// Package listing proxies the backend list endpoints and keeps the list
// state of each client.
package listing

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/schooldesk/schooldesk/internal/shared"
)

// Resource is a listable backend collection.
type Resource int

const (
	Users Resource = iota + 1
	Classrooms
	Subjects
	Timetables
	Books
	Periods
	Shifts
	BaseSubjects
	SchoolTransfers
	ContactItems
	Reports
)

// ErrUnknownResource is returned for names outside the closed set.
var ErrUnknownResource = fmt.Errorf("listing: unknown resource: %w", shared.ErrNotFound)

// FilterKind constrains the values a filter accepts.
type FilterKind int

const (
	Text FilterKind = iota
	Date
	Year
	Integer
	Boolean
)

var (
	yearPattern = regexp.MustCompile(`^\d{4}$`)
	sortPattern = regexp.MustCompile(`^-?[a-z][a-z0-9_]*$`)
)

// Valid reports whether value is acceptable for the kind.
func (k FilterKind) Valid(value string) bool {
	switch k {
	case Date:
		_, err := time.Parse(time.DateOnly, value)
		return err == nil
	case Year:
		return yearPattern.MatchString(value)
	case Integer:
		_, err := strconv.ParseInt(value, 10, 64)
		return err == nil
	case Boolean:
		_, err := strconv.ParseBool(value)
		return err == nil
	default:
		return value != ""
	}
}

// Filter is a query key a resource accepts.
type Filter struct {
	Key  string
	Kind FilterKind
}

type resourceInfo struct {
	name    string
	filters []Filter
}

var resources = map[Resource]resourceInfo{
	Users:           {name: "users", filters: []Filter{{"role", Text}, {"school", Integer}, {"is_active", Boolean}}},
	Classrooms:      {name: "classrooms", filters: []Filter{{"school", Integer}, {"shift", Integer}, {"grade", Integer}}},
	Subjects:        {name: "subjects", filters: []Filter{{"classroom", Integer}, {"teacher", Integer}}},
	Timetables:      {name: "timetables", filters: []Filter{{"classroom", Integer}, {"shift", Integer}}},
	Books:           {name: "books", filters: []Filter{{"author", Text}, {"year", Year}, {"category", Text}}},
	Periods:         {name: "periods", filters: []Filter{{"start_date", Date}, {"end_date", Date}}},
	Shifts:          {name: "shifts", filters: []Filter{{"school", Integer}}},
	BaseSubjects:    {name: "base-subjects", filters: []Filter{{"is_secondary", Boolean}}},
	SchoolTransfers: {name: "school-transfers", filters: []Filter{{"status", Text}, {"start_date", Date}, {"end_date", Date}}},
	ContactItems:    {name: "contact-items", filters: []Filter{{"type", Text}}},
	Reports:         {name: "reports", filters: []Filter{{"kind", Text}, {"start_date", Date}, {"end_date", Date}}},
}

var byName = func() map[string]Resource {
	out := make(map[string]Resource, len(resources))
	for r, info := range resources {
		out[info.name] = r
	}
	return out
}()

// ParseResource resolves a resource by its URL name.
func ParseResource(name string) (Resource, error) {
	if r, ok := byName[name]; ok {
		return r, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownResource, name)
}

// String returns the URL name, which is also the backend path.
func (r Resource) String() string {
	if info, ok := resources[r]; ok {
		return info.name
	}
	return "resource(" + strconv.Itoa(int(r)) + ")"
}

// Filters returns the filter keys of r.
func (r Resource) Filters() []Filter {
	return resources[r].filters
}
