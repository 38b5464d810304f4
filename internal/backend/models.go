package backend

import "encoding/json"

// Credentials are submitted to the login endpoint.
type Credentials struct {
	Username    string `json:"username" validate:"required"`
	Password    string `json:"password" validate:"required"`
	DeviceToken string `json:"device_token,omitempty"`
}

// Permissions lists the capabilities granted to a user.
type Permissions struct {
	Read  []string `json:"read_permissions"`
	Write []string `json:"write_permissions"`
}

// User is the authenticated account as returned by the backend.
type User struct {
	ID        int64    `json:"id"`
	Username  string   `json:"username"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Roles     []string `json:"roles,omitempty"`
	Permissions
}

// School is a school the user can operate in.
type School struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	IsSecondarySchool bool   `json:"is_secondary_school"`
}

// Region groups schools.
type Region struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Period is an academic period.
type Period struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// AuthResponse is returned by login and profile switch.
type AuthResponse struct {
	Token              string  `json:"token"`
	ExpiresAt          int64   `json:"expires_at,omitempty"`
	SessionID          string  `json:"session_id"`
	CurrentRole        string  `json:"current_role"`
	CurrentSchoolModel *School `json:"current_school_model"`
	CurrentRegionModel *Region `json:"current_region_model"`
	CurrentPeriodModel *Period `json:"current_period_model"`
	User               User    `json:"user"`
}

// ProfileRequest switches the active school, region or period.
type ProfileRequest struct {
	SchoolID    *int64 `json:"current_school"`
	RegionID    *int64 `json:"current_region"`
	PeriodID    *int64 `json:"current_period"`
	DeviceToken string `json:"device_token,omitempty"`
}

// Settings are the tenant-wide dashboard settings.
type Settings struct {
	ThemeMode         string `json:"theme_mode"`
	TimetableNextWeek bool   `json:"timetable_next_week"`
	LessonMinutes     int    `json:"lesson_minutes"`
	DayStart          string `json:"day_start"`
}

// ClassroomSubject is a subject taught in a classroom with its weekly quota.
type ClassroomSubject struct {
	SubjectID int64    `json:"subject_id"`
	Name      string   `json:"name"`
	Teachers  []string `json:"teachers"`
	WeekHours int      `json:"week_hours"`
}

// Timetable is the stored weekly matrix of a classroom, rows are days.
type Timetable struct {
	ClassroomID int64      `json:"classroom_id"`
	ShiftID     int64      `json:"shift_id"`
	SchoolID    int64      `json:"school_id"`
	SlotsPerDay int        `json:"periods_per_day"`
	Matrix      [][]*int64 `json:"timetable"`
}

// TimetableSubmission replaces a classroom timetable.
type TimetableSubmission struct {
	ClassroomID int64      `json:"classroom_id"`
	ShiftID     int64      `json:"shift_id"`
	SchoolID    int64      `json:"school_id"`
	Matrix      [][]*int64 `json:"timetable"`
	NextWeek    *bool      `json:"next_week,omitempty"`
}

// ListOptions are the query parameters every list endpoint accepts.
type ListOptions struct {
	Limit   int
	Offset  int
	Search  string
	Sort    []string
	Filters map[string]string
}

// ListPage is one page of a list endpoint.
type ListPage struct {
	Count   int               `json:"count"`
	Results []json.RawMessage `json:"results"`
}
