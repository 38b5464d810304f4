package session

import "github.com/schooldesk/schooldesk/internal/backend"

// Action is one state transition request handled by Manager.Dispatch.
type Action interface {
	actionName() string
}

// Login authenticates and replaces the session.
type Login struct {
	Credentials backend.Credentials
	// ReturnURL is the location requested before authentication.
	ReturnURL string
}

// ProfileSwitch changes the active school, region or period without
// re-authenticating.
type ProfileSwitch struct {
	SchoolID    *int64
	RegionID    *int64
	PeriodID    *int64
	DeviceToken string
}

// Logout closes the backend session and clears the client.
type Logout struct {
	Location string
}

// RemoveData clears the client without calling the backend.
type RemoveData struct {
	Location string
}

func (Login) actionName() string         { return "login" }
func (ProfileSwitch) actionName() string { return "profile_switch" }
func (Logout) actionName() string        { return "logout" }
func (RemoveData) actionName() string    { return "remove_data" }
