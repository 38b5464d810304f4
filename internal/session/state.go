// Package session holds the authenticated actor's operating context and the
// actions that replace it.
package session

import (
	"net/url"
	"strings"

	"github.com/schooldesk/schooldesk/internal/backend"
)

// User is the authenticated account with merged permission sets.
type User = backend.User

// State is the session context of one client.
type State struct {
	User              *User           `json:"user"`
	ActiveRole        string          `json:"active_role"`
	ActiveSchool      *backend.School `json:"active_school"`
	ActiveRegion      *backend.Region `json:"active_region"`
	ActivePeriod      *backend.Period `json:"active_period"`
	IsSecondarySchool *bool           `json:"is_secondary_school"`
	Loading           bool            `json:"loading"`
}

// Authenticated reports whether a user is present.
func (s State) Authenticated() bool {
	return s.User != nil
}

func secondaryOf(school *backend.School) *bool {
	if school == nil {
		return nil
	}
	v := school.IsSecondarySchool
	return &v
}

// Redirect is a navigation intent produced by an action.
type Redirect struct {
	Path     string `json:"path"`
	ReturnTo string `json:"return_to,omitempty"`
}

// URL renders the redirect with its return target as the "next" parameter.
func (r Redirect) URL() string {
	if r.ReturnTo == "" {
		return r.Path
	}
	return r.Path + "?next=" + url.QueryEscape(r.ReturnTo)
}

// LoginPath is the authentication view.
const LoginPath = "/login"

// IsAuthView reports whether location already is an authentication view.
func IsAuthView(location string) bool {
	path := location
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return path == LoginPath || strings.HasPrefix(path, LoginPath+"/") || strings.HasPrefix(path, "/auth/")
}

func loginRedirect(location string) *Redirect {
	r := &Redirect{Path: LoginPath}
	if location != "" && location != "/" && !IsAuthView(location) && isLocalPath(location) {
		r.ReturnTo = location
	}
	return r
}

func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, "\\")
}

var homeRoutes = map[string]string{
	"superadmin":   "/dashboard",
	"admin":        "/dashboard",
	"region_admin": "/schools",
	"school_admin": "/classrooms",
	"teacher":      "/timetables",
	"accountant":   "/reports",
}

// HomeRoute returns the landing route for role.
func HomeRoute(role string) string {
	if route, ok := homeRoutes[role]; ok {
		return route
	}
	return "/"
}

// Notice is a transient user-visible notification.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Result is the outcome of Init or Dispatch.
type Result struct {
	State    State     `json:"state"`
	Redirect *Redirect `json:"redirect,omitempty"`
	Notices  []Notice  `json:"notices,omitempty"`
}
