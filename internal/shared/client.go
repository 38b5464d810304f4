package shared

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ClientManager identifies browser clients with a long-lived cookie. Each
// client owns its own persisted session entries.
type ClientManager struct {
	cookieName string
	ttl        time.Duration
	secure     bool
}

// NewClientManager constructs a ClientManager.
func NewClientManager(cookieName string, ttl time.Duration, secure bool) *ClientManager {
	return &ClientManager{cookieName: cookieName, ttl: ttl, secure: secure}
}

// Identify returns the client id carried by the request, issuing a new one
// (and its cookie) when the request has none or carries a malformed id.
func (m *ClientManager) Identify(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(m.cookieName); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			m.setCookie(w, id.String())
			return id.String()
		}
	}
	id := uuid.NewString()
	m.setCookie(w, id)
	return id
}

// CookieName returns the cookie identifier used for clients.
func (m *ClientManager) CookieName() string {
	return m.cookieName
}

func (m *ClientManager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(m.ttl),
	})
}
