package timetable

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry keeps the open editors in memory.
type Registry struct {
	mu      sync.Mutex
	editors map[string]*Editor
	ttl     time.Duration
	now     func() time.Time
}

// NewRegistry constructs a Registry whose editors expire after ttl of
// inactivity.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Registry{editors: make(map[string]*Editor), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Open registers a new loading editor owned by clientID.
func (r *Registry) Open(clientID string, target Target) *Editor {
	e := newEditor(uuid.NewString(), clientID, target, r.now())
	r.mu.Lock()
	r.editors[e.id] = e
	r.mu.Unlock()
	return e
}

// Get returns the editor id when it belongs to clientID and has not expired.
func (r *Registry) Get(clientID, id string) (*Editor, error) {
	r.mu.Lock()
	e, ok := r.editors[id]
	if ok && r.now().Sub(e.idleSince()) > r.ttl {
		delete(r.editors, id)
		ok = false
	}
	r.mu.Unlock()
	if !ok || e.owner != clientID {
		return nil, ErrEditorNotFound
	}
	e.touch(r.now())
	return e, nil
}

// Close drops editor id.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	delete(r.editors, id)
	r.mu.Unlock()
}

// CloseClient drops every editor owned by clientID.
func (r *Registry) CloseClient(clientID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.editors {
		if e.owner == clientID {
			delete(r.editors, id)
			n++
		}
	}
	return n
}

// Expire drops idle editors and returns how many were removed.
func (r *Registry) Expire() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.editors {
		if now.Sub(e.idleSince()) > r.ttl {
			delete(r.editors, id)
			n++
		}
	}
	return n
}

// Len returns the number of open editors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.editors)
}

// Run expires idle editors every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Expire(); n > 0 && logger != nil {
				logger.Debug("timetable editors expired", slog.Int("count", n))
			}
		}
	}
}

// ForClient returns the editors of clientID as a resettable store.
func (r *Registry) ForClient(clientID string) ClientEditors {
	return ClientEditors{registry: r, clientID: clientID}
}

// ClientEditors is the set of editors owned by one client.
type ClientEditors struct {
	registry *Registry
	clientID string
}

// Reset closes every editor of the client.
func (c ClientEditors) Reset(context.Context) error {
	c.registry.CloseClient(c.clientID)
	return nil
}
