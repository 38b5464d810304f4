package listing

import (
	"context"
	"fmt"
	"strings"

	"github.com/schooldesk/schooldesk/internal/storage"
)

const filterKeyPrefix = "filters:"

// FilterStore persists the last list state per client and resource.
type FilterStore struct {
	provider storage.Provider
}

// NewFilterStore constructs a FilterStore over provider.
func NewFilterStore(provider storage.Provider) *FilterStore {
	return &FilterStore{provider: provider}
}

// Save stores p as the list state of r.
func (s *FilterStore) Save(ctx context.Context, clientID string, r Resource, p Params) error {
	entry, err := storage.JSONValue(p)
	if err != nil {
		return err
	}
	if err := s.provider.Client(clientID).Put(ctx, filterKeyPrefix+r.String(), entry); err != nil {
		return fmt.Errorf("listing: save %s state: %w", r, err)
	}
	return nil
}

// Load returns the stored list state of r.
func (s *FilterStore) Load(ctx context.Context, clientID string, r Resource) (Params, bool, error) {
	entry, err := s.provider.Client(clientID).Get(ctx, filterKeyPrefix+r.String())
	if err != nil {
		return Params{}, false, fmt.Errorf("listing: load %s state: %w", r, err)
	}
	var p Params
	ok, err := entry.DecodeJSON(&p)
	if err != nil {
		return Params{}, false, nil
	}
	return p, ok, nil
}

// ForClient returns the list states of clientID as a resettable store.
func (s *FilterStore) ForClient(clientID string) ClientFilters {
	return ClientFilters{store: s.provider.Client(clientID)}
}

// ClientFilters is the list state of one client.
type ClientFilters struct {
	store storage.Store
}

// Reset drops every stored list state.
func (c ClientFilters) Reset(ctx context.Context) error {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		return err
	}
	var drop []string
	for _, key := range keys {
		if strings.HasPrefix(key, filterKeyPrefix) {
			drop = append(drop, key)
		}
	}
	if len(drop) == 0 {
		return nil
	}
	return c.store.Delete(ctx, drop...)
}
