package storage

import "context"

// Store persists the entries of a single client.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	GetMany(ctx context.Context, keys ...string) (map[string]Entry, error)
	Put(ctx context.Context, key string, entry Entry) error
	PutMany(ctx context.Context, entries map[string]Entry) error
	Delete(ctx context.Context, keys ...string) error
	// Keys lists every key currently present, cleared ones included.
	Keys(ctx context.Context) ([]string, error)
}

// Provider hands out per-client stores.
type Provider interface {
	Client(id string) Store
	// EachClient calls fn for every client that has persisted entries.
	EachClient(ctx context.Context, fn func(id string) error) error
}
