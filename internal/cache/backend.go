package cache

import "context"

// Backend is a durable tier. Every call may fail without affecting the
// memory tier.
type Backend interface {
	GetCached(ctx context.Context, key string) (*Entry, bool, error)
	PutCached(ctx context.Context, e *Entry) error
	DeleteCached(ctx context.Context, key string) (bool, error)
	List(ctx context.Context) ([]*Entry, error)
	Clear(ctx context.Context) (int, error)
	Close() error
}
