package cart

import (
	"context"
	"sync"

	"github.com/angelmondragon/storefront/pkg/logger"
	"go.uber.org/multierr"
)

type RegistryOptions struct {
	// BaseKey prefixes every owner key; defaults to DefaultKey.
	BaseKey  string
	Store    Store
	Notifier Notifier
	Metrics  Metrics
	Logger   *logger.Logger
}

// Registry hands out one Manager per session owner.
type Registry struct {
	mu       sync.Mutex
	opts     RegistryOptions
	managers map[string]*Manager
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.BaseKey == "" {
		opts.BaseKey = DefaultKey
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	return &Registry{opts: opts, managers: map[string]*Manager{}}
}

// KeyFor returns the snapshot key for owner: <base>:<owner>, or <base> when
// owner is empty.
func (r *Registry) KeyFor(owner string) string {
	if owner == "" {
		return r.opts.BaseKey
	}
	return r.opts.BaseKey + ":" + owner
}

// Get returns the owner's manager, restoring it from the store on first use.
// The snapshot load runs outside the registry lock; when two callers race on
// a new owner the first manager stored wins.
func (r *Registry) Get(ctx context.Context, owner string) *Manager {
	r.mu.Lock()
	m, ok := r.managers[owner]
	r.mu.Unlock()
	if ok {
		return m
	}

	loaded := New(ctx, Options{
		Key:      r.KeyFor(owner),
		Store:    r.opts.Store,
		Notifier: r.opts.Notifier,
		Metrics:  r.opts.Metrics,
		Logger:   r.opts.Logger,
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.managers[owner]; ok {
		return m
	}
	r.managers[owner] = loaded
	return loaded
}

// Release flushes the owner's unsaved state. The manager stays registered:
// carts are keyed per owner, and other sessions of the same owner may still
// hold it, so dropping it would let a second manager overwrite the snapshot.
func (r *Registry) Release(ctx context.Context, owner string) error {
	r.mu.Lock()
	m, ok := r.managers[owner]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return m.Flush(ctx)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.managers)
}

// Close flushes every manager with unsaved state.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	managers := make([]*Manager, 0, len(r.managers))
	for _, m := range r.managers {
		managers = append(managers, m)
	}
	r.managers = map[string]*Manager{}
	r.mu.Unlock()

	var err error
	for _, m := range managers {
		err = multierr.Append(err, m.Flush(ctx))
	}
	return err
}
