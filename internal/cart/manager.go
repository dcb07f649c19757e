package cart

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/shopspring/decimal"
)

// DefaultKey is the snapshot key used for a single-user cart.
const DefaultKey = "cart"

// Metrics is the subset of pkg/metrics the manager reports to.
type Metrics interface {
	IncCartMutation(op, kind string)
	IncPersistFailure(store string)
}

type Options struct {
	Key      string
	Store    Store
	Notifier Notifier
	Metrics  Metrics
	Logger   *logger.Logger
}

// Snapshot is a consistent read of the cart at one revision.
type Snapshot struct {
	Lines     State
	ItemCount int
	Total     decimal.Decimal
	Revision  uint64
}

// Manager owns one cart. Every mutation applies a pure transition, writes
// the full snapshot to the store, then notifies. Mutations are serialized.
type Manager struct {
	mu       sync.Mutex
	key      string
	state    State
	revision uint64
	dirty    bool

	store    Store
	notifier Notifier
	metrics  Metrics
	logg     *logger.Logger
}

// New restores the snapshot saved under opts.Key. A missing, unreadable or
// corrupt snapshot starts an empty cart.
func New(ctx context.Context, opts Options) *Manager {
	m := &Manager{
		key:      opts.Key,
		state:    State{},
		store:    opts.Store,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logg:     opts.Logger,
	}
	if m.key == "" {
		m.key = DefaultKey
	}
	if m.store == nil {
		m.store = NewMemoryStore()
	}
	if m.logg == nil {
		m.logg = logger.Nop()
	}

	payload, err := m.store.Load(ctx, m.key)
	switch {
	case stderrors.Is(err, ErrSnapshotNotFound):
	case err != nil:
		m.logg.Warn(m.logCtx(ctx, map[string]any{"error": err.Error()}), "cart.load_failed")
	default:
		state, decodeErr := Decode(payload)
		if decodeErr != nil {
			m.logg.Warn(m.logCtx(ctx, map[string]any{"error": decodeErr.Error()}), "cart.snapshot_corrupt")
			break
		}
		m.state = state
	}
	return m
}

func (m *Manager) Key() string { return m.key }

// AddItem adds qty (default 1) of product. Non-positive quantities are
// rejected with a validation error and leave the cart unchanged; the browser
// cart this replaces accepted any quantity here without error.
func (m *Manager) AddItem(ctx context.Context, product catalog.Product, qty ...int) (Event, error) {
	n := 1
	if len(qty) > 0 {
		n = qty[0]
	}
	if n <= 0 {
		return Event{Kind: EventNoop, ProductID: product.ID}, errors.New(errors.CodeValidation, "quantity must be a positive integer")
	}
	return m.mutate(ctx, "add", nil, func(s State) (State, Event) {
		return s.Add(product, n)
	})
}

// RemoveItem drops the line for id. Unknown ids are a no-op.
func (m *Manager) RemoveItem(ctx context.Context, id int) (Event, error) {
	return m.mutate(ctx, "remove", nil, func(s State) (State, Event) {
		return s.Remove(id)
	})
}

// UpdateQuantity sets an absolute quantity. qty <= 0 removes the line.
func (m *Manager) UpdateQuantity(ctx context.Context, id, qty int) (Event, error) {
	return m.mutate(ctx, "update_quantity", nil, func(s State) (State, Event) {
		return s.SetQuantity(id, qty)
	})
}

// ClearCart empties the cart unconditionally.
func (m *Manager) ClearCart(ctx context.Context) (Event, error) {
	return m.mutate(ctx, "clear", nil, func(s State) (State, Event) {
		return s.Clear()
	})
}

// ClearIfRevision empties the cart only when no mutation happened since rev.
func (m *Manager) ClearIfRevision(ctx context.Context, rev uint64) (Event, error) {
	guard := func(current uint64) error {
		if current != rev {
			return errors.New(errors.CodeStateConflict, "cart changed while checkout was in progress").
				WithDetails(map[string]any{"expected_revision": rev, "current_revision": current})
		}
		return nil
	}
	return m.mutate(ctx, "clear", guard, func(s State) (State, Event) {
		return s.Clear()
	})
}

// Items returns a copy of the current lines.
func (m *Manager) Items() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *Manager) ItemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ItemCount()
}

func (m *Manager) Total() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Total()
}

func (m *Manager) Revision() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revision
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Lines:     m.state.clone(),
		ItemCount: m.state.ItemCount(),
		Total:     m.state.Total(),
		Revision:  m.revision,
	}
}

// Flush rewrites the snapshot when an earlier write failed.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirty {
		return nil
	}
	return m.persistLocked(ctx)
}

func (m *Manager) mutate(ctx context.Context, op string, guard func(uint64) error, fn func(State) (State, Event)) (Event, error) {
	m.mu.Lock()
	if guard != nil {
		if err := guard(m.revision); err != nil {
			m.mu.Unlock()
			return Event{Kind: EventNoop}, err
		}
	}

	next, ev := fn(m.state)
	if m.metrics != nil {
		m.metrics.IncCartMutation(op, string(ev.Kind))
	}
	if !ev.Changed() {
		m.mu.Unlock()
		return ev, nil
	}

	m.state = next
	m.revision++
	persistErr := m.persistLocked(ctx)
	m.mu.Unlock()

	if m.notifier != nil {
		m.notifier.Notify(ctx, m.key, ev)
	}
	return ev, persistErr
}

// persistLocked keeps the in-memory state on failure and marks it dirty.
func (m *Manager) persistLocked(ctx context.Context) error {
	payload, err := Encode(m.state)
	if err == nil {
		err = m.store.Save(ctx, m.key, payload)
	}
	if err != nil {
		m.dirty = true
		name := storeName(m.store)
		if m.metrics != nil {
			m.metrics.IncPersistFailure(name)
		}
		m.logg.Error(m.logCtx(ctx, map[string]any{"store": name}), "cart.persist_failed", err)
		return errors.Wrap(errors.CodeDependency, err, "failed to save cart")
	}
	m.dirty = false
	return nil
}

func (m *Manager) logCtx(ctx context.Context, fields map[string]any) context.Context {
	ctx = m.logg.WithCartKey(ctx, m.key)
	if len(fields) > 0 {
		ctx = m.logg.WithFields(ctx, fields)
	}
	return ctx
}
