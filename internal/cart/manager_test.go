package cart

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/shopspring/decimal"
)

type failingStore struct {
	*MemoryStore
	mu       sync.Mutex
	failSave bool
	loadErr  error
}

func (f *failingStore) Name() string { return "flaky" }

func (f *failingStore) Load(ctx context.Context, key string) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.MemoryStore.Load(ctx, key)
}

func (f *failingStore) Save(ctx context.Context, key string, payload []byte) error {
	f.mu.Lock()
	fail := f.failSave
	f.mu.Unlock()
	if fail {
		return stderrors.New("disk full")
	}
	return f.MemoryStore.Save(ctx, key, payload)
}

func (f *failingStore) setFail(v bool) {
	f.mu.Lock()
	f.failSave = v
	f.mu.Unlock()
}

type stubMetrics struct {
	mu        sync.Mutex
	mutations map[string]int
	failures  map[string]int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{mutations: map[string]int{}, failures: map[string]int{}}
}

func (s *stubMetrics) IncCartMutation(op, kind string) {
	s.mu.Lock()
	s.mutations[op+":"+kind]++
	s.mu.Unlock()
}

func (s *stubMetrics) IncPersistFailure(store string) {
	s.mu.Lock()
	s.failures[store]++
	s.mu.Unlock()
}

type recordedEvent struct {
	key string
	ev  Event
}

func recorder() (Notifier, *[]recordedEvent) {
	var mu sync.Mutex
	events := []recordedEvent{}
	return NotifierFunc(func(_ context.Context, key string, ev Event) {
		mu.Lock()
		events = append(events, recordedEvent{key: key, ev: ev})
		mu.Unlock()
	}), &events
}

func loadSaved(t *testing.T, store Store, key string) State {
	t.Helper()
	payload, err := store.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("load %q: %v", key, err)
	}
	state, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode %q: %v", key, err)
	}
	return state
}

func TestManagerCheckoutScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	m := New(ctx, Options{Store: store})

	if _, err := m.AddItem(ctx, product(1, "10.00"), 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if m.ItemCount() != 2 || !m.Total().Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected 2 items / 20.00, got %d / %s", m.ItemCount(), m.Total())
	}

	if _, err := m.AddItem(ctx, product(1, "10.00")); err != nil {
		t.Fatalf("add default qty: %v", err)
	}
	if items := m.Items(); len(items) != 1 || items[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %+v", items)
	}
	if !m.Total().Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("expected total 30.00, got %s", m.Total())
	}

	if _, err := m.UpdateQuantity(ctx, 1, 0); err != nil {
		t.Fatalf("update: %v", err)
	}
	if m.ItemCount() != 0 || len(m.Items()) != 0 {
		t.Fatalf("expected empty cart, got %+v", m.Items())
	}

	if _, err := m.AddItem(ctx, product(2, "5.00"), 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := m.ClearCart(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(m.Items()) != 0 {
		t.Fatalf("expected empty cart after clear, got %+v", m.Items())
	}
	if saved := loadSaved(t, store, DefaultKey); len(saved) != 0 {
		t.Fatalf("expected empty persisted snapshot, got %+v", saved)
	}
}

func TestManagerPersistsEveryMutation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	m := New(ctx, Options{Key: "cart:alice", Store: store})

	_, _ = m.AddItem(ctx, product(1, "10.00"), 2)
	linesEqual(t, loadSaved(t, store, "cart:alice"), m.Items())

	_, _ = m.AddItem(ctx, product(2, "5.00"), 1)
	linesEqual(t, loadSaved(t, store, "cart:alice"), m.Items())

	_, _ = m.UpdateQuantity(ctx, 2, 4)
	linesEqual(t, loadSaved(t, store, "cart:alice"), m.Items())

	_, _ = m.RemoveItem(ctx, 1)
	linesEqual(t, loadSaved(t, store, "cart:alice"), m.Items())
}

func TestManagerRestoresSnapshotOnStart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	first := New(ctx, Options{Store: store})
	_, _ = first.AddItem(ctx, product(1, "10.00"), 2)
	_, _ = first.AddItem(ctx, product(2, "5.00"), 3)

	second := New(ctx, Options{Store: store})
	linesEqual(t, second.Items(), first.Items())
	if second.ItemCount() != 5 {
		t.Fatalf("expected 5 restored items, got %d", second.ItemCount())
	}
}

func TestManagerStartsEmptyOnCorruptOrUnreadableSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Save(ctx, DefaultKey, []byte("{corrupt"))
	if m := New(ctx, Options{Store: store}); len(m.Items()) != 0 {
		t.Fatalf("expected empty cart from corrupt snapshot, got %+v", m.Items())
	}

	broken := &failingStore{MemoryStore: NewMemoryStore(), loadErr: stderrors.New("io error")}
	if m := New(ctx, Options{Store: broken}); len(m.Items()) != 0 {
		t.Fatalf("expected empty cart from unreadable store, got %+v", m.Items())
	}
}

func TestManagerRejectsNonPositiveAddQuantity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := New(ctx, Options{})
	_, _ = m.AddItem(ctx, product(1, "10.00"), 2)
	rev := m.Revision()

	for _, q := range []int{0, -3} {
		_, err := m.AddItem(ctx, product(1, "10.00"), q)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for qty %d, got %v", q, err)
		}
	}
	if m.ItemCount() != 2 || m.Revision() != rev {
		t.Fatalf("state changed by rejected add: count=%d rev=%d", m.ItemCount(), m.Revision())
	}
}

func TestManagerNoopDoesNotBumpRevisionOrNotify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	notifier, events := recorder()
	m := New(ctx, Options{Notifier: notifier})
	_, _ = m.AddItem(ctx, product(1, "10.00"))
	rev := m.Revision()
	before := m.Items()

	ev, err := m.RemoveItem(ctx, 99)
	if err != nil || ev.Kind != EventNoop {
		t.Fatalf("expected noop, got %+v (%v)", ev, err)
	}
	_, _ = m.UpdateQuantity(ctx, 99, 5)

	if m.Revision() != rev {
		t.Fatalf("revision moved on noop: %d -> %d", rev, m.Revision())
	}
	linesEqual(t, m.Items(), before)
	if len(*events) != 1 {
		t.Fatalf("expected only the add to be notified, got %+v", *events)
	}
}

func TestManagerNotifiesWithMessages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	notifier, events := recorder()
	m := New(ctx, Options{Key: "cart:bob", Notifier: notifier})

	_, _ = m.AddItem(ctx, product(1, "10.00"))
	_, _ = m.AddItem(ctx, product(1, "10.00"))
	_, _ = m.RemoveItem(ctx, 1)

	want := []string{
		"Added Product A to cart!",
		"Updated quantity of Product A in cart!",
		"Removed Product A from cart",
	}
	if len(*events) != len(want) {
		t.Fatalf("expected %d events, got %+v", len(want), *events)
	}
	for i, rec := range *events {
		if rec.key != "cart:bob" || rec.ev.Message() != want[i] {
			t.Fatalf("event %d: got %q for %q", i, rec.ev.Message(), rec.key)
		}
	}
}

func TestManagerPersistFailureKeepsStateAndReports(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &failingStore{MemoryStore: NewMemoryStore()}
	metrics := newStubMetrics()
	m := New(ctx, Options{Store: store, Metrics: metrics})

	store.setFail(true)
	ev, err := m.AddItem(ctx, product(1, "10.00"), 2)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if ev.Kind != EventAdded || m.ItemCount() != 2 {
		t.Fatalf("expected in-memory state to keep the add, got %+v count=%d", ev, m.ItemCount())
	}
	if metrics.failures["flaky"] != 1 {
		t.Fatalf("expected one persist failure, got %+v", metrics.failures)
	}
	if metrics.mutations["add:added"] != 1 {
		t.Fatalf("expected add mutation metric, got %+v", metrics.mutations)
	}

	store.setFail(false)
	if err := m.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	linesEqual(t, loadSaved(t, store, DefaultKey), m.Items())
}

func TestManagerClearIfRevision(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := New(ctx, Options{})
	_, _ = m.AddItem(ctx, product(1, "10.00"), 2)
	rev := m.Revision()

	_, _ = m.AddItem(ctx, product(2, "5.00"))
	_, err := m.ClearIfRevision(ctx, rev)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if m.ItemCount() != 3 {
		t.Fatalf("cart must survive a stale clear, got %d items", m.ItemCount())
	}

	ev, err := m.ClearIfRevision(ctx, m.Revision())
	if err != nil || ev.Kind != EventCleared || m.ItemCount() != 0 {
		t.Fatalf("expected clear, got %+v (%v) count=%d", ev, err, m.ItemCount())
	}
}

func TestManagerSnapshotIsConsistent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := New(ctx, Options{})
	_, _ = m.AddItem(ctx, product(1, "1.50"), 4)

	snap := m.Snapshot()
	if snap.ItemCount != 4 || !snap.Total.Equal(decimal.RequireFromString("6")) || snap.Revision != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	snap.Lines[0].Quantity = 100
	if m.ItemCount() != 4 {
		t.Fatal("snapshot lines must be a copy")
	}
}

func TestManagerConcurrentAddsAreSerialized(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	m := New(ctx, Options{Store: store})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = m.AddItem(ctx, product(1+i%3, "1.00"), 2)
		}(i)
	}
	wg.Wait()

	if m.ItemCount() != 100 {
		t.Fatalf("expected 100 items, got %d", m.ItemCount())
	}
	if m.Revision() != 50 {
		t.Fatalf("expected revision 50, got %d", m.Revision())
	}
	linesEqual(t, loadSaved(t, store, DefaultKey), m.Items())
}
