package serviceorders

import (
	"context"
	"errors"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/ecoserv/ecoserv/internal/docnum"
	"github.com/ecoserv/ecoserv/internal/lineitems"
	"github.com/ecoserv/ecoserv/internal/quotations"
	"github.com/ecoserv/ecoserv/internal/shared"
	"github.com/ecoserv/ecoserv/internal/users"
)

var errInjected = errors.New("injected failure")

// memoryRepo is a map-backed Repository. WithTx restores a copy of the maps
// when fn fails.
type memoryRepo struct {
	mu      sync.Mutex
	orders  map[int64]ServiceOrder
	items   map[int64][]lineitems.Item
	seq     map[int]int64
	nextID  int64
	nextRow int64

	failItemInsertAt int
	inserts          int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders:  map[int64]ServiceOrder{},
		items:   map[int64][]lineitems.Item{},
		seq:     map[int]int64{},
		nextID:  1,
		nextRow: 1,
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders, seq := maps.Clone(m.orders), maps.Clone(m.seq)
	items := make(map[int64][]lineitems.Item, len(m.items))
	for k, v := range m.items {
		items[k] = append([]lineitems.Item(nil), v...)
	}
	nextID, nextRow := m.nextID, m.nextRow

	m.inserts = 0
	if err := fn(ctx, memoryTx{m}); err != nil {
		m.orders, m.items, m.seq = orders, items, seq
		m.nextID, m.nextRow = nextID, nextRow
		return err
	}
	return nil
}

func (m *memoryRepo) load(id int64) (*ServiceOrder, bool) {
	o, ok := m.orders[id]
	if !ok || o.DeletedAt != nil {
		return nil, false
	}
	o.Items = lineitems.OrEmpty(append([]lineitems.Item(nil), m.items[id]...))
	return &o, true
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*ServiceOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.load(id); ok {
		return o, nil
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]ServiceOrder, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []ServiceOrder{}
	for id := range m.orders {
		o, ok := m.load(id)
		if !ok {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.GestorID != nil && (o.GestorID == nil || *o.GestorID != *filter.GestorID) {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) SoftDelete(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.DeletedAt != nil {
		return ErrNotFound
	}
	o.DeletedAt = &at
	m.orders[id] = o
	return nil
}

type memoryTx struct{ m *memoryRepo }

func (t memoryTx) Lock(_ context.Context, id int64) (*ServiceOrder, error) {
	o, ok := t.m.orders[id]
	if !ok || o.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (t memoryTx) NextNumber(_ context.Context, at time.Time) (string, error) {
	t.m.seq[at.Year()]++
	return docnum.Format(docnum.PrefixServiceOrder, at.Year(), t.m.seq[at.Year()]), nil
}

func (t memoryTx) Insert(_ context.Context, o ServiceOrder) (int64, error) {
	for _, existing := range t.m.orders {
		if existing.Number == o.Number {
			return 0, ErrDuplicateNumber
		}
	}
	o.ID, o.Items = t.m.nextID, nil
	t.m.nextID++
	t.m.orders[o.ID] = o
	return o.ID, nil
}

func (t memoryTx) UpdateHeader(_ context.Context, o ServiceOrder) error {
	o.Items = nil
	t.m.orders[o.ID] = o
	return nil
}

func (t memoryTx) ReplaceItems(_ context.Context, orderID int64, items []lineitems.Item) error {
	delete(t.m.items, orderID)
	for i := range items {
		t.m.inserts++
		if t.m.inserts == t.m.failItemInsertAt {
			return errInjected
		}
		items[i].ID, items[i].ParentID = t.m.nextRow, orderID
		t.m.nextRow++
		t.m.items[orderID] = append(t.m.items[orderID], items[i])
	}
	return nil
}

// ============================================================================
// LOOKUPS
// ============================================================================

type fakeClients map[int64]bool

func (f fakeClients) Exists(_ context.Context, id int64) error {
	if !f[id] {
		return shared.ErrNotFound
	}
	return nil
}

// fakeGestors maps user ids to their active flag.
type fakeGestors map[int64]bool

func (f fakeGestors) RequireActive(_ context.Context, id int64) error {
	active, ok := f[id]
	switch {
	case !ok:
		return users.ErrNotFound
	case !active:
		return users.ErrInactive
	}
	return nil
}

type fakeQuotations map[int64]quotations.Quotation

func (f fakeQuotations) Get(_ context.Context, id int64) (*quotations.Quotation, error) {
	q, ok := f[id]
	if !ok {
		return nil, quotations.ErrNotFound
	}
	return &q, nil
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return nil
}

func ptr[T any](v T) *T { return &v }
