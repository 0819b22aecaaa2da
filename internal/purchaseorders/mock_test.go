package purchaseorders

import (
	"context"
	"errors"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/ecoserv/ecoserv/internal/docnum"
	"github.com/ecoserv/ecoserv/internal/lineitems"
	"github.com/ecoserv/ecoserv/internal/shared"
)

var errInjected = errors.New("injected failure")

type memoryRepo struct {
	mu      sync.Mutex
	orders  map[int64]PurchaseOrder
	items   map[int64][]lineitems.Item
	seq     map[int]int64
	nextID  int64
	nextRow int64

	failItemInsertAt int
	inserts          int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders:  map[int64]PurchaseOrder{},
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

func (m *memoryRepo) load(id int64) (*PurchaseOrder, bool) {
	p, ok := m.orders[id]
	if !ok || p.DeletedAt != nil {
		return nil, false
	}
	p.Items = lineitems.OrEmpty(append([]lineitems.Item(nil), m.items[id]...))
	return &p, true
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.load(id); ok {
		return p, nil
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]PurchaseOrder, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []PurchaseOrder{}
	for id := range m.orders {
		p, ok := m.load(id)
		if !ok || (filter.Status != nil && p.Status != *filter.Status) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) SoftDelete(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.orders[id]
	if !ok || p.DeletedAt != nil {
		return ErrNotFound
	}
	p.DeletedAt = &at
	m.orders[id] = p
	return nil
}

type memoryTx struct{ m *memoryRepo }

func (t memoryTx) Lock(_ context.Context, id int64) (*PurchaseOrder, error) {
	p, ok := t.m.orders[id]
	if !ok || p.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t memoryTx) NextNumber(_ context.Context, at time.Time) (string, error) {
	t.m.seq[at.Year()]++
	return docnum.Format(docnum.PrefixPurchaseOrder, at.Year(), t.m.seq[at.Year()]), nil
}

func (t memoryTx) Insert(_ context.Context, p PurchaseOrder) (int64, error) {
	for _, existing := range t.m.orders {
		if existing.Number == p.Number {
			return 0, ErrDuplicateNumber
		}
	}
	p.ID, p.Items = t.m.nextID, nil
	t.m.nextID++
	t.m.orders[p.ID] = p
	return p.ID, nil
}

func (t memoryTx) UpdateHeader(_ context.Context, p PurchaseOrder) error {
	p.Items = nil
	t.m.orders[p.ID] = p
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

type fakeClients map[int64]bool

func (f fakeClients) Exists(_ context.Context, id int64) error {
	if !f[id] {
		return shared.ErrNotFound
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
