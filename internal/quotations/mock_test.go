package quotations

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ecoserv/ecoserv/internal/docnum"
	"github.com/ecoserv/ecoserv/internal/lineitems"
	"github.com/ecoserv/ecoserv/internal/shared"
)

// ============================================================================
// IN-MEMORY TRANSACTIONAL REPOSITORY
// ============================================================================

var errInjected = errors.New("injected failure")

// memoryRepo keeps quotations in maps. WithTx snapshots the maps and restores
// them when fn fails, mirroring a database rollback.
type memoryRepo struct {
	mu         sync.Mutex
	headers    map[int64]Quotation
	items      map[int64][]lineitems.Item
	sequences  map[int]int64
	clients    map[int64]string
	nextID     int64
	nextItemID int64

	// Error injection
	txError          error
	failItemInsertAt int // 1-based insert within one transaction; 0 disables
	failUpdateHeader error
	itemInserts      int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		headers:    map[int64]Quotation{},
		items:      map[int64][]lineitems.Item{},
		sequences:  map[int]int64{},
		clients:    map[int64]string{1: "Minera Los Andes S.A.", 2: "Agroindustrias del Sur"},
		nextID:     1,
		nextItemID: 1,
	}
}

type snapshot struct {
	headers    map[int64]Quotation
	items      map[int64][]lineitems.Item
	sequences  map[int]int64
	nextID     int64
	nextItemID int64
}

func (m *memoryRepo) snapshot() snapshot {
	s := snapshot{
		headers:    make(map[int64]Quotation, len(m.headers)),
		items:      make(map[int64][]lineitems.Item, len(m.items)),
		sequences:  make(map[int]int64, len(m.sequences)),
		nextID:     m.nextID,
		nextItemID: m.nextItemID,
	}
	for k, v := range m.headers {
		s.headers[k] = v
	}
	for k, v := range m.items {
		s.items[k] = append([]lineitems.Item(nil), v...)
	}
	for k, v := range m.sequences {
		s.sequences[k] = v
	}
	return s
}

func (m *memoryRepo) restore(s snapshot) {
	m.headers, m.items, m.sequences = s.headers, s.items, s.sequences
	m.nextID, m.nextItemID = s.nextID, s.nextItemID
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txError != nil {
		return m.txError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot()
	m.itemInserts = 0
	if err := fn(ctx, &memoryTx{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memoryRepo) load(id int64) (*Quotation, bool) {
	h, ok := m.headers[id]
	if !ok || h.DeletedAt != nil {
		return nil, false
	}
	h.ClientName = m.clients[h.ClientID]
	items := append([]lineitems.Item(nil), m.items[id]...)
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	h.Items = lineitems.OrEmpty(items)
	return &h, true
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.load(id)
	if !ok {
		return nil, ErrNotFound
	}
	return q, nil
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]Quotation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Quotation{}
	for id := range m.headers {
		q, ok := m.load(id)
		if !ok {
			continue
		}
		if filter.Status != nil && q.Status != *filter.Status {
			continue
		}
		if filter.ClientID != nil && q.ClientID != *filter.ClientID {
			continue
		}
		out = append(out, *q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) SoftDelete(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.headers[id]
	if !ok || h.DeletedAt != nil {
		return ErrNotFound
	}
	h.DeletedAt = &at
	m.headers[id] = h
	return nil
}

func (m *memoryRepo) ExpireOverdue(_ context.Context, now time.Time) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	today := dateOf(now)
	for id, h := range m.headers {
		if h.DeletedAt == nil && h.Status == StatusSent && h.ValidUntil().Before(today) {
			h.Status = StatusExpired
			m.headers[id] = h
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type memoryTx struct {
	m *memoryRepo
}

func (t *memoryTx) Lock(_ context.Context, id int64) (*Quotation, error) {
	h, ok := t.m.headers[id]
	if !ok || h.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return &h, nil
}

func (t *memoryTx) NextNumber(_ context.Context, at time.Time) (string, error) {
	t.m.sequences[at.Year()]++
	return docnum.Format(docnum.PrefixQuotation, at.Year(), t.m.sequences[at.Year()]), nil
}

func (t *memoryTx) Insert(_ context.Context, q Quotation) (int64, error) {
	for _, h := range t.m.headers {
		if h.Number == q.Number {
			return 0, ErrDuplicateNumber
		}
	}
	q.ID = t.m.nextID
	t.m.nextID++
	q.Items = nil
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	t.m.headers[q.ID] = q
	return q.ID, nil
}

func (t *memoryTx) UpdateHeader(_ context.Context, q Quotation) error {
	if t.m.failUpdateHeader != nil {
		return t.m.failUpdateHeader
	}
	h, ok := t.m.headers[q.ID]
	if !ok || h.DeletedAt != nil {
		return ErrNotFound
	}
	q.Items = nil
	q.UpdatedAt = time.Now()
	t.m.headers[q.ID] = q
	return nil
}

func (t *memoryTx) ReplaceItems(_ context.Context, quotationID int64, items []lineitems.Item) error {
	delete(t.m.items, quotationID)
	for i := range items {
		t.m.itemInserts++
		if t.m.failItemInsertAt > 0 && t.m.itemInserts == t.m.failItemInsertAt {
			return errInjected
		}
		items[i].ID = t.m.nextItemID
		items[i].ParentID = quotationID
		t.m.nextItemID++
		t.m.items[quotationID] = append(t.m.items[quotationID], items[i])
	}
	return nil
}

// ============================================================================
// COLLABORATORS
// ============================================================================

type fakeClients struct {
	live map[int64]bool
}

func (f fakeClients) Exists(_ context.Context, id int64) error {
	if !f.live[id] {
		return shared.ErrNotFound
	}
	return nil
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return nil
}

type recordingAuditor struct {
	logs []shared.AuditLog
}

func (a *recordingAuditor) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func intPtr(v int) *int { return &v }

func ptr[T any](v T) *T { return &v }
