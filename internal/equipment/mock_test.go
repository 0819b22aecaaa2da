package equipment

import (
	"context"
	"sort"
	"time"
)

type mockRepository struct {
	units  map[int64]*Equipment
	nextID int64

	listError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{units: make(map[int64]*Equipment), nextID: 1}
}

func (m *mockRepository) live() []Equipment {
	out := []Equipment{}
	for _, e := range m.units {
		if e.DeletedAt == nil {
			out = append(out, clone(*e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func clone(e Equipment) Equipment {
	c := make(map[string]string, len(e.Components))
	for k, v := range e.Components {
		c[k] = v
	}
	e.Components = c
	return e
}

func (m *mockRepository) List(_ context.Context, filter ListFilter) ([]Equipment, int, error) {
	if m.listError != nil {
		return nil, 0, m.listError
	}
	var matched []Equipment
	for _, e := range m.live() {
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		matched = append(matched, e)
	}
	total := len(matched)
	start := filter.Page.Offset()
	if start > total {
		start = total
	}
	end := start + filter.Page.Limit()
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *mockRepository) Get(_ context.Context, id int64) (*Equipment, error) {
	e, ok := m.units[id]
	if !ok || e.DeletedAt != nil {
		return nil, ErrNotFound
	}
	c := clone(*e)
	return &c, nil
}

func (m *mockRepository) Create(_ context.Context, e Equipment) (int64, error) {
	for _, existing := range m.units {
		if existing.DeletedAt == nil && existing.Code == e.Code {
			return 0, ErrDuplicateCode
		}
	}
	e.ID = m.nextID
	m.nextID++
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	c := clone(e)
	m.units[e.ID] = &c
	return e.ID, nil
}

func (m *mockRepository) Update(_ context.Context, e Equipment) error {
	existing, ok := m.units[e.ID]
	if !ok || existing.DeletedAt != nil {
		return ErrNotFound
	}
	c := clone(e)
	m.units[e.ID] = &c
	return nil
}

func (m *mockRepository) SoftDelete(_ context.Context, id int64, at time.Time) error {
	e, ok := m.units[id]
	if !ok || e.DeletedAt != nil {
		return ErrNotFound
	}
	e.DeletedAt = &at
	return nil
}

func (m *mockRepository) CountByStatus(context.Context) (map[Status]int, error) {
	out := map[Status]int{}
	for _, e := range m.live() {
		out[e.Status]++
	}
	return out, nil
}

func ptr[T any](v T) *T { return &v }
