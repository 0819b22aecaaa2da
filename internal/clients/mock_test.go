package clients

import (
	"context"
	"sort"
	"strings"
	"time"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	clients map[int64]*Client
	nextID  int64

	// Error injection
	createError error
	updateError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{clients: make(map[int64]*Client), nextID: 1}
}

func (m *mockRepository) List(_ context.Context, filter ListFilter) ([]Client, int, error) {
	out := []Client{}
	for _, c := range m.clients {
		if c.DeletedAt != nil {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Search)) && !strings.Contains(c.TaxID, filter.Search) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *mockRepository) Get(_ context.Context, id int64) (*Client, error) {
	c, ok := m.clients[id]
	if !ok || c.DeletedAt != nil {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepository) Create(_ context.Context, c Client) (int64, error) {
	if m.createError != nil {
		return 0, m.createError
	}
	for _, existing := range m.clients {
		if existing.DeletedAt == nil && existing.TaxID == c.TaxID {
			return 0, ErrDuplicateTaxID
		}
	}
	c.ID = m.nextID
	m.nextID++
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.clients[c.ID] = &c
	return c.ID, nil
}

func (m *mockRepository) Update(_ context.Context, c Client) error {
	if m.updateError != nil {
		return m.updateError
	}
	existing, ok := m.clients[c.ID]
	if !ok || existing.DeletedAt != nil {
		return ErrNotFound
	}
	c.UpdatedAt = time.Now()
	m.clients[c.ID] = &c
	return nil
}

func (m *mockRepository) SoftDelete(_ context.Context, id int64, at time.Time) error {
	c, ok := m.clients[id]
	if !ok || c.DeletedAt != nil {
		return ErrNotFound
	}
	c.DeletedAt = &at
	return nil
}

func ptr[T any](v T) *T { return &v }

func validCreateRequest() CreateRequest {
	return CreateRequest{
		Name:          "Minera Los Andes S.A.",
		TaxID:         "20512345678",
		Address:       "Av. Javier Prado 123, Lima",
		Email:         "compras@losandes.pe",
		ContactName:   "Rosa Quispe",
		CreditDays:    30,
		PaymentMethod: "transferencia",
	}
}
