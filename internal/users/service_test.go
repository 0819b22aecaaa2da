package users

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoserv/ecoserv/internal/shared"
)

type memoryRepo struct {
	users  map[int64]*User
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[int64]*User{}, nextID: 1}
}

func (m *memoryRepo) ListUsers(_ context.Context, filter ListFilter) ([]User, int, error) {
	out := []User{}
	for id := int64(1); id < m.nextID; id++ {
		u, ok := m.users[id]
		if !ok || u.DeletedAt != nil || (filter.ActiveOnly && !u.IsActive) || (filter.Role != "" && u.Role != filter.Role) {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *memoryRepo) GetUser(_ context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryRepo) CreateUser(_ context.Context, u User) (int64, error) {
	for _, existing := range m.users {
		if existing.DeletedAt == nil && existing.Email == u.Email {
			return 0, ErrDuplicateEmail
		}
	}
	u.ID = m.nextID
	m.nextID++
	m.users[u.ID] = &u
	return u.ID, nil
}

func (m *memoryRepo) UpdateUser(_ context.Context, u User) error {
	if existing, ok := m.users[u.ID]; !ok || existing.DeletedAt != nil {
		return ErrNotFound
	}
	m.users[u.ID] = &u
	return nil
}

func (m *memoryRepo) SoftDeleteUser(_ context.Context, id int64, at time.Time) error {
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return ErrNotFound
	}
	u.DeletedAt = &at
	u.IsActive = false
	return nil
}

func TestCreateUserDefaults(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)

	u, err := svc.CreateUser(context.Background(), CreateRequest{Name: "Carla Mendoza", Email: " Carla@EcoServ.pe "})
	require.NoError(t, err)
	assert.Equal(t, RoleGestor, u.Role)
	assert.True(t, u.IsActive)
	assert.Equal(t, "carla@ecoserv.pe", u.Email)

	_, err = svc.CreateUser(context.Background(), CreateRequest{Name: "Otra", Email: "carla@ecoserv.pe"})
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestRequireActive(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()
	inactive := false

	active, err := svc.CreateUser(ctx, CreateRequest{Name: "A", Email: "a@ecoserv.pe"})
	require.NoError(t, err)
	dormant, err := svc.CreateUser(ctx, CreateRequest{Name: "B", Email: "b@ecoserv.pe", IsActive: &inactive})
	require.NoError(t, err)

	assert.NoError(t, svc.RequireActive(ctx, active.ID))
	assert.ErrorIs(t, svc.RequireActive(ctx, dormant.ID), ErrInactive)
	assert.ErrorIs(t, svc.RequireActive(ctx, 99), shared.ErrNotFound)

	require.NoError(t, svc.DeleteUser(ctx, active.ID))
	assert.ErrorIs(t, svc.RequireActive(ctx, active.ID), shared.ErrNotFound)
}

func TestUserHandlers(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	h := NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Route("/api/users", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{"name":"Jorge Paredes","email":"jorge@ecoserv.pe","role":"gestor"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/users/1", strings.NewReader(`{"role":"director"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/users/1", strings.NewReader(`{"position":"Jefe de operaciones"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Jefe de operaciones")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users?role=gestor", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jorge@ecoserv.pe")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/users/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
