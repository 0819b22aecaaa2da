package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ecoserv/ecoserv/internal/shared"
)

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[module+"|"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[module+"|"+key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, module+"|"+key)
	return nil
}

func TestIdempotentRejectsReplay(t *testing.T) {
	store := &memoryIdempotency{}
	calls := 0
	h := Idempotent(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/clients", nil)
		req.Header.Set(shared.IdempotencyHeader, "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, send())
	assert.Equal(t, http.StatusConflict, send())
	assert.Equal(t, 1, calls)
}

func TestIdempotentReleasesKeyOnFailure(t *testing.T) {
	store := &memoryIdempotency{}
	status := http.StatusBadRequest
	h := Idempotent(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/clients", nil)
		req.Header.Set(shared.IdempotencyHeader, "retry-me")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusBadRequest, send())
	status = http.StatusCreated
	assert.Equal(t, http.StatusCreated, send())
}

func TestIdempotentIgnoresRequestsWithoutKey(t *testing.T) {
	store := &memoryIdempotency{}
	calls := 0
	h := Idempotent(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/clients", nil))
	}
	req := httptest.NewRequest(http.MethodPut, "/api/clients/1", nil)
	req.Header.Set(shared.IdempotencyHeader, "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 3, calls)
	assert.Empty(t, store.keys)
}
