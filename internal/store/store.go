// Package store keeps a client-side cache of one API resource. Reads are
// served from the cache once loaded; successful writes update it in place.
package store

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/ecoserv/ecoserv/internal/docnum"
)

// ErrNoNumbers is returned by NextNumber for resources without document numbers.
var ErrNoNumbers = errors.New("store: resource has no document numbers")

// Resource is the remote side of a Store. apiclient.Resource implements it
// over HTTP.
type Resource[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id int64) (T, error)
	Create(ctx context.Context, req any) (T, error)
	Update(ctx context.Context, id int64, req any) (T, error)
	Delete(ctx context.Context, id int64) error
}

// Keys extracts identity from cached values. Number may be nil.
type Keys[T any] struct {
	ID     func(T) int64
	Number func(T) string
}

// Store is a read-through cache over a Resource. It is safe for concurrent
// use; concurrent writers race with last write wins.
type Store[T any] struct {
	res  Resource[T]
	keys Keys[T]

	mu     sync.RWMutex
	items  []T
	loaded bool
	err    error
}

func New[T any](res Resource[T], keys Keys[T]) *Store[T] {
	return &Store[T]{res: res, keys: keys}
}

// List returns the cached items, loading them on first use.
func (s *Store[T]) List(ctx context.Context) ([]T, error) {
	s.mu.RLock()
	if s.loaded {
		out := slices.Clone(s.items)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()
	return s.Refresh(ctx)
}

// Refresh reloads the cache from the resource.
func (s *Store[T]) Refresh(ctx context.Context) ([]T, error) {
	items, err := s.res.List(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err
		return nil, err
	}
	s.items, s.loaded, s.err = items, true, nil
	return slices.Clone(items), nil
}

// Get serves id from the cache when present and fetches it otherwise.
func (s *Store[T]) Get(ctx context.Context, id int64) (T, error) {
	s.mu.RLock()
	if i := s.indexOf(id); i >= 0 {
		v := s.items[i]
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	v, err := s.res.Get(ctx, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err
		return v, err
	}
	s.err = nil
	s.upsert(v)
	return v, nil
}

// Create sends req and adds the created value at the front of the cache.
func (s *Store[T]) Create(ctx context.Context, req any) (T, error) {
	v, err := s.res.Create(ctx, req)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err
		return v, err
	}
	s.err = nil
	s.upsert(v)
	return v, nil
}

// Update sends req and replaces the cached value with the server's answer.
func (s *Store[T]) Update(ctx context.Context, id int64, req any) (T, error) {
	v, err := s.res.Update(ctx, id, req)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err
		return v, err
	}
	s.err = nil
	s.upsert(v)
	return v, nil
}

// Delete removes id remotely and from the cache.
func (s *Store[T]) Delete(ctx context.Context, id int64) error {
	err := s.res.Delete(ctx, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err
		return err
	}
	s.err = nil
	if i := s.indexOf(id); i >= 0 {
		s.items = slices.Delete(s.items, i, i+1)
	}
	return nil
}

// Invalidate drops the cache; the next List fetches again.
func (s *Store[T]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items, s.loaded = nil, false
}

// Err returns the failure of the last operation, or nil if it succeeded.
func (s *Store[T]) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// NextNumber proposes the number following the cached ones, loading the
// cache if needed.
func (s *Store[T]) NextNumber(ctx context.Context, prefix string, now time.Time) (string, error) {
	if s.keys.Number == nil {
		return "", ErrNoNumbers
	}
	items, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	numbers := make([]string, len(items))
	for i, v := range items {
		numbers[i] = s.keys.Number(v)
	}
	return docnum.Next(prefix, now, numbers), nil
}

func (s *Store[T]) indexOf(id int64) int {
	return slices.IndexFunc(s.items, func(v T) bool { return s.keys.ID(v) == id })
}

// upsert only touches a loaded cache so a partial cache never looks complete.
func (s *Store[T]) upsert(v T) {
	if !s.loaded {
		return
	}
	if i := s.indexOf(s.keys.ID(v)); i >= 0 {
		s.items[i] = v
		return
	}
	s.items = slices.Insert(s.items, 0, v)
}
