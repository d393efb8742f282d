// Package store persists catalog products.
package store

import (
	"context"
	"slices"
	"sync"

	"jwelary/internal/catalog/models"
	id "jwelary/pkg/domain"
	"jwelary/pkg/platform/sentinel"
)

// InMemoryProductStore keeps products in insertion order.
type InMemoryProductStore struct {
	mu       sync.RWMutex
	products map[id.ProductID]*models.Product
	order    []id.ProductID
}

func NewInMemory() *InMemoryProductStore {
	return &InMemoryProductStore{products: make(map[id.ProductID]*models.Product)}
}

// List returns matching products, newest first.
func (s *InMemoryProductStore) List(_ context.Context, filter models.Filter) ([]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Product, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		p := s.products[s.order[i]]
		if filter.Matches(p) {
			out = append(out, clone(p))
		}
	}
	slices.SortStableFunc(out, func(a, b *models.Product) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *InMemoryProductStore) FindByID(_ context.Context, productID id.ProductID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

func (s *InMemoryProductStore) Create(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[p.ID]; exists {
		return sentinel.ErrConflict
	}
	s.products[p.ID] = clone(p)
	s.order = append(s.order, p.ID)
	return nil
}

func (s *InMemoryProductStore) Update(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[p.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.products[p.ID] = clone(p)
	return nil
}

func (s *InMemoryProductStore) Delete(_ context.Context, productID id.ProductID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[productID]; !exists {
		return sentinel.ErrNotFound
	}
	delete(s.products, productID)
	s.order = slices.DeleteFunc(s.order, func(x id.ProductID) bool { return x == productID })
	return nil
}

func clone(p *models.Product) *models.Product {
	c := *p
	c.Images = slices.Clone(p.Images)
	return &c
}
