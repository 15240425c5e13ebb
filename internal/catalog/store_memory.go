package catalog

import (
	"context"
	"sort"
	"sync"
)

// DefaultProduct is the card shown when no catalog database is configured.
var DefaultProduct = Product{
	ID:            "p1",
	Name:          "Chlothzy Classic Oversized Tee",
	Price:         "₹1999.00",
	OriginalPrice: "₹2999.00",
	Image:         "/images/classic-tee.jpg",
	Sizes:         []string{"S", "M", "L", "XL"},
}

type MemStore struct {
	mu sync.RWMutex
	m  map[string]Product
}

func NewMemStore(products ...Product) *MemStore {
	if len(products) == 0 {
		products = []Product{DefaultProduct}
	}
	s := &MemStore{m: map[string]Product{}}
	for _, p := range products {
		s.m[p.ID] = p
	}
	return s
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) ListSortedByID(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.m))
	for _, p := range s.m {
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.m[id]
	return p, ok, nil
}
