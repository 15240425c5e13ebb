package catalog

import (
	"context"
	"errors"
)

var ErrUnknownSize = errors.New("size not offered for product")

type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         string   `json:"price"`
	OriginalPrice string   `json:"original_price,omitempty"`
	Image         string   `json:"image"`
	Sizes         []string `json:"sizes"`
}

func (p Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

type Store interface {
	Ping(ctx context.Context) error
	ListSortedByID(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id string) (Product, bool, error)
}
