package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"Chlothzy/internal/storage"
)

type Line struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Image    string `json:"image"`
	Quantity int    `json:"quantity"`
}

// Preferences are page-wide: the wishlist flag and selected size are not
// tracked per product.
type Preferences struct {
	DarkMode     bool   `json:"dark_mode"`
	Wishlisted   bool   `json:"wishlisted"`
	SelectedSize string `json:"selected_size,omitempty"`
}

type Snapshot struct {
	Lines          []Line      `json:"lines"`
	Prefs          Preferences `json:"prefs"`
	TotalItems     int         `json:"total_items"`
	TotalPrice     float64     `json:"total_price"`
	LastCartUpdate string      `json:"last_cart_update,omitempty"`
}

// Store owns the cart lines and preferences of one session and mirrors every
// mutation into kv.
type Store struct {
	mu  sync.Mutex
	kv  storage.Store
	log *zap.Logger
	now func() time.Time

	lines      []Line
	prefs      Preferences
	count      int
	lastUpdate string
}

func NewStore(kv storage.Store, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		kv:    kv,
		log:   log,
		now:   time.Now,
		lines: []Line{},
	}
}

// AddItem increments the line named name or appends a new one. The in-memory
// change stands even if persisting it fails.
func (s *Store) AddItem(ctx context.Context, name, price, image string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(name); i >= 0 {
		s.lines[i].Quantity++
		s.log.Info("increased quantity in cart", zap.String("name", name), zap.Int("quantity", s.lines[i].Quantity))
	} else {
		s.lines = append(s.lines, Line{Name: name, Price: price, Image: image, Quantity: 1})
		s.log.Info("added to cart", zap.String("name", name))
	}

	s.recount()
	return s.saveCart(ctx)
}

// RemoveItem takes one unit of name out of the cart. Absent names are a no-op
// and nothing is written.
func (s *Store) RemoveItem(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(name)
	if i < 0 {
		return nil
	}

	if s.lines[i].Quantity > 1 {
		s.lines[i].Quantity--
		s.log.Info("decreased quantity in cart", zap.String("name", name), zap.Int("quantity", s.lines[i].Quantity))
	} else {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
		s.log.Info("removed from cart", zap.String("name", name))
	}

	s.recount()
	return s.saveCart(ctx)
}

func (s *Store) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Store) TotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPrice()
}

func (s *Store) SetTheme(ctx context.Context, dark bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setTheme(ctx, dark)
}

func (s *Store) ToggleTheme(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dark := !s.prefs.DarkMode
	return dark, s.setTheme(ctx, dark)
}

func (s *Store) ToggleWishlist(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs.Wishlisted = !s.prefs.Wishlisted
	if s.prefs.Wishlisted {
		s.log.Info("added to wishlist")
	} else {
		s.log.Info("removed from wishlist")
	}
	return s.prefs.Wishlisted, s.persist(ctx, keyWishlisted, formatBool(s.prefs.Wishlisted))
}

// SetSelectedSize overwrites the single selected size; last write wins.
func (s *Store) SetSelectedSize(ctx context.Context, size string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs.SelectedSize = size
	s.log.Info("selected size", zap.String("size", size))
	return s.persist(ctx, keySelectedSize, size)
}

func (s *Store) Preferences() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]Line, len(s.lines))
	copy(lines, s.lines)
	return Snapshot{
		Lines:          lines,
		Prefs:          s.prefs,
		TotalItems:     s.count,
		TotalPrice:     s.totalPrice(),
		LastCartUpdate: s.lastUpdate,
	}
}

// Summary renders the cart as human-readable lines.
func (s *Store) Summary() []string {
	snap := s.Snapshot()
	if len(snap.Lines) == 0 {
		return []string{"Your cart is empty"}
	}

	plural := ""
	if snap.TotalItems > 1 {
		plural = "s"
	}
	out := []string{
		fmt.Sprintf("You have %d item%s in your cart", snap.TotalItems, plural),
		"Total: " + FormatPrice(snap.TotalPrice),
	}
	for _, l := range snap.Lines {
		out = append(out, fmt.Sprintf("- %s x%d (%s)", l.Name, l.Quantity, l.Price))
	}
	return out
}

func (s *Store) setTheme(ctx context.Context, dark bool) error {
	s.prefs.DarkMode = dark
	if dark {
		s.log.Info("dark mode enabled")
	} else {
		s.log.Info("light mode enabled")
	}
	return s.persist(ctx, keyDarkMode, formatBool(dark))
}

func (s *Store) indexOf(name string) int {
	for i, l := range s.lines {
		if l.Name == name {
			return i
		}
	}
	return -1
}

func (s *Store) recount() {
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	s.count = n
}

func (s *Store) totalPrice() float64 {
	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(ParsePrice(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total.InexactFloat64()
}
