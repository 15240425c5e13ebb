package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	keyCartItems    = "cartItems"
	keyLastUpdate   = "lastCartUpdate"
	keyDarkMode     = "isDarkMode"
	keyWishlisted   = "isWishListed"
	keySelectedSize = "selectedSize"
)

// ISO-8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

var (
	ErrEmptyName   = errors.New("cart line has empty name")
	ErrBadQuantity = errors.New("cart line quantity below 1")
	ErrDuplicate   = errors.New("cart line name repeated")
)

// Hydrate loads persisted state once at startup. Missing keys keep defaults;
// a malformed cart value or a failing backend leaves the cart empty.
func (s *Store) Hydrate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.read(ctx, keyDarkMode); ok {
		s.prefs.DarkMode = v == "true"
	}

	if v, ok := s.read(ctx, keyCartItems); ok {
		lines, err := decodeLines(v)
		if err != nil {
			s.log.Warn("ignoring malformed persisted cart", zap.Error(err))
		} else {
			s.lines = lines
			s.recount()
		}
	}
	if v, ok := s.read(ctx, keyLastUpdate); ok {
		s.lastUpdate = v
	}

	if v, ok := s.read(ctx, keyWishlisted); ok {
		s.prefs.Wishlisted = v == "true"
	}

	if v, ok := s.read(ctx, keySelectedSize); ok && v != "" {
		s.prefs.SelectedSize = v
	}

	s.log.Debug("hydrated",
		zap.Int("lines", len(s.lines)),
		zap.Int("items", s.count),
		zap.Bool("dark_mode", s.prefs.DarkMode),
		zap.Bool("wishlisted", s.prefs.Wishlisted),
	)
}

func (s *Store) read(ctx context.Context, key string) (string, bool) {
	v, found, err := s.kv.Get(ctx, key)
	if err != nil {
		s.log.Warn("read persisted value failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return v, found
}

func decodeLines(raw string) ([]Line, error) {
	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if l.Name == "" {
			return nil, ErrEmptyName
		}
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: %q has %d", ErrBadQuantity, l.Name, l.Quantity)
		}
		if _, dup := seen[l.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, l.Name)
		}
		seen[l.Name] = struct{}{}
	}

	if lines == nil {
		lines = []Line{}
	}
	return lines, nil
}

func (s *Store) saveCart(ctx context.Context) error {
	raw, err := json.Marshal(s.lines)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.persist(ctx, keyCartItems, string(raw)); err != nil {
		return err
	}

	ts := s.now().UTC().Format(timestampLayout)
	if err := s.persist(ctx, keyLastUpdate, ts); err != nil {
		return err
	}
	s.lastUpdate = ts
	return nil
}

func (s *Store) persist(ctx context.Context, key, value string) error {
	if err := s.kv.Set(ctx, key, value); err != nil {
		s.log.Error("persist failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
