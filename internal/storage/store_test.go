package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	if _, found, err := s.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("get missing: found=%v err=%v", found, err)
	}

	if err := s.Set(ctx, "isDarkMode", "true"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, found, err := s.Get(ctx, "isDarkMode")
	if err != nil || !found || v != "true" {
		t.Fatalf("get: v=%q found=%v err=%v", v, found, err)
	}

	if err := s.Set(ctx, "isDarkMode", "false"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v, _, _ := s.Get(ctx, "isDarkMode"); v != "false" {
		t.Fatalf("overwrite kept %q", v)
	}

	if err := s.Set(ctx, "selectedSize", ""); err != nil {
		t.Fatalf("set empty value: %v", err)
	}
	if v, found, _ := s.Get(ctx, "selectedSize"); !found || v != "" {
		t.Fatalf("empty value: v=%q found=%v", v, found)
	}

	if err := s.Delete(ctx, "isDarkMode"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found, _ := s.Get(ctx, "isDarkMode"); found {
		t.Fatalf("deleted key still present")
	}
	if err := s.Delete(ctx, "never-set"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}

	if err := s.Set(ctx, "", "x"); err != ErrEmptyKey {
		t.Fatalf("empty key err=%v", err)
	}
}

func TestMemStore(t *testing.T) {
	exerciseStore(t, NewMemStore())
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	exerciseStore(t, s)

	if err := s.Set(context.Background(), "cartItems", `[{"name":"Shirt"}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	v, found, err := reopened.Get(context.Background(), "cartItems")
	if err != nil || !found || v != `[{"name":"Shirt"}]` {
		t.Fatalf("after reopen: v=%q found=%v err=%v", v, found, err)
	}
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	if _, err := OpenSQLite("  "); err == nil {
		t.Fatalf("expected error for blank path")
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client)
	t.Cleanup(func() { _ = s.Close() })

	exerciseStore(t, s)

	if err := s.Set(context.Background(), "selectedSize", "M"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get("selectedSize"); got != "M" {
		t.Fatalf("redis value=%q", got)
	}
	if ttl := mr.TTL("selectedSize"); ttl != 0 {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}

func TestPrefixed_IsolatesNamespaces(t *testing.T) {
	ctx := context.Background()
	inner := NewMemStore()

	a := Prefixed(inner, "session:a:")
	b := Prefixed(inner, "session:b:")

	exerciseStore(t, a)

	if err := a.Set(ctx, "selectedSize", "M"); err != nil {
		t.Fatalf("set a: %v", err)
	}
	if err := b.Set(ctx, "selectedSize", "L"); err != nil {
		t.Fatalf("set b: %v", err)
	}

	if v, _, _ := a.Get(ctx, "selectedSize"); v != "M" {
		t.Fatalf("a=%q", v)
	}
	if v, _, _ := b.Get(ctx, "selectedSize"); v != "L" {
		t.Fatalf("b=%q", v)
	}
	if v, found, _ := inner.Get(ctx, "session:a:selectedSize"); !found || v != "M" {
		t.Fatalf("inner key missing: v=%q found=%v", v, found)
	}
	if _, found, _ := inner.Get(ctx, "selectedSize"); found {
		t.Fatalf("unprefixed key leaked")
	}
}
