package storage

import "context"

type prefixed struct {
	inner  Store
	prefix string
}

// Prefixed namespaces every key with prefix. Close is a no-op; the inner
// store is owned by the caller.
func Prefixed(s Store, prefix string) Store {
	return &prefixed{inner: s, prefix: prefix}
}

func (p *prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return p.inner.Delete(ctx, p.prefix+key)
}

func (p *prefixed) Ping(ctx context.Context) error { return p.inner.Ping(ctx) }

func (p *prefixed) Close() error { return nil }
