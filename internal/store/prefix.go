package store

import "context"

// prefixed namespaces every key of an underlying store.
type prefixed struct {
	base   Store
	prefix string
}

// WithPrefix returns a view of base whose keys are stored as
// "<prefix>:<key>". Closing the view does not close base.
func WithPrefix(base Store, prefix string) Store {
	return &prefixed{base: base, prefix: prefix + ":"}
}

func (p *prefixed) Save(ctx context.Context, key string, value []byte) error {
	return p.base.Save(ctx, p.prefix+key, value)
}

func (p *prefixed) Load(ctx context.Context, key string) ([]byte, error) {
	return p.base.Load(ctx, p.prefix+key)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.base.Delete(ctx, p.prefix+key)
}

func (p *prefixed) Close() error {
	return nil
}
