package kvstore

import (
	"context"
	"sort"
)

// Cache buffers writes over a parent store. Reads see the pending writes.
// Nothing reaches the parent until Commit.
type Cache struct {
	parent  Store
	pending map[string]*[]byte // nil value marks a delete
}

func NewCache(parent Store) *Cache {
	return &Cache{
		parent:  parent,
		pending: make(map[string]*[]byte),
	}
}

func (c *Cache) Get(ctx context.Context, key []byte) ([]byte, error) {
	if value, ok := c.pending[string(key)]; ok {
		if value == nil {
			return nil, ErrNotFound
		}
		return clone(*value), nil
	}
	return c.parent.Get(ctx, key)
}

func (c *Cache) Has(ctx context.Context, key []byte) (bool, error) {
	if value, ok := c.pending[string(key)]; ok {
		return value != nil, nil
	}
	return c.parent.Has(ctx, key)
}

func (c *Cache) Set(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v := clone(value)
	c.pending[string(key)] = &v
	return nil
}

func (c *Cache) Delete(ctx context.Context, key []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.pending[string(key)] = nil
	return nil
}

func (c *Cache) Write(ctx context.Context, ops []Op) error {
	for _, op := range ops {
		var err error
		if op.Delete {
			err = c.Delete(ctx, op.Key)
		} else {
			err = c.Set(ctx, op.Key, op.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Ops returns the pending writes ordered by key.
func (c *Cache) Ops() []Op {
	keys := make([]string, 0, len(c.pending))
	for k := range c.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ops := make([]Op, 0, len(keys))
	for _, k := range keys {
		value := c.pending[k]
		if value == nil {
			ops = append(ops, Op{Key: []byte(k), Delete: true})
			continue
		}
		ops = append(ops, Op{Key: []byte(k), Value: clone(*value)})
	}
	return ops
}

// Commit flushes the pending writes to the parent as one batch.
func (c *Cache) Commit(ctx context.Context) error {
	if len(c.pending) == 0 {
		return nil
	}
	if err := c.parent.Write(ctx, c.Ops()); err != nil {
		return err
	}
	c.Discard()
	return nil
}

func (c *Cache) Discard() {
	c.pending = make(map[string]*[]byte)
}
