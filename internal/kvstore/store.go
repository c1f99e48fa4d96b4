// Package kvstore holds the byte-oriented key-value backends the contract state lives in.
package kvstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Op is a single write inside an atomic batch.
type Op struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Store is the byte-level storage seen by the host. Write applies all ops or none.
type Store interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Has(ctx context.Context, key []byte) (bool, error)
	Set(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
	Write(ctx context.Context, ops []Op) error
}
