package ports

import "context"

// StateStore is the primary durable key-value contract. Put must be
// durable before it returns; Get reports absence through exists rather
// than an error. Setup is idempotent.
type StateStore interface {
	Setup(ctx context.Context) error
	Get(ctx context.Context, key string) (value []byte, exists bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
