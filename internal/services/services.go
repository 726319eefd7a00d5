package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TxRunner runs fn inside a storage transaction. Services depend on this
// instead of *gorm.DB directly so tests can supply a no-op runner around
// fake repos.
type TxRunner func(ctx context.Context, fn func(tx *gorm.DB) error) error

func GormTxRunner(db *gorm.DB) TxRunner {
	return func(ctx context.Context, fn func(tx *gorm.DB) error) error {
		return db.WithContext(ctx).Transaction(fn)
	}
}

// PassthroughTxRunner runs fn with a nil transaction handle; repos fall back
// to their own connection. Used by tests and callers without a database.
func PassthroughTxRunner() TxRunner {
	return func(ctx context.Context, fn func(tx *gorm.DB) error) error {
		return fn(nil)
	}
}

// keyedMutex serializes work per UUID key. Mutexes are never evicted; the
// key space (config IDs) is small and long-lived.
type keyedMutex struct {
	mu sync.Map
}

func (k *keyedMutex) lock(key uuid.UUID) func() {
	v, _ := k.mu.LoadOrStore(key, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
