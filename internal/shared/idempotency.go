package shared

import (
	"context"
	"errors"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

// ErrIdempotencyConflict indicates the key was already claimed.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

var errKeyRequired = errors.New("shared: idempotency key and module required")

// IdempotencyStore claims client request keys in idempotency_keys.
type IdempotencyStore struct {
	db  Execer
	now func() time.Time
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(db Execer) *IdempotencyStore {
	return &IdempotencyStore{db: db, now: time.Now}
}

// CheckAndInsert claims key for module. A second claim of the same key fails
// with ErrIdempotencyConflict.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if s == nil || s.db == nil {
		return errors.New("shared: idempotency store not initialised")
	}
	if key == "" || module == "" {
		return errKeyRequired
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3)`,
		key, module, s.now().UTC())
	if db.IsUniqueViolation(err, "") {
		return ErrIdempotencyConflict
	}
	return err
}

// Delete releases a claimed key after the guarded work failed.
func (s *IdempotencyStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return nil
	}
	if key == "" {
		return errKeyRequired
	}
	_, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1`, key)
	return err
}

// Cleanup removes keys claimed more than olderThan ago and returns how many went.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	tag, err := s.db.Exec(ctx,
		`DELETE FROM idempotency_keys WHERE created_at < $1`,
		s.now().UTC().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
