package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Beginner starts transactions; satisfied by *pgxpool.Pool and pgx.Tx.
type Beginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// DefaultMaxAttempts bounds retries of serialization failures.
const DefaultMaxAttempts = 3

// TxOptions configures WithTx.
type TxOptions struct {
	IsoLevel    pgx.TxIsoLevel
	MaxAttempts int
}

// WithTx executes fn within a transaction using the RepeatableRead isolation level.
func WithTx(ctx context.Context, pool Beginner, fn func(pgx.Tx) error) error {
	return WithTxOptions(ctx, pool, TxOptions{IsoLevel: pgx.RepeatableRead, MaxAttempts: 1}, fn)
}

// WithSerializableTx runs fn under serializable isolation, retrying the whole
// callback when PostgreSQL reports a serialization failure or deadlock.
func WithSerializableTx(ctx context.Context, pool Beginner, maxAttempts int, fn func(pgx.Tx) error) error {
	return WithTxOptions(ctx, pool, TxOptions{IsoLevel: pgx.Serializable, MaxAttempts: maxAttempts}, fn)
}

// WithTxOptions is the general form of WithTx. fn must be safe to re-run.
func WithTxOptions(ctx context.Context, pool Beginner, opts TxOptions, fn func(pgx.Tx) error) error {
	if pool == nil {
		return errors.New("platform/db: pool not initialised")
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = runTx(ctx, pool, opts.IsoLevel, fn)
		if err == nil || !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return fmt.Errorf("platform/db: giving up after %d attempts: %w", attempts, err)
}

func runTx(ctx context.Context, pool Beginner, iso pgx.TxIsoLevel, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: iso})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}
