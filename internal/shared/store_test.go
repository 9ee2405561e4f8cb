package shared

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeExecer struct {
	calls []execCall
	tag   pgconn.CommandTag
	err   error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return f.tag, f.err
}

var storeNow = time.Date(2026, time.March, 11, 8, 0, 0, 0, time.FixedZone("WIB", 7*3600))

func TestAuditRecordDefaults(t *testing.T) {
	ex := &fakeExecer{}
	l := NewAuditLogger(ex)
	l.now = func() time.Time { return storeNow }

	err := l.Record(context.Background(), AuditLog{Action: "pos:checkout", Entity: "sale", EntityID: "42"})
	require.NoError(t, err)
	require.Len(t, ex.calls, 1)

	args := ex.calls[0].args
	require.Equal(t, "system", args[0])
	require.JSONEq(t, `{}`, string(args[4].([]byte)))
	require.Equal(t, storeNow.UTC(), args[5])
}

func TestAuditRecordMeta(t *testing.T) {
	ex := &fakeExecer{}
	err := NewAuditLogger(ex).Record(context.Background(), AuditLog{
		Actor: "kasir-1", Action: "inventory:restock", Entity: "product", EntityID: "7",
		Meta: map[string]any{"delta": 12},
	})
	require.NoError(t, err)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(ex.calls[0].args[4].([]byte), &meta))
	require.EqualValues(t, 12, meta["delta"])
	require.Equal(t, "kasir-1", ex.calls[0].args[0])
}

func TestAuditRecordRejectsIncomplete(t *testing.T) {
	ex := &fakeExecer{}
	err := NewAuditLogger(ex).Record(context.Background(), AuditLog{Action: "x", Entity: "sale"})
	require.ErrorIs(t, err, ErrAuditIncomplete)
	require.Empty(t, ex.calls)

	var nilLogger *AuditLogger
	require.Error(t, nilLogger.Record(context.Background(), AuditLog{}))
}

func TestIdempotencyConflict(t *testing.T) {
	ex := &fakeExecer{err: &pgconn.PgError{Code: "23505", ConstraintName: "idempotency_keys_pkey"}}
	store := NewIdempotencyStore(ex)

	err := store.CheckAndInsert(context.Background(), "inventory:adjust:abc", "inventory")
	require.ErrorIs(t, err, ErrIdempotencyConflict)

	require.Error(t, store.CheckAndInsert(context.Background(), "", "inventory"))
	require.Len(t, ex.calls, 1)
}

func TestIdempotencyCleanupCutoff(t *testing.T) {
	ex := &fakeExecer{tag: pgconn.NewCommandTag("DELETE 3")}
	store := NewIdempotencyStore(ex)
	store.now = func() time.Time { return storeNow }

	removed, err := store.Cleanup(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 3, removed)
	require.Equal(t, storeNow.UTC().Add(-24*time.Hour), ex.calls[0].args[0])

	var nilStore *IdempotencyStore
	n, err := nilStore.Cleanup(context.Background(), time.Hour)
	require.NoError(t, err)
	require.Zero(t, n)
}
