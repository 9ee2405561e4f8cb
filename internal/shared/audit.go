package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ErrAuditIncomplete is returned for entries missing action, entity or entity id.
var ErrAuditIncomplete = errors.New("shared: audit entry requires action, entity and entity_id")

// AuditLog is one row of audit_logs. Meta is stored as JSONB.
type AuditLog struct {
	Actor    string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger appends to audit_logs.
type AuditLogger struct {
	db  Execer
	now func() time.Time
}

// NewAuditLogger returns an AuditLogger writing through db.
func NewAuditLogger(db Execer) *AuditLogger {
	return &AuditLogger{db: db, now: time.Now}
}

// Record persists the entry. Entries without an actor are attributed to "system".
func (l *AuditLogger) Record(ctx context.Context, entry AuditLog) error {
	if l == nil || l.db == nil {
		return errors.New("shared: audit logger not initialised")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return ErrAuditIncomplete
	}
	if entry.Actor == "" {
		entry.Actor = "system"
	}
	if entry.At.IsZero() {
		entry.At = l.now()
	}
	meta := entry.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("shared: audit meta: %w", err)
	}
	_, err = l.db.Exec(ctx, `
		INSERT INTO audit_logs (actor, action, entity, entity_id, meta, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.Actor, entry.Action, entry.Entity, entry.EntityID, raw, entry.At.UTC())
	return err
}
