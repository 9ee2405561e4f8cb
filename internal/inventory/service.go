package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	Reconcile(ctx context.Context, productID int64) (Reconciliation, error)
	ReconcileAll(ctx context.Context) ([]Reconciliation, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort records client-supplied request keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service coordinates manual stock changes and ledger queries.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	changes     ChangeHandler
	logger      *slog.Logger
}

// NewService builds Service. audit, idem and changes are optional.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, changes ChangeHandler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, idempotency: idem, changes: changes, logger: logger}
}

// NegativeStockError reports a change that would take stock below zero.
type NegativeStockError struct {
	ProductID int64
	Name      string
	Current   int64
	Delta     int64
}

func (e *NegativeStockError) Error() string {
	return "inventory: " + e.SafeMessage()
}

// SafeMessage is the cashier-facing text.
func (e *NegativeStockError) SafeMessage() string {
	return shared.Sprintf("cannot reduce stock for %s below 0: current stock %d, change %d", e.Name, e.Current, e.Delta)
}

// Is matches ErrNegativeStock.
func (e *NegativeStockError) Is(target error) bool {
	return target == ErrNegativeStock
}

// ErrDuplicateRequest indicates the idempotency key was already used.
var ErrDuplicateRequest = errors.New("inventory: adjustment already processed for this idempotency key")

const idempotencyModule = "inventory"

// AdjustStock applies a manual, non-sale stock change and appends its ledger entry atomically.
func (s *Service) AdjustStock(ctx context.Context, input AdjustmentInput) (Movement, error) {
	if input.ProductID <= 0 {
		return Movement{}, ErrProductNotFound
	}
	if input.Delta == 0 {
		return Movement{}, ErrInvalidQuantity
	}
	reason, err := ParseReason(string(input.Reason))
	if err != nil || reason == ReasonSale {
		return Movement{}, ErrInvalidReason
	}
	if err := reason.checkDirection(input.Delta); err != nil {
		return Movement{}, err
	}

	key := ""
	if input.IdempotencyKey != "" && s.idempotency != nil {
		key = fmt.Sprintf("%s:adjust:%s", idempotencyModule, input.IdempotencyKey)
		if err := s.idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Movement{}, ErrDuplicateRequest
			}
			return Movement{}, err
		}
	}

	var posted Movement
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		levels, err := tx.LockProducts(ctx, []int64{input.ProductID})
		if err != nil {
			return err
		}
		lvl, ok := levels[input.ProductID]
		if !ok {
			return ErrProductNotFound
		}
		if lvl.Stock+input.Delta < 0 {
			return &NegativeStockError{ProductID: lvl.ProductID, Name: lvl.Name, Current: lvl.Stock, Delta: input.Delta}
		}
		m, err := tx.ApplyMovement(ctx, Movement{
			ProductID: input.ProductID,
			Delta:     input.Delta,
			Reason:    reason,
			Note:      input.Note,
		})
		if err != nil {
			return err
		}
		posted = m
		return nil
	})
	if err != nil {
		if key != "" {
			if delErr := s.idempotency.Delete(ctx, key); delErr != nil {
				s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", delErr))
			}
		}
		return Movement{}, err
	}

	s.afterCommit(ctx, input, posted)
	return posted, nil
}

func (s *Service) afterCommit(ctx context.Context, input AdjustmentInput, m Movement) {
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			Actor:    input.Actor,
			Action:   "inventory:" + string(m.Reason),
			Entity:   "stock_movement",
			EntityID: strconv.FormatInt(m.ID, 10),
			Meta: map[string]any{
				"product_id":    m.ProductID,
				"delta":         m.Delta,
				"balance_after": m.BalanceAfter,
				"note":          m.Note,
			},
		})
		if err != nil {
			s.logger.Warn("audit stock adjustment", slog.Int64("movement_id", m.ID), slog.Any("error", err))
		}
	}
	if s.changes != nil {
		evt := StockChangedEvent{ProductIDs: []int64{m.ProductID}, Reason: m.Reason, At: time.Now().UTC()}
		if err := s.changes.HandleStockChanged(ctx, evt); err != nil {
			s.logger.Warn("stock change hook", slog.Any("error", err))
		}
	}
	s.logger.Info("stock adjusted",
		slog.Int64("product_id", m.ProductID),
		slog.Int64("delta", m.Delta),
		slog.String("reason", string(m.Reason)),
		slog.Int64("balance_after", m.BalanceAfter))
}

// ListMovements lists ledger entries.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.Reason != "" {
		if _, err := ParseReason(string(filter.Reason)); err != nil {
			return nil, err
		}
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, ErrInvalidRange
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	return s.repo.ListMovements(ctx, filter)
}

// Reconcile checks one product against its ledger.
func (s *Service) Reconcile(ctx context.Context, productID int64) (Reconciliation, error) {
	if productID <= 0 {
		return Reconciliation{}, ErrProductNotFound
	}
	return s.repo.Reconcile(ctx, productID)
}

// ReconcileAll returns only the products whose stock the ledger does not explain.
func (s *Service) ReconcileAll(ctx context.Context) ([]Reconciliation, error) {
	all, err := s.repo.ReconcileAll(ctx)
	if err != nil {
		return nil, err
	}
	drifting := make([]Reconciliation, 0)
	for _, rec := range all {
		if !rec.Balanced() {
			drifting = append(drifting, rec)
		}
	}
	return drifting, nil
}
