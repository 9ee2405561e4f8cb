package inventory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

type memoryRepo struct {
	mu        sync.Mutex
	products  map[int64]StockLevel
	movements []Movement
	nextID    int64
	lastQuery MovementFilter
}

type memoryTx struct {
	repo      *memoryRepo
	products  map[int64]StockLevel
	movements []Movement
}

func newMemoryRepo(levels ...StockLevel) *memoryRepo {
	repo := &memoryRepo{products: make(map[int64]StockLevel)}
	for _, lvl := range levels {
		repo.products[lvl.ProductID] = lvl
		if lvl.Stock != 0 {
			repo.nextID++
			repo.movements = append(repo.movements, Movement{
				ID: repo.nextID, ProductID: lvl.ProductID, Delta: lvl.Stock,
				Reason: ReasonInitial, BalanceAfter: lvl.Stock,
			})
		}
	}
	return repo
}

// WithTx serialises callers and publishes writes only when fn succeeds.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &memoryTx{repo: r, products: make(map[int64]StockLevel, len(r.products))}
	for id, lvl := range r.products {
		tx.products[id] = lvl
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.products = tx.products
	r.movements = append(r.movements, tx.movements...)
	return nil
}

func (r *memoryRepo) ListMovements(_ context.Context, filter MovementFilter) ([]Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastQuery = filter
	out := []Movement{}
	for i := len(r.movements) - 1; i >= 0; i-- {
		m := r.movements[i]
		if filter.ProductID != 0 && m.ProductID != filter.ProductID {
			continue
		}
		if filter.Reason != "" && m.Reason != filter.Reason {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *memoryRepo) Reconcile(ctx context.Context, productID int64) (Reconciliation, error) {
	all, _ := r.ReconcileAll(ctx)
	for _, rec := range all {
		if rec.ProductID == productID {
			return rec, nil
		}
	}
	return Reconciliation{}, ErrProductNotFound
}

func (r *memoryRepo) ReconcileAll(context.Context) ([]Reconciliation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs := make([]Reconciliation, 0, len(r.products))
	for id, lvl := range r.products {
		rec := Reconciliation{ProductID: id, Name: lvl.Name, CurrentStock: lvl.Stock}
		for _, m := range r.movements {
			if m.ProductID == id {
				rec.LedgerSum += m.Delta
				rec.Movements++
			}
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ProductID < recs[j].ProductID })
	return recs, nil
}

func (tx *memoryTx) LockProducts(_ context.Context, ids []int64) (map[int64]StockLevel, error) {
	out := make(map[int64]StockLevel, len(ids))
	for _, id := range ids {
		if lvl, ok := tx.products[id]; ok {
			out[id] = lvl
		}
	}
	return out, nil
}

func (tx *memoryTx) ApplyMovement(_ context.Context, m Movement) (Movement, error) {
	lvl, ok := tx.products[m.ProductID]
	if !ok || lvl.Stock+m.Delta < 0 {
		return Movement{}, ErrNegativeStock
	}
	lvl.Stock += m.Delta
	tx.products[m.ProductID] = lvl
	tx.repo.nextID++
	m.ID = tx.repo.nextID
	m.BalanceAfter = lvl.Stock
	m.CreatedAt = time.Now().UTC()
	tx.movements = append(tx.movements, m)
	return m, nil
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = make(map[string]bool)
	}
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type recordingChanges struct {
	events []StockChangedEvent
}

func (c *recordingChanges) HandleStockChanged(_ context.Context, evt StockChangedEvent) error {
	c.events = append(c.events, evt)
	return nil
}

func widget(stock int64) StockLevel {
	return StockLevel{ProductID: 1, Name: "Widget", Unit: "pcs", Stock: stock, MinStock: 2, Active: true}
}

func TestAdjustStockAppendsMovement(t *testing.T) {
	repo := newMemoryRepo(widget(5))
	audit := &recordingAudit{}
	changes := &recordingChanges{}
	svc := NewService(repo, audit, nil, changes, nil)
	ctx := context.Background()

	m, err := svc.AdjustStock(ctx, AdjustmentInput{ProductID: 1, Delta: 10, Reason: ReasonPurchase, Note: "PO-7", Actor: "rina"})
	require.NoError(t, err)
	require.Equal(t, int64(15), m.BalanceAfter)
	require.Equal(t, ReasonPurchase, m.Reason)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "rina", audit.logs[0].Actor)
	require.Equal(t, "inventory:purchase", audit.logs[0].Action)
	require.Len(t, changes.events, 1)
	require.Equal(t, []int64{1}, changes.events[0].ProductIDs)

	rec, err := svc.Reconcile(ctx, 1)
	require.NoError(t, err)
	require.True(t, rec.Balanced())
	require.Equal(t, int64(15), rec.CurrentStock)
	require.Equal(t, int64(2), rec.Movements)
}

func TestAdjustStockRejectsNegativeResult(t *testing.T) {
	repo := newMemoryRepo(widget(3))
	svc := NewService(repo, nil, nil, nil, nil)

	_, err := svc.AdjustStock(context.Background(), AdjustmentInput{ProductID: 1, Delta: -4, Reason: ReasonDamage})
	require.ErrorIs(t, err, ErrNegativeStock)
	var neg *NegativeStockError
	require.True(t, errors.As(err, &neg))
	require.Equal(t, int64(3), neg.Current)
	require.Contains(t, neg.SafeMessage(), "Widget")

	require.Equal(t, int64(3), repo.products[1].Stock)
	require.Len(t, repo.movements, 1)
}

func TestAdjustStockValidatesReasonAndDirection(t *testing.T) {
	svc := NewService(newMemoryRepo(widget(3)), nil, nil, nil, nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		input AdjustmentInput
		want  error
	}{
		{"zero delta", AdjustmentInput{ProductID: 1, Delta: 0, Reason: ReasonCorrection}, ErrInvalidQuantity},
		{"unknown reason", AdjustmentInput{ProductID: 1, Delta: 1, Reason: "gift"}, ErrInvalidReason},
		{"sale reserved for checkout", AdjustmentInput{ProductID: 1, Delta: -1, Reason: ReasonSale}, ErrInvalidReason},
		{"purchase must add", AdjustmentInput{ProductID: 1, Delta: -1, Reason: ReasonPurchase}, ErrWrongDirection},
		{"damage must remove", AdjustmentInput{ProductID: 1, Delta: 1, Reason: ReasonDamage}, ErrWrongDirection},
		{"missing product", AdjustmentInput{ProductID: 99, Delta: 1, Reason: ReasonPurchase}, ErrProductNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AdjustStock(ctx, tc.input)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCorrectionAllowsEitherSign(t *testing.T) {
	svc := NewService(newMemoryRepo(widget(3)), nil, nil, nil, nil)
	ctx := context.Background()

	m, err := svc.AdjustStock(ctx, AdjustmentInput{ProductID: 1, Delta: -2, Reason: ReasonCorrection})
	require.NoError(t, err)
	require.Equal(t, int64(1), m.BalanceAfter)
	m, err = svc.AdjustStock(ctx, AdjustmentInput{ProductID: 1, Delta: 4, Reason: ReasonCorrection})
	require.NoError(t, err)
	require.Equal(t, int64(5), m.BalanceAfter)
}

func TestAdjustStockIdempotencyKey(t *testing.T) {
	repo := newMemoryRepo(widget(3))
	idem := &memoryIdempotency{}
	svc := NewService(repo, nil, idem, nil, nil)
	ctx := context.Background()
	input := AdjustmentInput{ProductID: 1, Delta: 2, Reason: ReasonPurchase, IdempotencyKey: "grn-1"}

	_, err := svc.AdjustStock(ctx, input)
	require.NoError(t, err)
	_, err = svc.AdjustStock(ctx, input)
	require.ErrorIs(t, err, ErrDuplicateRequest)
	require.Equal(t, int64(5), repo.products[1].Stock)

	// A failed adjustment releases its key so the client may retry.
	failing := AdjustmentInput{ProductID: 1, Delta: -50, Reason: ReasonDamage, IdempotencyKey: "dmg-1"}
	_, err = svc.AdjustStock(ctx, failing)
	require.ErrorIs(t, err, ErrNegativeStock)
	failing.Delta = -1
	_, err = svc.AdjustStock(ctx, failing)
	require.NoError(t, err)
}

func TestConcurrentAdjustmentsNeverGoNegative(t *testing.T) {
	repo := newMemoryRepo(widget(10))
	svc := NewService(repo, nil, nil, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AdjustStock(ctx, AdjustmentInput{ProductID: 1, Delta: -1, Reason: ReasonDamage}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 10, succeeded)
	require.Equal(t, int64(0), repo.products[1].Stock)
	drifting, err := svc.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Empty(t, drifting)
}

func TestReconcileAllReportsDrift(t *testing.T) {
	repo := newMemoryRepo(widget(4), StockLevel{ProductID: 2, Name: "Gadget", Stock: 1})
	lvl := repo.products[2]
	lvl.Stock = 7
	repo.products[2] = lvl

	drifting, err := NewService(repo, nil, nil, nil, nil).ReconcileAll(context.Background())
	require.NoError(t, err)
	require.Len(t, drifting, 1)
	require.Equal(t, int64(2), drifting[0].ProductID)
	require.Equal(t, int64(6), drifting[0].Drift())
}

func TestListMovementsRejectsBadFilters(t *testing.T) {
	svc := NewService(newMemoryRepo(widget(1)), nil, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.ListMovements(ctx, MovementFilter{Reason: "bogus"})
	require.ErrorIs(t, err, ErrInvalidReason)

	now := time.Now()
	_, err = svc.ListMovements(ctx, MovementFilter{From: now, To: now.Add(-time.Hour)})
	require.ErrorIs(t, err, ErrInvalidRange)

	movements, err := svc.ListMovements(ctx, MovementFilter{ProductID: 1, Reason: ReasonInitial})
	require.NoError(t, err)
	require.Len(t, movements, 1)
}
