package pos

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListSales(ctx context.Context, filter SaleFilter) ([]Sale, error)
	GetSale(ctx context.Context, id int64) (Sale, error)
	GetSaleByReference(ctx context.Context, reference string) (Sale, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort receives checkout outcomes.
type MetricsPort interface {
	ObserveCheckout(outcome string, elapsed time.Duration, total shared.Money)
}

// Checkout outcomes reported to MetricsPort.
const (
	OutcomeCommitted          = "committed"
	OutcomeInvalid            = "invalid"
	OutcomeInsufficientStock  = "insufficient_stock"
	OutcomeDuplicateReference = "duplicate_reference"
	OutcomeFailed             = "failed"
)

// Service runs checkouts and serves the sales history.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	changes inventory.ChangeHandler
	metrics MetricsPort
	logger  *slog.Logger
}

// NewService builds Service. audit, changes and metrics are optional.
func NewService(repo RepositoryPort, audit AuditPort, changes inventory.ChangeHandler, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, changes: changes, metrics: metrics, logger: logger}
}

// Checkout validates the cart, records the sale with its lines, decrements stock and
// appends one sale movement per line, all in a single transaction.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	start := time.Now()
	req.Reference = strings.TrimSpace(req.Reference)
	totals, err := Quote(req)
	if err != nil {
		s.observe(start, err, 0)
		return CheckoutResult{}, err
	}

	requested, order := mergeQuantities(req.Lines)
	var sale Sale
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.ReferenceExists(ctx, req.Reference)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateReference
		}

		levels, err := tx.LockProducts(ctx, order)
		if err != nil {
			return err
		}
		if err := checkProducts(req.Lines, levels); err != nil {
			return err
		}
		for _, id := range order {
			lvl := levels[id]
			if lvl.Stock < requested[id] {
				return &InsufficientStockError{ProductID: id, Name: lvl.Name, Available: lvl.Stock, Requested: requested[id]}
			}
		}

		var items int64
		for _, line := range req.Lines {
			items += line.Quantity
		}
		header, err := tx.InsertSale(ctx, Sale{
			Reference:      req.Reference,
			Subtotal:       totals.Subtotal,
			Discount:       req.Discount,
			DiscountAmount: totals.DiscountAmount,
			Total:          totals.Total,
			Tendered:       totals.Tendered,
			Change:         totals.Change,
			Note:           strings.TrimSpace(req.Note),
			Cashier:        req.Cashier,
			ItemCount:      items,
		})
		if err != nil {
			return err
		}

		header.Lines = make([]SaleLine, 0, len(req.Lines))
		for _, line := range req.Lines {
			lvl := levels[line.ProductID]
			saved, err := tx.InsertSaleLine(ctx, SaleLine{
				SaleID:      header.ID,
				ProductID:   line.ProductID,
				ProductName: lvl.Name,
				Unit:        lvl.Unit,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				LineTotal:   line.UnitPrice.Mul(line.Quantity),
			})
			if err != nil {
				return err
			}
			_, err = tx.ApplyMovement(ctx, inventory.Movement{
				ProductID: line.ProductID,
				Delta:     -line.Quantity,
				Reason:    inventory.ReasonSale,
				SaleID:    header.ID,
				Note:      header.Reference,
			})
			if err != nil {
				if errors.Is(err, inventory.ErrNegativeStock) {
					return &InsufficientStockError{ProductID: line.ProductID, Name: lvl.Name, Available: lvl.Stock, Requested: requested[line.ProductID]}
				}
				return err
			}
			header.Lines = append(header.Lines, saved)
		}
		sale = header
		return nil
	})
	if err != nil {
		s.observe(start, err, 0)
		if outcome(err) == OutcomeFailed {
			s.logger.Error("checkout failed", slog.String("reference", req.Reference), slog.Any("error", err))
		}
		return CheckoutResult{}, err
	}

	s.observe(start, nil, sale.Total)
	s.afterCommit(ctx, sale, order)
	return resultFromSale(sale), nil
}

// mergeQuantities sums quantities per product and returns the distinct ids in cart order.
func mergeQuantities(lines []CartLine) (map[int64]int64, []int64) {
	requested := make(map[int64]int64, len(lines))
	order := make([]int64, 0, len(lines))
	for _, line := range lines {
		if _, seen := requested[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		requested[line.ProductID] += line.Quantity
	}
	return requested, order
}

func checkProducts(lines []CartLine, levels map[int64]inventory.StockLevel) error {
	verr := &ValidationError{}
	for i, line := range lines {
		field := "lines[" + strconv.Itoa(i) + "].product_id"
		lvl, ok := levels[line.ProductID]
		switch {
		case !ok:
			verr.add(field, shared.Sprintf("product %d does not exist", line.ProductID))
		case !lvl.Active:
			verr.add(field, "product "+lvl.Name+" is inactive")
		}
	}
	return verr.orNil()
}

func (s *Service) afterCommit(ctx context.Context, sale Sale, productIDs []int64) {
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			Actor:    sale.Cashier,
			Action:   "pos:checkout",
			Entity:   "sale",
			EntityID: strconv.FormatInt(sale.ID, 10),
			Meta: map[string]any{
				"reference": sale.Reference,
				"total":     sale.Total.String(),
				"lines":     len(sale.Lines),
			},
		})
		if err != nil {
			s.logger.Warn("audit checkout", slog.Int64("sale_id", sale.ID), slog.Any("error", err))
		}
	}
	if s.changes != nil {
		evt := inventory.StockChangedEvent{ProductIDs: productIDs, Reason: inventory.ReasonSale, SaleID: sale.ID, At: sale.CreatedAt}
		if err := s.changes.HandleStockChanged(ctx, evt); err != nil {
			s.logger.Warn("stock change hook", slog.Int64("sale_id", sale.ID), slog.Any("error", err))
		}
	}
	s.logger.Info("checkout committed",
		slog.Int64("sale_id", sale.ID),
		slog.String("reference", sale.Reference),
		slog.String("total", sale.Total.String()),
		slog.Int("lines", len(sale.Lines)))
}

func (s *Service) observe(start time.Time, err error, total shared.Money) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveCheckout(outcome(err), time.Since(start), total)
}

func outcome(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return OutcomeCommitted
	case errors.As(err, &verr):
		return OutcomeInvalid
	case errors.Is(err, ErrInsufficientStock):
		return OutcomeInsufficientStock
	case errors.Is(err, ErrDuplicateReference):
		return OutcomeDuplicateReference
	}
	return OutcomeFailed
}

// ListSales lists committed sales newest first.
func (s *Service) ListSales(ctx context.Context, filter SaleFilter) ([]Sale, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		verr := &ValidationError{}
		verr.add("to", "must not be before from")
		return nil, verr
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = 100
	case filter.Limit > 1000:
		filter.Limit = 1000
	}
	return s.repo.ListSales(ctx, filter)
}

// GetSale loads a sale with its lines by numeric id or by reference.
func (s *Service) GetSale(ctx context.Context, key string) (Sale, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Sale{}, ErrSaleNotFound
	}
	if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > 0 {
		sale, err := s.repo.GetSale(ctx, id)
		if !errors.Is(err, ErrSaleNotFound) {
			return sale, err
		}
	}
	return s.repo.GetSaleByReference(ctx, key)
}

// NewReference generates a transaction reference such as TRX-20240131-1A2B3C4D.
func NewReference(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "TRX-" + now.Format("20060102") + "-" + suffix
}
