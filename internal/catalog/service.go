package catalog

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	ListCategories(ctx context.Context) ([]CategorySummary, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the product catalog.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	changes inventory.ChangeHandler
	logger  *slog.Logger
}

// NewService builds Service. audit and changes are optional.
func NewService(repo RepositoryPort, audit AuditPort, changes inventory.ChangeHandler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, changes: changes, logger: logger}
}

// List returns products matching filter.
func (s *Service) List(ctx context.Context, filter ProductFilter) ([]Product, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, ErrProductNotFound
	}
	return s.repo.Get(ctx, id)
}

// Create inserts a product at zero stock and books any opening quantity as an
// initial ledger movement in the same transaction.
func (s *Service) Create(ctx context.Context, actor string, input ProductInput) (Product, error) {
	input = normalise(input)
	if err := httpx.Validate(input); err != nil {
		return Product{}, err
	}
	var created Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cat, err := tx.ResolveCategory(ctx, input.CategoryID, input.Category)
		if err != nil {
			return err
		}
		p, err := tx.InsertProduct(ctx, fromInput(input, cat))
		if err != nil {
			return err
		}
		p.CategoryName = cat.Name
		if input.InitialStock > 0 {
			m, err := tx.ApplyMovement(ctx, inventory.Movement{
				ProductID: p.ID,
				Delta:     input.InitialStock,
				Reason:    inventory.ReasonInitial,
				Note:      "initial inventory setup",
			})
			if err != nil {
				return err
			}
			p.CurrentStock = m.BalanceAfter
		}
		created = p
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	s.afterCommit(ctx, actor, "catalog:create", created)
	return created, nil
}

// Update edits descriptive fields and price. Stock is changed through adjustments only.
func (s *Service) Update(ctx context.Context, actor string, id int64, input ProductInput) (Product, error) {
	if id <= 0 {
		return Product{}, ErrProductNotFound
	}
	input = normalise(input)
	input.InitialStock = 0
	if err := httpx.Validate(input); err != nil {
		return Product{}, err
	}
	var updated Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cat, err := tx.ResolveCategory(ctx, input.CategoryID, input.Category)
		if err != nil {
			return err
		}
		p := fromInput(input, cat)
		p.ID = id
		if p, err = tx.UpdateProduct(ctx, p); err != nil {
			return err
		}
		p.CategoryName = cat.Name
		updated = p
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	s.afterCommit(ctx, actor, "catalog:update", updated)
	return updated, nil
}

// SetActive soft-deletes or restores a product. Inactive products cannot be sold.
func (s *Service) SetActive(ctx context.Context, actor string, id int64, active bool) (Product, error) {
	if id <= 0 {
		return Product{}, ErrProductNotFound
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return Product{}, err
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	action := "catalog:deactivate"
	if active {
		action = "catalog:activate"
	}
	s.afterCommit(ctx, actor, action, p)
	return p, nil
}

// Delete removes a product without history; otherwise ErrProductInUse.
func (s *Service) Delete(ctx context.Context, actor string, id int64) error {
	if id <= 0 {
		return ErrProductNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.afterCommit(ctx, actor, "catalog:delete", Product{ID: id})
	return nil
}

// ListCategories returns all categories.
func (s *Service) ListCategories(ctx context.Context) ([]CategorySummary, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) afterCommit(ctx context.Context, actor, action string, p Product) {
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			Actor:    actor,
			Action:   action,
			Entity:   "product",
			EntityID: strconv.FormatInt(p.ID, 10),
			Meta:     map[string]any{"name": p.Name, "price": p.Price.String()},
		})
		if err != nil {
			s.logger.Warn("audit catalog change", slog.Int64("product_id", p.ID), slog.Any("error", err))
		}
	}
	if s.changes != nil {
		evt := inventory.StockChangedEvent{ProductIDs: []int64{p.ID}, At: time.Now().UTC()}
		if err := s.changes.HandleStockChanged(ctx, evt); err != nil {
			s.logger.Warn("catalog change hook", slog.Any("error", err))
		}
	}
	s.logger.Info("catalog changed", slog.String("action", action), slog.Int64("product_id", p.ID))
}

func normalise(in ProductInput) ProductInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.SupplierName = strings.TrimSpace(in.SupplierName)
	in.Unit = strings.TrimSpace(in.Unit)
	return in
}

func fromInput(in ProductInput, cat Category) Product {
	return Product{
		Name:         in.Name,
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		SupplierName: in.SupplierName,
		Unit:         in.Unit,
		Price:        in.Price,
		MinStock:     in.MinStock,
	}
}
