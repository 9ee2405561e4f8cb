package reports

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

// Handler exposes reports as JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the reports handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.dashboard)
	r.Get("/summary", h.summary)
	r.Get("/daily-sales", h.dailySales)
	r.Get("/weekly-sales", h.weeklySales)
	r.Get("/monthly-sales", h.monthlySales)
	r.Get("/top-products", h.topProducts)
	r.Get("/category-sales", h.categorySales)
	r.Get("/inventory-status", h.inventoryStatus)
	r.Get("/low-stock", h.lowStock)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	h.respond(w, r, d, err)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.SalesSummary(r.Context())
	h.respond(w, r, s, err)
}

func (h *Handler) dailySales(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days")
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	series, err := h.service.DailySales(r.Context(), days)
	h.respond(w, r, map[string]any{"days": series}, err)
}

func (h *Handler) weeklySales(w http.ResponseWriter, r *http.Request) {
	weeks, err := intParam(r, "weeks")
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	series, err := h.service.WeeklySales(r.Context(), weeks)
	h.respond(w, r, map[string]any{"weeks": series}, err)
}

func (h *Handler) monthlySales(w http.ResponseWriter, r *http.Request) {
	months, err := intParam(r, "months")
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	series, err := h.service.MonthlySales(r.Context(), months)
	h.respond(w, r, map[string]any{"months": series}, err)
}

func (h *Handler) topProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	products, err := h.service.TopProducts(r.Context(), limit)
	h.respond(w, r, map[string]any{"products": products}, err)
}

func (h *Handler) categorySales(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.CategorySales(r.Context())
	h.respond(w, r, map[string]any{"categories": cats}, err)
}

func (h *Handler) inventoryStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.InventoryStatus(r.Context())
	h.respond(w, r, st, err)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.LowStock(r.Context())
	h.respond(w, r, map[string]any{"products": items}, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, payload any, err error) {
	if err == nil {
		httpx.JSON(w, http.StatusOK, payload)
		return
	}
	if errors.Is(err, ErrInvalidParam) {
		err = httpx.Classify(err, httpx.ErrValidation)
	}
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error("report failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, httpx.Classify(errors.New(name+" must be an integer"), httpx.ErrBadRequest)
	}
	return v, nil
}
