package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
	loc     *time.Location
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, loc: time.UTC}
}

// WithLocation sets the calendar that from/to dates of ledger listings refer to.
func (h *Handler) WithLocation(loc *time.Location) *Handler {
	if loc != nil {
		h.loc = loc
	}
	return h
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/products/{id}/adjustments", h.handleAdjust)
	r.Get("/products/{id}/reconciliation", h.handleReconcile)
	r.Get("/movements", h.handleMovements)
}

type adjustmentRequest struct {
	Delta  int64  `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required,oneof=purchase initial correction damage return"`
	Note   string `json:"note" validate:"max=500"`
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		h.respondError(w, r, err)
		return
	}
	m, err := h.service.AdjustStock(r.Context(), AdjustmentInput{
		ProductID:      productID,
		Delta:          req.Delta,
		Reason:         Reason(req.Reason),
		Note:           strings.TrimSpace(req.Note),
		Actor:          shared.ActorFromContext(r.Context()),
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := MovementFilter{Reason: Reason(q.Get("reason"))}
	var err error
	if filter.ProductID, err = queryInt(q.Get("product_id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	filter.Limit = int(limit)
	if filter.From, err = httpx.ParseDay(q.Get("from"), false, h.loc); err != nil {
		h.respondError(w, r, err)
		return
	}
	if filter.To, err = httpx.ParseDay(q.Get("to"), true, h.loc); err != nil {
		h.respondError(w, r, err)
		return
	}
	movements, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements})
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rec, err := h.service.Reconcile(r.Context(), productID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"product_id":    rec.ProductID,
		"name":          rec.Name,
		"current_stock": rec.CurrentStock,
		"ledger_sum":    rec.LedgerSum,
		"movements":     rec.Movements,
		"drift":         rec.Drift(),
		"balanced":      rec.Balanced(),
	})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	err = classify(err)
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error("inventory request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidReason),
		errors.Is(err, ErrWrongDirection), errors.Is(err, ErrInvalidRange):
		return httpx.Classify(err, httpx.ErrValidation)
	case errors.Is(err, ErrNegativeStock), errors.Is(err, ErrDuplicateRequest):
		return httpx.Classify(err, httpx.ErrConflict)
	case errors.Is(err, ErrProductNotFound):
		return httpx.Classify(err, httpx.ErrNotFound)
	}
	return err
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.Classify(ErrProductNotFound, httpx.ErrNotFound)
	}
	return id, nil
}

func queryInt(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, httpx.Classify(errors.New("query parameter must be a non-negative integer"), httpx.ErrBadRequest)
	}
	return v, nil
}
