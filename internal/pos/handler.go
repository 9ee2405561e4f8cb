package pos

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler wires HTTP endpoints for the till.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	checkoutLimit int
	loc           *time.Location
	now           func() time.Time
}

// NewHandler constructs the POS handler. checkoutLimit caps checkouts per client IP
// per minute; zero disables the limit.
func NewHandler(logger *slog.Logger, service *Service, checkoutLimit int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, checkoutLimit: checkoutLimit, loc: time.UTC, now: time.Now}
}

// WithLocation sets the calendar that from/to dates of sale listings refer to.
func (h *Handler) WithLocation(loc *time.Location) *Handler {
	if loc != nil {
		h.loc = loc
	}
	return h
}

// MountRoutes registers POS routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.checkoutLimit > 0 {
			r.Use(httprate.LimitByIP(h.checkoutLimit, time.Minute))
		}
		r.Post("/checkout", h.handleCheckout)
	})
	r.Get("/reference", h.handleReference)
	r.Get("/sales", h.handleListSales)
	r.Get("/sales/{key}", h.handleGetSale)
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	req.Cashier = shared.ActorFromContext(r.Context())
	result, err := h.service.Checkout(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/pos/sales/"+strconv.FormatInt(result.SaleID, 10))
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleReference(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"reference": NewReference(h.now())})
}

func (h *Handler) handleListSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter SaleFilter
	var err error
	if filter.From, err = httpx.ParseDay(q.Get("from"), false, h.loc); err != nil {
		h.respondError(w, r, err)
		return
	}
	if filter.To, err = httpx.ParseDay(q.Get("to"), true, h.loc); err != nil {
		h.respondError(w, r, err)
		return
	}
	if raw := q.Get("limit"); raw != "" {
		if filter.Limit, err = strconv.Atoi(raw); err != nil || filter.Limit < 0 {
			h.respondError(w, r, httpx.Classify(errors.New("limit must be a non-negative integer"), httpx.ErrBadRequest))
			return
		}
	}
	sales, err := h.service.ListSales(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sales": sales})
}

func (h *Handler) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.service.GetSale(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error("pos request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
