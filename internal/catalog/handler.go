package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler exposes the catalog over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountProductRoutes registers routes under /api/products.
func (h *Handler) MountProductRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Show)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Patch("/{id}/active", h.SetActive)
}

// MountCategoryRoutes registers routes under /api/categories.
func (h *Handler) MountCategoryRoutes(r chi.Router) {
	r.Get("/", h.ListCategories)
}

// productUpdate is ProductInput without the opening stock.
type productUpdate struct {
	Name         string       `json:"name"`
	CategoryID   int64        `json:"category_id"`
	Category     string       `json:"category"`
	SupplierName string       `json:"supplier_name"`
	Unit         string       `json:"unit"`
	Price        shared.Money `json:"price"`
	MinStock     int64        `json:"min_stock"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ProductFilter{Search: q.Get("search"), ActiveOnly: q.Get("active") != "false"}
	if raw := q.Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "category_id must be an integer")
			return
		}
		filter.CategoryID = id
	}
	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), productID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var input ProductInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.respondError(w, r, err)
		return
	}
	p, err := h.service.Create(r.Context(), shared.ActorFromContext(r.Context()), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/products/"+strconv.FormatInt(p.ID, 10))
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var body productUpdate
	if err := httpx.DecodeJSON(r, &body); err != nil {
		h.respondError(w, r, err)
		return
	}
	p, err := h.service.Update(r.Context(), shared.ActorFromContext(r.Context()), productID(r), ProductInput{
		Name:         body.Name,
		CategoryID:   body.CategoryID,
		Category:     body.Category,
		SupplierName: body.SupplierName,
		Unit:         body.Unit,
		Price:        body.Price,
		MinStock:     body.MinStock,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Active *bool `json:"active"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		h.respondError(w, r, err)
		return
	}
	if body.Active == nil {
		httpx.RespondError(w, &httpx.ValidationErrors{Fields: []httpx.FieldError{{Field: "active", Message: "is required"}}})
		return
	}
	p, err := h.service.SetActive(r.Context(), shared.ActorFromContext(r.Context()), productID(r), *body.Active)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), shared.ActorFromContext(r.Context()), productID(r)); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error("catalog request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

// productID returns 0 for malformed ids, which the service reports as not found.
func productID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}
