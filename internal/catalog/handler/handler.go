// Package handler serves the product catalog. Reads are public; writes need
// an authenticated admin.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"jwelary/internal/catalog/models"
	id "jwelary/pkg/domain"
	dErrors "jwelary/pkg/domain-errors"
	"jwelary/pkg/platform/httputil"
	"jwelary/pkg/platform/middleware/request"
)

type Service interface {
	List(ctx context.Context, filter models.Filter) ([]*models.Product, error)
	Get(ctx context.Context, productID id.ProductID) (*models.Product, error)
	Create(ctx context.Context, req models.CreateProductRequest) (*models.Product, error)
	Update(ctx context.Context, productID id.ProductID, req models.UpdateProductRequest) (*models.Product, error)
	Delete(ctx context.Context, productID id.ProductID) error
}

type Handler struct {
	catalog Service
	logger  *slog.Logger
}

func New(catalog Service, logger *slog.Logger) *Handler {
	return &Handler{catalog: catalog, logger: logger}
}

type productResponse struct {
	Message string             `json:"message"`
	Product models.ProductView `json:"product"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Register mounts /products. requireAuth and requireAdmin guard the writes in
// that order.
func (h *Handler) Register(r chi.Router, requireAuth, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			r.Post("/", h.HandleCreate)
			r.Put("/{id}", h.HandleUpdate)
			r.Delete("/{id}", h.HandleDelete)
		})
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.Filter{
		Search:       q.Get("search"),
		FeaturedOnly: q.Get("featured") == "true",
	}
	if c := q.Get("category"); c != "all" {
		filter.Category = c
	}

	products, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	views := make([]models.ProductView, len(products))
	for i, p := range products {
		views[i] = p.View()
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	p, err := h.catalog.Get(r.Context(), productID)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p.View())
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.CreateProductRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	p, err := h.catalog.Create(ctx, *req)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, productResponse{Message: "Product created successfully", Product: p.View()})
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateProductRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	p, err := h.catalog.Update(ctx, productID, *req)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, productResponse{Message: "Product updated successfully", Product: p.View()})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	if err := h.catalog.Delete(r.Context(), productID); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: "Product deleted successfully"})
}

// productIDParam parses {id}. Malformed IDs cannot name a product, so they
// are reported as not found.
func productIDParam(w http.ResponseWriter, r *http.Request) (id.ProductID, bool) {
	productID, err := id.ParseProductID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Product not found"))
		return id.ProductID{}, false
	}
	return productID, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, "catalog request failed",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
