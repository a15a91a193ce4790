package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/thedavestack/product-catalog/internal/platform/httpx"
)

// Handler wires the JSON endpoints for the catalog. It is a thin collaborator
// of the mutation core: it shapes requests and responses, nothing more.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Post("/batch", h.createBatch)
		r.Get("/count", h.count)
		r.Get("/low-stock", h.lowStock)
		r.Get("/sku/{sku}", h.getBySKU)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Delete("/", h.delete)
		})
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	created, err := h.service.Create(r.Context(), req.draft())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) createBatch(w http.ResponseWriter, r *http.Request) {
	var req batchCreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	drafts := make([]Draft, 0, len(req.Products))
	for _, item := range req.Products {
		drafts = append(drafts, item.draft())
	}
	created, err := h.service.CreateBatch(r.Context(), drafts)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) getBySKU(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetBySKU(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, page := parseListQuery(r)
	result, err := h.service.List(r.Context(), filter, page)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: result.Items, Pagination: result.Pagination})
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	filter, page := parseListQuery(r)
	filter.LowStock = true
	result, err := h.service.List(r.Context(), filter, page)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: result.Items, Pagination: result.Pagination})
}

func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	total, err := h.service.CountByCategory(r.Context(), category)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, countResponse{Category: category, Count: total})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), *req.Version, req.patch())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.ParseInt(r.URL.Query().Get("version"), 10, 64)
	if err != nil || version < 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "version query parameter is required")
		return
	}
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), version); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *ValidationError
		duplicateErr  *DuplicateSKUError
		notFoundErr   *NotFoundError
		conflictErr   *VersionConflictError
		batchErr      *BatchError
	)
	switch {
	case errors.As(err, &validationErr):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationErr.Error())
	case errors.As(err, &duplicateErr):
		httpx.Problem(w, http.StatusConflict, "Duplicate SKU", duplicateErr.Error())
	case errors.As(err, &notFoundErr):
		httpx.Problem(w, http.StatusNotFound, "Not Found", notFoundErr.Error())
	case errors.As(err, &conflictErr):
		httpx.JSON(w, http.StatusConflict, map[string]any{
			"title":           "Version Conflict",
			"status":          http.StatusConflict,
			"detail":          conflictErr.Error(),
			"current_version": conflictErr.CurrentVersion,
			"current":         conflictErr.Current,
		})
	case errors.As(err, &batchErr):
		items := make([]batchItemProblem, 0, len(batchErr.Items))
		for _, item := range batchErr.Items {
			items = append(items, batchItemProblem{Index: item.Index, SKU: item.SKU, Detail: item.Err.Error()})
		}
		httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"title":  "Batch Rejected",
			"status": http.StatusUnprocessableEntity,
			"items":  items,
		})
	case errors.Is(err, ErrSKUGenerationExhausted):
		httpx.Problem(w, http.StatusServiceUnavailable, "SKU Generation Exhausted", "retry the request")
	case errors.Is(err, context.DeadlineExceeded):
		httpx.Problem(w, http.StatusGatewayTimeout, "Timeout", "")
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the response.
		httpx.Problem(w, http.StatusServiceUnavailable, "Canceled", "")
	default:
		h.logger.Error("catalog request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Storage Unavailable", "")
	}
}

func parseListQuery(r *http.Request) (Filter, PageRequest) {
	q := r.URL.Query()
	filter := Filter{
		Category: q.Get("category"),
		Name:     q.Get("name"),
		LowStock: q.Get("low_stock") == "true",
	}
	if raw := q.Get("active"); raw != "" {
		active := raw == "true"
		filter.Active = &active
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return filter, PageRequest{Page: page, PerPage: perPage}
}

func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fieldErrs[0].Field() + " failed on " + fieldErrs[0].Tag()
	}
	return err.Error()
}
