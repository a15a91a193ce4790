package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	auditEntity       = "product"
	auditTimeout      = 5 * time.Second
	actionCreate      = "product.create"
	actionUpdate      = "product.update"
	actionDelete      = "product.delete"
	actionBatchCreate = "product.batch_create"
)

// Service is the externally visible write API for the catalog. It composes
// the SKU policy, the store and the concurrency guard into all-or-nothing
// operations and emits fire-and-forget audit events.
type Service struct {
	store  Store
	guard  *Guard
	sku    *SKUPolicy
	audit  AuditSink
	logger *slog.Logger
}

// NewService builds Service. The audit sink may be nil.
func NewService(store Store, sku *SKUPolicy, audit AuditSink, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, guard: NewGuard(store), sku: sku, audit: audit, logger: logger}
}

// Create validates the draft, settles its SKU and persists a new product at
// version 0. Auto-generated SKUs that race with concurrent creates are
// regenerated up to the attempt bound.
func (s *Service) Create(ctx context.Context, draft Draft) (Product, error) {
	if err := validateDraft(draft); err != nil {
		return Product{}, err
	}
	if strings.TrimSpace(draft.SKU) != "" {
		sku, err := s.sku.Normalize(draft.SKU, draft.Category)
		if err != nil {
			return Product{}, err
		}
		// Fast-fail only; the storage constraint is the authority.
		exists, err := s.store.ExistsBySKU(ctx, sku)
		if err != nil {
			return Product{}, err
		}
		if exists {
			return Product{}, &DuplicateSKUError{SKU: sku}
		}
		created, err := s.store.Insert(ctx, newProduct(draft, sku))
		if err != nil {
			return Product{}, err
		}
		s.emit(ctx, actionCreate, created.ID, nil, &created)
		return created, nil
	}

	for attempt := 0; attempt < maxSKUAttempts; attempt++ {
		sku := s.sku.Generate(draft.Category)
		exists, err := s.store.ExistsBySKU(ctx, sku)
		if err != nil {
			return Product{}, err
		}
		if exists {
			continue
		}
		created, err := s.store.Insert(ctx, newProduct(draft, sku))
		if err != nil {
			var dup *DuplicateSKUError
			if errors.As(err, &dup) {
				// Lost the insert race on a generated suffix; roll again.
				continue
			}
			return Product{}, err
		}
		s.emit(ctx, actionCreate, created.ID, nil, &created)
		return created, nil
	}
	return Product{}, ErrSKUGenerationExhausted
}

// CreateBatch persists every draft or none. SKUs are settled first; any
// collision inside the batch or with an existing row rejects the whole batch
// before a single row is written. The storage transaction backs the same
// guarantee against writers racing the pre-check.
func (s *Service) CreateBatch(ctx context.Context, drafts []Draft) ([]Product, error) {
	if len(drafts) == 0 {
		return nil, &ValidationError{Reason: "batch must contain at least one draft"}
	}

	products := make([]Product, 0, len(drafts))
	seen := make(map[string]int, len(drafts))
	var itemErrs []BatchItemError
	for i, draft := range drafts {
		if err := validateDraft(draft); err != nil {
			itemErrs = append(itemErrs, BatchItemError{Index: i, SKU: draft.SKU, Err: err})
			continue
		}
		sku, err := s.settleBatchSKU(ctx, draft, seen)
		if err != nil {
			itemErrs = append(itemErrs, BatchItemError{Index: i, SKU: sku, Err: err})
			continue
		}
		seen[sku] = i
		products = append(products, newProduct(draft, sku))
	}
	if len(itemErrs) > 0 {
		return nil, &BatchError{Items: itemErrs}
	}

	created, err := s.store.InsertBatch(ctx, products)
	if err != nil {
		return nil, err
	}
	for i := range created {
		s.emit(ctx, actionBatchCreate, created[i].ID, nil, &created[i])
	}
	return created, nil
}

func (s *Service) settleBatchSKU(ctx context.Context, draft Draft, seen map[string]int) (string, error) {
	if strings.TrimSpace(draft.SKU) != "" {
		sku, err := s.sku.Normalize(draft.SKU, draft.Category)
		if err != nil {
			return draft.SKU, err
		}
		if err := s.checkBatchSKUFree(ctx, sku, seen); err != nil {
			return sku, err
		}
		return sku, nil
	}
	for attempt := 0; attempt < maxSKUAttempts; attempt++ {
		sku := s.sku.Generate(draft.Category)
		if err := s.checkBatchSKUFree(ctx, sku, seen); err == nil {
			return sku, nil
		} else if !isDuplicate(err) {
			return sku, err
		}
	}
	return "", ErrSKUGenerationExhausted
}

func (s *Service) checkBatchSKUFree(ctx context.Context, sku string, seen map[string]int) error {
	if _, dup := seen[sku]; dup {
		return &DuplicateSKUError{SKU: sku}
	}
	exists, err := s.store.ExistsBySKU(ctx, sku)
	if err != nil {
		return err
	}
	if exists {
		return &DuplicateSKUError{SKU: sku}
	}
	return nil
}

// Update applies the patch against the expected version. A SKU change is
// accepted only when the new value is valid and not held by another live row.
func (s *Service) Update(ctx context.Context, id string, expectedVersion int64, patch Patch) (Product, error) {
	if err := validatePatch(patch); err != nil {
		return Product{}, err
	}
	if patch.SKU != nil {
		// The SKU only ever changes to an explicitly supplied value; a blank
		// patch must not fall into the creation-time generation path.
		if strings.TrimSpace(*patch.SKU) == "" {
			return Product{}, &ValidationError{Field: "sku", Reason: "must not be blank"}
		}
		sku, err := s.sku.Normalize(*patch.SKU, "")
		if err != nil {
			return Product{}, err
		}
		owner, err := s.store.GetBySKU(ctx, sku)
		if err == nil && owner.ID != id {
			return Product{}, &DuplicateSKUError{SKU: sku}
		}
		var notFound *NotFoundError
		if err != nil && !errors.As(err, &notFound) {
			return Product{}, err
		}
		patch.SKU = &sku
	}

	var before Product
	updated, err := s.guard.Swap(ctx, id, expectedVersion, func(p *Product) error {
		before = *p
		patch.Apply(p)
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	s.emit(ctx, actionUpdate, updated.ID, &before, &updated)
	return updated, nil
}

// Delete tombstones the product against the expected version. The audit
// "before" snapshot is the exact row the store tombstoned, read under its
// row lock.
func (s *Service) Delete(ctx context.Context, id string, expectedVersion int64) error {
	before, err := s.guard.Delete(ctx, id, expectedVersion)
	if err != nil {
		return err
	}
	s.emit(ctx, actionDelete, id, &before, nil)
	return nil
}

// Get returns one live product by ID.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	if strings.TrimSpace(id) == "" {
		return Product{}, &ValidationError{Field: "id", Reason: "required"}
	}
	return s.store.Get(ctx, id)
}

// GetBySKU returns one live product by SKU.
func (s *Service) GetBySKU(ctx context.Context, sku string) (Product, error) {
	if strings.TrimSpace(sku) == "" {
		return Product{}, &ValidationError{Field: "sku", Reason: "required"}
	}
	return s.store.GetBySKU(ctx, sku)
}

// List returns one page of live products matching the filter.
func (s *Service) List(ctx context.Context, filter Filter, page PageRequest) (Page, error) {
	items, total, err := s.store.List(ctx, filter, page)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Pagination: NewPagination(page.Page, page.PerPage, total)}, nil
}

// CountByCategory counts live products, optionally scoped to one category.
func (s *Service) CountByCategory(ctx context.Context, category string) (int64, error) {
	return s.store.CountByCategory(ctx, category)
}

// emit hands the event to the audit sink without blocking the mutation path.
// The detached context survives the request that triggered the mutation.
func (s *Service) emit(ctx context.Context, action, id string, before, after *Product) {
	if s.audit == nil {
		return
	}
	event := AuditEvent{
		Actor:    ActorFromContext(ctx),
		Action:   action,
		Entity:   auditEntity,
		EntityID: id,
		Before:   before,
		After:    after,
		At:       time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
		defer cancel()
		if err := s.audit.Record(ctx, event); err != nil {
			s.logger.Warn("audit record dropped",
				slog.String("action", event.Action),
				slog.String("entity_id", event.EntityID),
				slog.Any("error", err))
		}
	}()
}

func newProduct(draft Draft, sku string) Product {
	now := time.Now().UTC()
	active := true
	if draft.Active != nil {
		active = *draft.Active
	}
	return Product{
		ID:            uuid.NewString(),
		SKU:           sku,
		Name:          strings.TrimSpace(draft.Name),
		Description:   draft.Description,
		Category:      draft.Category,
		Price:         draft.Price,
		StockQuantity: draft.StockQuantity,
		MinStockLevel: draft.MinStockLevel,
		ImageURL:      draft.ImageURL,
		Weight:        draft.Weight,
		Dimensions:    draft.Dimensions,
		Active:        active,
		Version:       0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func validateDraft(draft Draft) error {
	if strings.TrimSpace(draft.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if draft.Price < 0 {
		return &ValidationError{Field: "price", Reason: "must be >= 0"}
	}
	if draft.StockQuantity < 0 {
		return &ValidationError{Field: "stock_quantity", Reason: "must be >= 0"}
	}
	if draft.MinStockLevel < 0 {
		return &ValidationError{Field: "min_stock_level", Reason: "must be >= 0"}
	}
	if draft.Weight < 0 {
		return &ValidationError{Field: "weight", Reason: "must be >= 0"}
	}
	return nil
}

func validatePatch(patch Patch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be blank"}
	}
	if patch.Price != nil && *patch.Price < 0 {
		return &ValidationError{Field: "price", Reason: "must be >= 0"}
	}
	if patch.StockQuantity != nil && *patch.StockQuantity < 0 {
		return &ValidationError{Field: "stock_quantity", Reason: "must be >= 0"}
	}
	if patch.MinStockLevel != nil && *patch.MinStockLevel < 0 {
		return &ValidationError{Field: "min_stock_level", Reason: "must be >= 0"}
	}
	return nil
}

func isDuplicate(err error) bool {
	var dup *DuplicateSKUError
	return errors.As(err, &dup)
}
