package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Product is the catalog entity. Rows are never physically removed; Deleted
// marks a tombstone that stays addressable by ID for audit purposes but is
// excluded from every read and uniqueness check.
type Product struct {
	ID            string    `json:"id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Price         float64   `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	MinStockLevel int       `json:"min_stock_level"`
	ImageURL      string    `json:"image_url"`
	Weight        float64   `json:"weight"`
	Dimensions    string    `json:"dimensions"`
	Active        bool      `json:"active"`
	Deleted       bool      `json:"deleted"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LowStock reports whether the product sits at or below its reorder threshold.
func (p Product) LowStock() bool {
	return p.StockQuantity <= p.MinStockLevel
}

// Draft carries the caller-supplied fields for a product about to be created.
// SKU is optional; a blank SKU is derived from the category.
type Draft struct {
	SKU           string
	Name          string
	Description   string
	Category      string
	Price         float64
	StockQuantity int
	MinStockLevel int
	ImageURL      string
	Weight        float64
	Dimensions    string
	Active        *bool
}

// Patch describes a partial update. Nil fields are left untouched.
type Patch struct {
	SKU           *string
	Name          *string
	Description   *string
	Category      *string
	Price         *float64
	StockQuantity *int
	MinStockLevel *int
	ImageURL      *string
	Weight        *float64
	Dimensions    *string
	Active        *bool
}

// Apply copies the non-nil patch fields onto the product.
func (p Patch) Apply(product *Product) {
	if p.SKU != nil {
		product.SKU = *p.SKU
	}
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Category != nil {
		product.Category = *p.Category
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.StockQuantity != nil {
		product.StockQuantity = *p.StockQuantity
	}
	if p.MinStockLevel != nil {
		product.MinStockLevel = *p.MinStockLevel
	}
	if p.ImageURL != nil {
		product.ImageURL = *p.ImageURL
	}
	if p.Weight != nil {
		product.Weight = *p.Weight
	}
	if p.Dimensions != nil {
		product.Dimensions = *p.Dimensions
	}
	if p.Active != nil {
		product.Active = *p.Active
	}
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Category string
	Active   *bool
	Name     string
	LowStock bool
}

// PageRequest selects a listing window. Page is 1-based.
type PageRequest struct {
	Page    int
	PerPage int
}

// Page bundles one listing window with its pagination metadata.
type Page struct {
	Items      []Product
	Pagination Pagination
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := (total + perPage - 1) / perPage
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// ErrSKUGenerationExhausted signals that automatic SKU generation kept
// colliding with existing rows within the attempt bound. Transient; the
// whole create is safe to retry.
var ErrSKUGenerationExhausted = errors.New("catalog: sku generation attempts exhausted")

// ErrStorageUnavailable wraps genuine infrastructure failures from the
// storage layer. It is the only kind a caller may retry transparently.
var ErrStorageUnavailable = errors.New("catalog: storage unavailable")

// ValidationError reports malformed caller input. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "catalog: validation failed: " + e.Reason
	}
	return fmt.Sprintf("catalog: validation failed: %s: %s", e.Field, e.Reason)
}

// DuplicateSKUError reports a uniqueness violation among non-deleted rows.
type DuplicateSKUError struct {
	SKU string
}

func (e *DuplicateSKUError) Error() string {
	return fmt.Sprintf("catalog: sku already exists: %s", e.SKU)
}

// NotFoundError reports that the referenced row does not exist or is a
// tombstone.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("catalog: product not found: %s", e.ID)
}

// VersionConflictError reports an optimistic-lock mismatch. Current carries
// the persisted state so the caller can recompute and retry at its own
// discretion.
type VersionConflictError struct {
	ID              string
	ExpectedVersion int64
	CurrentVersion  int64
	Current         Product
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("catalog: version conflict on %s: expected %d, current %d", e.ID, e.ExpectedVersion, e.CurrentVersion)
}

// BatchItemError ties a batch failure to the offending draft.
type BatchItemError struct {
	Index int
	SKU   string
	Err   error
}

// BatchError rejects an entire batch; no item was persisted.
type BatchError struct {
	Items []BatchItemError
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		parts = append(parts, fmt.Sprintf("item %d (%s): %v", item.Index, item.SKU, item.Err))
	}
	return "catalog: batch rejected: " + strings.Join(parts, "; ")
}
