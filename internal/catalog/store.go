package catalog

import "context"

// Store is the persistence abstraction for products. Implementations must
// enforce SKU uniqueness among non-deleted rows at the storage layer; the
// ExistsBySKU fast-fail is an optimization, never the correctness boundary.
type Store interface {
	// Insert persists a new row. Returns *DuplicateSKUError when a
	// non-deleted row already holds the same SKU.
	Insert(ctx context.Context, product Product) (Product, error)
	// InsertBatch persists all rows inside a single transaction. Any
	// failure leaves nothing persisted.
	InsertBatch(ctx context.Context, products []Product) ([]Product, error)
	// Get returns the non-deleted row with the given ID.
	Get(ctx context.Context, id string) (Product, error)
	// GetBySKU returns the non-deleted row with the given SKU.
	GetBySKU(ctx context.Context, sku string) (Product, error)
	// ExistsBySKU reports whether a non-deleted row holds the SKU.
	ExistsBySKU(ctx context.Context, sku string) (bool, error)
	// List returns one page of non-deleted rows plus the total match count.
	List(ctx context.Context, filter Filter, page PageRequest) ([]Product, int, error)
	// CountByCategory counts non-deleted rows in the category. An empty
	// category counts every non-deleted row.
	CountByCategory(ctx context.Context, category string) (int64, error)
	// CompareAndSwap atomically reads the row, verifies the version, applies
	// mutate, increments the version and writes back. Exactly one of any set
	// of concurrent callers per id wins; losers receive
	// *VersionConflictError carrying the persisted state.
	CompareAndSwap(ctx context.Context, id string, expectedVersion int64, mutate func(*Product) error) (Product, error)
	// SoftDelete tombstones the row under the same atomic contract as
	// CompareAndSwap and returns the row as it was before tombstoning.
	SoftDelete(ctx context.Context, id string, expectedVersion int64) (Product, error)
}
