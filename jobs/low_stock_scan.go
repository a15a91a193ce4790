package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/thedavestack/product-catalog/internal/catalog"
)

// ProductLister is the slice of the catalog store the scan needs.
type ProductLister interface {
	List(ctx context.Context, filter catalog.Filter, page catalog.PageRequest) ([]catalog.Product, int, error)
}

// LowStockJob flags products sitting at or below their reorder threshold so
// operators can restock before a stockout.
type LowStockJob struct {
	store  ProductLister
	logger *slog.Logger
}

// NewLowStockJob constructs LowStockJob.
func NewLowStockJob(store ProductLister, logger *slog.Logger) *LowStockJob {
	return &LowStockJob{store: store, logger: logger}
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	limit := payload.Limit
	if limit <= 0 {
		limit = 100
	}
	active := true
	products, total, err := j.store.List(ctx,
		catalog.Filter{LowStock: true, Active: &active},
		catalog.PageRequest{Page: 1, PerPage: limit})
	if err != nil {
		return err
	}
	for _, p := range products {
		j.logger.Warn("product below minimum stock",
			slog.String("id", p.ID),
			slog.String("sku", p.SKU),
			slog.Int("stock_quantity", p.StockQuantity),
			slog.Int("min_stock_level", p.MinStockLevel))
	}
	j.logger.Info("low stock scan finished",
		slog.Int("flagged", len(products)),
		slog.Int("total", total))
	return nil
}
