package catalog

import (
	"context"
	"errors"
)

// Guard translates optimistic-concurrency failures into caller-meaningful
// conflicts. It invokes a store write exactly once and never retries: blind
// retries on business mutations can silently re-apply deltas, so the retry
// decision belongs to the caller, armed with the current snapshot.
type Guard struct {
	store Store
}

// NewGuard constructs Guard.
func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// Swap runs one compare-and-swap attempt. On a version conflict the returned
// error carries the currently persisted state.
func (g *Guard) Swap(ctx context.Context, id string, expectedVersion int64, mutate func(*Product) error) (Product, error) {
	updated, err := g.store.CompareAndSwap(ctx, id, expectedVersion, mutate)
	if err != nil {
		return Product{}, g.withSnapshot(ctx, err)
	}
	return updated, nil
}

// Delete runs one soft-delete attempt under the same contract as Swap. The
// returned product is the row as it stood before tombstoning.
func (g *Guard) Delete(ctx context.Context, id string, expectedVersion int64) (Product, error) {
	deleted, err := g.store.SoftDelete(ctx, id, expectedVersion)
	if err != nil {
		return Product{}, g.withSnapshot(ctx, err)
	}
	return deleted, nil
}

// withSnapshot makes sure a conflict exposes the persisted row even when the
// store produced the conflict without one.
func (g *Guard) withSnapshot(ctx context.Context, err error) error {
	var conflict *VersionConflictError
	if !errors.As(err, &conflict) || conflict.Current.ID != "" {
		return err
	}
	current, getErr := g.store.Get(ctx, conflict.ID)
	if getErr != nil {
		return err
	}
	conflict.Current = current
	conflict.CurrentVersion = current.Version
	return conflict
}
