package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	Store
	gets    int
	skuGets int
}

func (c *countingStore) Get(ctx context.Context, id string) (Product, error) {
	c.gets++
	return c.Store.Get(ctx, id)
}

func (c *countingStore) GetBySKU(ctx context.Context, sku string) (Product, error) {
	c.skuGets++
	return c.Store.GetBySKU(ctx, sku)
}

func newCacheFixture(t *testing.T) (*CachedStore, *countingStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	counting := &countingStore{Store: newMemStore()}
	return NewCachedStore(counting, NewCache(client, time.Minute)), counting
}

func TestCachedGetServesRepeatReadsFromCache(t *testing.T) {
	cached, underlying := newCacheFixture(t)
	ctx := context.Background()

	created, err := cached.Insert(ctx, Product{ID: "p1", SKU: "CAC-000001", Name: "Cached"})
	require.NoError(t, err)

	first, err := cached.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, first.ID)
	require.Equal(t, 1, underlying.gets)

	second, err := cached.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, underlying.gets, "second read must come from the cache")

	bySKU, err := cached.GetBySKU(ctx, "CAC-000001")
	require.NoError(t, err)
	require.Equal(t, created.ID, bySKU.ID)
	_, err = cached.GetBySKU(ctx, "CAC-000001")
	require.NoError(t, err)
	require.Equal(t, 1, underlying.skuGets)
}

func TestMutationInvalidatesCachedReads(t *testing.T) {
	cached, underlying := newCacheFixture(t)
	ctx := context.Background()

	created, err := cached.Insert(ctx, Product{ID: "p1", SKU: "CAC-000001", Name: "Before"})
	require.NoError(t, err)

	_, err = cached.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 1, underlying.gets)

	_, err = cached.CompareAndSwap(ctx, created.ID, 0, func(p *Product) error {
		p.Name = "After"
		return nil
	})
	require.NoError(t, err)

	fresh, err := cached.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "After", fresh.Name)
	require.Equal(t, 2, underlying.gets, "version bump must force a reload")
}

func TestSoftDeleteMakesCachedRowInvisible(t *testing.T) {
	cached, _ := newCacheFixture(t)
	ctx := context.Background()

	created, err := cached.Insert(ctx, Product{ID: "p1", SKU: "CAC-000001", Name: "Doomed"})
	require.NoError(t, err)

	_, err = cached.Get(ctx, created.ID)
	require.NoError(t, err)

	deleted, err := cached.SoftDelete(ctx, created.ID, 0)
	require.NoError(t, err)
	require.Equal(t, "Doomed", deleted.Name)

	_, err = cached.Get(ctx, created.ID)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = cached.GetBySKU(ctx, "CAC-000001")
	require.ErrorAs(t, err, &notFound)
}

type failingStore struct {
	Store
	calls int
	err   error
}

func (f *failingStore) Get(ctx context.Context, id string) (Product, error) {
	f.calls++
	return Product{}, f.err
}

func TestLoaderFailureHitsStoreOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	failing := &failingStore{Store: newMemStore(), err: errors.New("connection refused")}
	cached := NewCachedStore(failing, NewCache(client, time.Minute))

	_, err := cached.Get(context.Background(), "p1")
	require.Error(t, err)
	require.EqualError(t, err, "connection refused")
	require.Equal(t, 1, failing.calls, "a load failure must not trigger a second round-trip")
}

func TestNotFoundIsNeverCached(t *testing.T) {
	cached, _ := newCacheFixture(t)
	ctx := context.Background()

	_, err := cached.GetBySKU(ctx, "GHOST-0001")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)

	// The SKU becomes usable the moment a row claims it.
	_, err = cached.Insert(ctx, Product{ID: "p1", SKU: "GHOST-0001", Name: "Ghost"})
	require.NoError(t, err)

	found, err := cached.GetBySKU(ctx, "GHOST-0001")
	require.NoError(t, err)
	require.Equal(t, "p1", found.ID)
}
