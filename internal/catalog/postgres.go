package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thedavestack/product-catalog/internal/platform/db"
)

const productColumns = `id, sku, name, COALESCE(description, ''), price, COALESCE(category, ''), stock_quantity, COALESCE(min_stock_level, 0), COALESCE(image_url, ''), COALESCE(weight, 0), COALESCE(dimensions, ''), active, deleted, created_at, updated_at, version`

// PostgresStore persists products in PostgreSQL. The partial unique index on
// (sku) WHERE deleted = FALSE is the authority for SKU uniqueness.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, product Product) (Product, error) {
	_, err := s.pool.Exec(ctx, `INSERT INTO products (id, sku, name, description, price, category, stock_quantity, min_stock_level, image_url, weight, dimensions, active, deleted, created_at, updated_at, version)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,FALSE,$13,$14,$15)`,
		product.ID, product.SKU, product.Name, product.Description, product.Price, product.Category,
		product.StockQuantity, product.MinStockLevel, product.ImageURL, product.Weight, product.Dimensions,
		product.Active, product.CreatedAt, product.UpdatedAt, product.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return Product{}, &DuplicateSKUError{SKU: product.SKU}
		}
		return Product{}, storageErr(err)
	}
	return product, nil
}

func (s *PostgresStore) InsertBatch(ctx context.Context, products []Product) ([]Product, error) {
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		for i, product := range products {
			_, err := tx.Exec(ctx, `INSERT INTO products (id, sku, name, description, price, category, stock_quantity, min_stock_level, image_url, weight, dimensions, active, deleted, created_at, updated_at, version)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,FALSE,$13,$14,$15)`,
				product.ID, product.SKU, product.Name, product.Description, product.Price, product.Category,
				product.StockQuantity, product.MinStockLevel, product.ImageURL, product.Weight, product.Dimensions,
				product.Active, product.CreatedAt, product.UpdatedAt, product.Version)
			if err != nil {
				if isUniqueViolation(err) {
					return &BatchError{Items: []BatchItemError{{Index: i, SKU: product.SKU, Err: &DuplicateSKUError{SKU: product.SKU}}}}
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return products, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 AND deleted = FALSE`, id)
	product, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, &NotFoundError{ID: id}
	}
	if err != nil {
		return Product{}, storageErr(err)
	}
	return product, nil
}

func (s *PostgresStore) GetBySKU(ctx context.Context, sku string) (Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE sku = $1 AND deleted = FALSE`, sku)
	product, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, &NotFoundError{ID: sku}
	}
	if err != nil {
		return Product{}, storageErr(err)
	}
	return product, nil
}

func (s *PostgresStore) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1 AND deleted = FALSE)`, sku).Scan(&exists)
	if err != nil {
		return false, storageErr(err)
	}
	return exists, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter, page PageRequest) ([]Product, int, error) {
	where := ` WHERE deleted = FALSE`
	args := []any{}
	argCount := 0

	if filter.Category != "" {
		argCount++
		where += ` AND category = $` + strconv.Itoa(argCount)
		args = append(args, filter.Category)
	}
	if filter.Active != nil {
		argCount++
		where += ` AND active = $` + strconv.Itoa(argCount)
		args = append(args, *filter.Active)
	}
	if filter.Name != "" {
		argCount++
		where += ` AND name ILIKE $` + strconv.Itoa(argCount)
		args = append(args, "%"+filter.Name+"%")
	}
	if filter.LowStock {
		where += ` AND stock_quantity <= min_stock_level`
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, storageErr(err)
	}

	perPage := page.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	offset := (page.Page - 1) * perPage
	if offset < 0 {
		offset = 0
	}
	argCount++
	limitArg := strconv.Itoa(argCount)
	argCount++
	offsetArg := strconv.Itoa(argCount)
	args = append(args, perPage, offset)

	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products`+where+` ORDER BY created_at DESC, id LIMIT $`+limitArg+` OFFSET $`+offsetArg, args...)
	if err != nil {
		return nil, 0, storageErr(err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, storageErr(err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storageErr(err)
	}
	return products, total, nil
}

func (s *PostgresStore) CountByCategory(ctx context.Context, category string) (int64, error) {
	var count int64
	var err error
	if category == "" {
		err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE deleted = FALSE`).Scan(&count)
	} else {
		err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE deleted = FALSE AND category = $1`, category).Scan(&count)
	}
	if err != nil {
		return 0, storageErr(err)
	}
	return count, nil
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, mutate func(*Product) error) (Product, error) {
	var updated Product
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		current, err := s.lockRow(ctx, tx, id, expectedVersion)
		if err != nil {
			return err
		}
		next := current
		if err := mutate(&next); err != nil {
			return err
		}
		// Immutable fields stay as read regardless of what the mutator did.
		next.ID = current.ID
		next.CreatedAt = current.CreatedAt
		next.Deleted = false
		next.Version = current.Version + 1
		next.UpdatedAt = time.Now().UTC()
		if err := s.writeRow(ctx, tx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return Product{}, storageErr(err)
	}
	return updated, nil
}

func (s *PostgresStore) SoftDelete(ctx context.Context, id string, expectedVersion int64) (Product, error) {
	var deleted Product
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		current, err := s.lockRow(ctx, tx, id, expectedVersion)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE products SET deleted = TRUE, version = $2, updated_at = $3 WHERE id = $1`,
			id, current.Version+1, time.Now().UTC())
		if err != nil {
			return err
		}
		deleted = current
		return nil
	})
	if err != nil {
		return Product{}, storageErr(err)
	}
	return deleted, nil
}

// lockRow reads the live row under FOR UPDATE and verifies the expected
// version. This SELECT/verify/UPDATE sequence is the single atomic unit that
// linearizes concurrent mutations per id.
func (s *PostgresStore) lockRow(ctx context.Context, tx pgx.Tx, id string, expectedVersion int64) (Product, error) {
	row := tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 AND deleted = FALSE FOR UPDATE`, id)
	current, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, &NotFoundError{ID: id}
	}
	if err != nil {
		return Product{}, err
	}
	if current.Version != expectedVersion {
		return Product{}, &VersionConflictError{
			ID:              id,
			ExpectedVersion: expectedVersion,
			CurrentVersion:  current.Version,
			Current:         current,
		}
	}
	return current, nil
}

func (s *PostgresStore) writeRow(ctx context.Context, tx pgx.Tx, p Product) error {
	_, err := tx.Exec(ctx, `UPDATE products SET sku=$2, name=$3, description=$4, price=$5, category=$6, stock_quantity=$7, min_stock_level=$8, image_url=$9, weight=$10, dimensions=$11, active=$12, updated_at=$13, version=$14 WHERE id = $1`,
		p.ID, p.SKU, p.Name, p.Description, p.Price, p.Category, p.StockQuantity, p.MinStockLevel,
		p.ImageURL, p.Weight, p.Dimensions, p.Active, p.UpdatedAt, p.Version)
	if isUniqueViolation(err) {
		return &DuplicateSKUError{SKU: p.SKU}
	}
	return err
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.Category,
		&p.StockQuantity, &p.MinStockLevel, &p.ImageURL, &p.Weight, &p.Dimensions,
		&p.Active, &p.Deleted, &p.CreatedAt, &p.UpdatedAt, &p.Version)
	return p, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// storageErr keeps domain and cancellation errors intact and wraps everything
// else as an infrastructure failure.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	var (
		validationErr *ValidationError
		duplicateErr  *DuplicateSKUError
		notFoundErr   *NotFoundError
		conflictErr   *VersionConflictError
		batchErr      *BatchError
	)
	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &duplicateErr),
		errors.As(err, &notFoundErr),
		errors.As(err, &conflictErr),
		errors.As(err, &batchErr):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
