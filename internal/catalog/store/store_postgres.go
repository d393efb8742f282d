package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"jwelary/internal/catalog/models"
	id "jwelary/pkg/domain"
	"jwelary/pkg/platform/sentinel"
)

const productColumns = `id, name, price::float8, original_price::float8, description, category,
	to_json(images)::text, in_stock, featured, stock_quantity, material, weight, size, gemstone,
	created_at, updated_at`

// PostgresProductStore persists products in the products table.
type PostgresProductStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresProductStore {
	return &PostgresProductStore{db: db}
}

func (s *PostgresProductStore) List(ctx context.Context, filter models.Filter) ([]*models.Product, error) {
	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.FeaturedOnly {
		where = append(where, "featured")
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func (s *PostgresProductStore) FindByID(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", uuid.UUID(productID))
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return p, err
}

func (s *PostgresProductStore) Create(ctx context.Context, p *models.Product) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, original_price, description, category, images,
			in_stock, featured, stock_quantity, material, weight, size, gemstone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::text[], $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		uuid.UUID(p.ID), p.Name, p.Price, p.OriginalPrice, p.Description, p.Category, pq.Array(p.Images),
		p.InStock, p.Featured, p.StockQuantity, p.Specifications.Material, p.Specifications.Weight,
		p.Specifications.Size, p.Specifications.Gemstone, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (s *PostgresProductStore) Update(ctx context.Context, p *models.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET name = $2, price = $3, original_price = $4, description = $5, category = $6,
			images = $7::text[], in_stock = $8, featured = $9, stock_quantity = $10, material = $11,
			weight = $12, size = $13, gemstone = $14, updated_at = $15
		WHERE id = $1`,
		uuid.UUID(p.ID), p.Name, p.Price, p.OriginalPrice, p.Description, p.Category, pq.Array(p.Images),
		p.InStock, p.Featured, p.StockQuantity, p.Specifications.Material, p.Specifications.Weight,
		p.Specifications.Size, p.Specifications.Gemstone, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return requireOneRow(res, "update product")
}

func (s *PostgresProductStore) Delete(ctx context.Context, productID id.ProductID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, uuid.UUID(productID))
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return requireOneRow(res, "delete product")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		p             models.Product
		raw           uuid.UUID
		originalPrice sql.NullFloat64
		images        string
		gemstone      sql.NullString
	)
	err := row.Scan(&raw, &p.Name, &p.Price, &originalPrice, &p.Description, &p.Category, &images,
		&p.InStock, &p.Featured, &p.StockQuantity, &p.Specifications.Material, &p.Specifications.Weight,
		&p.Specifications.Size, &gemstone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return nil, fmt.Errorf("decode product images: %w", err)
	}
	p.ID = id.ProductID(raw)
	if originalPrice.Valid {
		p.OriginalPrice = &originalPrice.Float64
	}
	if gemstone.Valid {
		p.Specifications.Gemstone = &gemstone.String
	}
	return &p, nil
}

func requireOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
