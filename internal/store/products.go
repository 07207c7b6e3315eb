package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry offered to customers (banner, sticker, facade sign).
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Unit        string          `json:"unit"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Description string          `json:"description"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

const productColumns = `id, name, category, unit, base_price, description, active, created_at, updated_at`

func scanProduct(row rowScanner) (Product, error) {
	var (
		p                    Product
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Unit, &p.BasePrice, &p.Description, &p.Active, &createdAt, &updatedAt); err != nil {
		return Product{}, err
	}
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return Product{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Product{}, err
	}
	return p, nil
}

// CreateProduct inserts an active product.
func (s *Store) CreateProduct(ctx context.Context, p Product) (Product, error) {
	p.ID = s.newID()
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, unit, base_price, description, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, TRUE, ?, ?)
	`, p.ID, p.Name, p.Category, p.Unit, p.BasePrice, p.Description, now, now)
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	return s.GetProduct(ctx, p.ID)
}

// UpdateProduct overwrites the editable fields of a product.
func (s *Store) UpdateProduct(ctx context.Context, id string, p Product) (Product, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET
			name = ?,
			category = ?,
			unit = ?,
			base_price = ?,
			description = ?,
			active = ?,
			updated_at = ?
		WHERE id = ?
	`, p.Name, p.Category, p.Unit, p.BasePrice, p.Description, p.Active, s.timestamp(), id)
	if err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	if err := requireAffected(result, "product", id); err != nil {
		return Product{}, err
	}
	return s.GetProduct(ctx, id)
}

// GetProduct returns a product by id.
func (s *Store) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return Product{}, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

// ListProducts returns products ordered by category and name.
func (s *Store) ListProducts(ctx context.Context, category string) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE (? = '' OR category = ?)
		ORDER BY category, name COLLATE NOCASE
	`, category, category)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}
