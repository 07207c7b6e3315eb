package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Customer is a client of the shop.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Document  string    `json:"document"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	City      string    `json:"city"`
	Notes     string    `json:"notes"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const customerColumns = `id, name, document, email, phone, city, notes, active, created_at, updated_at`

func scanCustomer(row rowScanner) (Customer, error) {
	var (
		c                    Customer
		createdAt, updatedAt string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Document, &c.Email, &c.Phone, &c.City, &c.Notes, &c.Active, &createdAt, &updatedAt); err != nil {
		return Customer{}, err
	}
	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return Customer{}, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Customer{}, err
	}
	return c, nil
}

// CreateCustomer inserts an active customer.
func (s *Store) CreateCustomer(ctx context.Context, c Customer) (Customer, error) {
	c.ID = s.newID()
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, document, email, phone, city, notes, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, TRUE, ?, ?)
	`, c.ID, c.Name, c.Document, c.Email, c.Phone, c.City, c.Notes, now, now)
	if err != nil {
		return Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return s.GetCustomer(ctx, c.ID)
}

// UpdateCustomer overwrites the editable fields of a customer.
func (s *Store) UpdateCustomer(ctx context.Context, id string, c Customer) (Customer, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET
			name = ?,
			document = ?,
			email = ?,
			phone = ?,
			city = ?,
			notes = ?,
			active = ?,
			updated_at = ?
		WHERE id = ?
	`, c.Name, c.Document, c.Email, c.Phone, c.City, c.Notes, c.Active, s.timestamp(), id)
	if err != nil {
		return Customer{}, fmt.Errorf("update customer: %w", err)
	}
	if err := requireAffected(result, "customer", id); err != nil {
		return Customer{}, err
	}
	return s.GetCustomer(ctx, id)
}

// DeactivateCustomer hides a customer from default listings without
// breaking the quotes and sales that reference it.
func (s *Store) DeactivateCustomer(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE customers SET active = FALSE, updated_at = ? WHERE id = ?
	`, s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("deactivate customer: %w", err)
	}
	return requireAffected(result, "customer", id)
}

// GetCustomer returns a customer by id.
func (s *Store) GetCustomer(ctx context.Context, id string) (Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Customer{}, fmt.Errorf("customer %s: %w", id, ErrNotFound)
		}
		return Customer{}, fmt.Errorf("query customer: %w", err)
	}
	return c, nil
}

// ListCustomers returns customers ordered by name, filtered by query over
// name, document and email.
func (s *Store) ListCustomers(ctx context.Context, query string, includeInactive bool) ([]Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE (? = '' OR name LIKE ? OR document LIKE ? OR email LIKE ?)
			AND (? OR active)
		ORDER BY name COLLATE NOCASE, id
	`, query, likePattern(query), likePattern(query), likePattern(query), includeInactive)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	customers := make([]Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}

	return customers, nil
}
