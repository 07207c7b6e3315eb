package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ProductionOrder tracks a sold job through the shop floor.
type ProductionOrder struct {
	ID        string          `json:"id"`
	SaleID    string          `json:"sale_id"`
	Title     string          `json:"title"`
	Stage     ProductionStage `json:"stage"`
	DueDate   *time.Time      `json:"due_date,omitempty"`
	Notes     string          `json:"notes"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

const productionColumns = `id, sale_id, title, stage, due_date, notes, created_at, updated_at`

func scanProductionOrder(row rowScanner) (ProductionOrder, error) {
	var (
		o                    ProductionOrder
		stage                string
		dueDate              sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&o.ID, &o.SaleID, &o.Title, &stage, &dueDate, &o.Notes, &createdAt, &updatedAt); err != nil {
		return ProductionOrder{}, err
	}
	o.Stage = ProductionStage(stage)

	var err error
	if o.DueDate, err = parseNullTime(dueDate); err != nil {
		return ProductionOrder{}, err
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return ProductionOrder{}, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return ProductionOrder{}, err
	}
	return o, nil
}

// GetProductionOrder returns a production order by id.
func (s *Store) GetProductionOrder(ctx context.Context, id string) (ProductionOrder, error) {
	o, err := scanProductionOrder(s.db.QueryRowContext(ctx, `SELECT `+productionColumns+` FROM production_orders WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProductionOrder{}, fmt.Errorf("production order %s: %w", id, ErrNotFound)
		}
		return ProductionOrder{}, fmt.Errorf("query production order: %w", err)
	}
	return o, nil
}

// ListProduction returns orders by due date, undated last, optionally
// filtered by stage.
func (s *Store) ListProduction(ctx context.Context, stage ProductionStage) ([]ProductionOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productionColumns+`
		FROM production_orders
		WHERE (? = '' OR stage = ?)
		ORDER BY due_date IS NULL, due_date, created_at, id
	`, string(stage), string(stage))
	if err != nil {
		return nil, fmt.Errorf("query production orders: %w", err)
	}
	defer rows.Close()

	orders := make([]ProductionOrder, 0)
	for rows.Next() {
		o, err := scanProductionOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan production order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate production orders: %w", err)
	}

	return orders, nil
}

// AdvanceProduction moves an order to its next stage. Orders of cancelled
// sales are frozen and delivered orders cannot move.
func (s *Store) AdvanceProduction(ctx context.Context, id string) (ProductionOrder, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var stage, saleStatus string
		err := tx.QueryRowContext(ctx, `
			SELECT p.stage, s.status
			FROM production_orders p
			JOIN sales s ON s.id = p.sale_id
			WHERE p.id = ?
		`, id).Scan(&stage, &saleStatus)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("production order %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("query production order: %w", err)
		}
		if SaleStatus(saleStatus) == SaleCancelled {
			return fmt.Errorf("production order %s: %w", id, ErrSaleCancelled)
		}

		next, ok := ProductionStage(stage).Next()
		if !ok {
			return fmt.Errorf("production order %s is %s: %w", id, stage, ErrInvalidTransition)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE production_orders SET stage = ?, updated_at = ? WHERE id = ?
		`, string(next), s.timestamp(), id); err != nil {
			return fmt.Errorf("update production stage: %w", err)
		}
		return nil
	})
	if err != nil {
		return ProductionOrder{}, err
	}
	return s.GetProductionOrder(ctx, id)
}
