package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/orcafacil/internal/pricing"
)

// Material is an inventory item consumed by jobs.
type Material struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
	MinStock      decimal.Decimal `json:"min_stock"`
	WastePercent  decimal.Decimal `json:"waste_percent"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// LowStock reports whether the stock is at or below the minimum.
func (m Material) LowStock() bool {
	return m.StockQuantity.LessThanOrEqual(m.MinStock)
}

// PricingLine turns the inventory item into a pricing line for quantity.
func (m Material) PricingLine(quantity decimal.Decimal) pricing.Material {
	return pricing.Material{
		Name:         m.Name,
		UnitPrice:    m.UnitPrice,
		Quantity:     quantity,
		Unit:         m.Unit,
		WastePercent: m.WastePercent,
	}
}

// StockMovement records a change in a material's stock.
type StockMovement struct {
	ID           string          `json:"id"`
	MaterialID   string          `json:"material_id"`
	Kind         MovementKind    `json:"kind"`
	Quantity     decimal.Decimal `json:"quantity"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Reason       string          `json:"reason"`
	CreatedAt    time.Time       `json:"created_at"`
}

const materialColumns = `id, name, unit, unit_price, stock_quantity, min_stock, waste_percent, active, created_at, updated_at`

func scanMaterial(row rowScanner) (Material, error) {
	var (
		m                    Material
		createdAt, updatedAt string
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Unit, &m.UnitPrice, &m.StockQuantity, &m.MinStock, &m.WastePercent, &m.Active, &createdAt, &updatedAt); err != nil {
		return Material{}, err
	}
	var err error
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return Material{}, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Material{}, err
	}
	return m, nil
}

// CreateMaterial inserts an active material with its opening stock.
func (s *Store) CreateMaterial(ctx context.Context, m Material) (Material, error) {
	m.ID = s.newID()
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO materials (id, name, unit, unit_price, stock_quantity, min_stock, waste_percent, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, TRUE, ?, ?)
	`, m.ID, m.Name, m.Unit, m.UnitPrice, m.StockQuantity, m.MinStock, m.WastePercent, now, now)
	if err != nil {
		return Material{}, fmt.Errorf("insert material: %w", uniqueName(err, "material", m.Name))
	}
	return s.GetMaterial(ctx, m.ID)
}

// UpdateMaterial overwrites the catalog fields of a material. Stock only
// changes through RecordMovement.
func (s *Store) UpdateMaterial(ctx context.Context, id string, m Material) (Material, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE materials
		SET
			name = ?,
			unit = ?,
			unit_price = ?,
			min_stock = ?,
			waste_percent = ?,
			active = ?,
			updated_at = ?
		WHERE id = ?
	`, m.Name, m.Unit, m.UnitPrice, m.MinStock, m.WastePercent, m.Active, s.timestamp(), id)
	if err != nil {
		return Material{}, fmt.Errorf("update material: %w", uniqueName(err, "material", m.Name))
	}
	if err := requireAffected(result, "material", id); err != nil {
		return Material{}, err
	}
	return s.GetMaterial(ctx, id)
}

// GetMaterial returns a material by id.
func (s *Store) GetMaterial(ctx context.Context, id string) (Material, error) {
	m, err := scanMaterial(s.db.QueryRowContext(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Material{}, fmt.Errorf("material %s: %w", id, ErrNotFound)
		}
		return Material{}, fmt.Errorf("query material: %w", err)
	}
	return m, nil
}

// ListMaterials returns all materials, newest first.
func (s *Store) ListMaterials(ctx context.Context) ([]Material, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+materialColumns+`
		FROM materials
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query materials: %w", err)
	}
	defer rows.Close()

	materials := make([]Material, 0)
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		materials = append(materials, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}

	return materials, nil
}

// ListLowStock returns active materials at or below their minimum stock.
func (s *Store) ListLowStock(ctx context.Context) ([]Material, error) {
	materials, err := s.ListMaterials(ctx)
	if err != nil {
		return nil, err
	}

	low := make([]Material, 0)
	for _, m := range materials {
		if m.Active && m.LowStock() {
			low = append(low, m)
		}
	}
	return low, nil
}

// RecordMovement applies a stock movement atomically. "in" adds, "out"
// subtracts and never drives the stock negative, "adjust" sets the counted
// balance.
func (s *Store) RecordMovement(ctx context.Context, materialID string, kind MovementKind, quantity decimal.Decimal, reason string) (StockMovement, error) {
	switch kind {
	case MovementIn, MovementOut:
		if !quantity.IsPositive() {
			return StockMovement{}, fmt.Errorf("quantity must be positive: %w", ErrInvalidMovement)
		}
	case MovementAdjust:
		if quantity.IsNegative() {
			return StockMovement{}, fmt.Errorf("counted quantity cannot be negative: %w", ErrInvalidMovement)
		}
	default:
		return StockMovement{}, fmt.Errorf("unknown kind %q: %w", kind, ErrInvalidMovement)
	}

	movement := StockMovement{
		ID:         s.newID(),
		MaterialID: materialID,
		Kind:       kind,
		Quantity:   quantity,
		Reason:     reason,
	}
	now := s.now()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var stock decimal.Decimal
		err := tx.QueryRowContext(ctx, `SELECT stock_quantity FROM materials WHERE id = ?`, materialID).Scan(&stock)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("material %s: %w", materialID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("query material stock: %w", err)
		}

		switch kind {
		case MovementIn:
			stock = stock.Add(quantity)
		case MovementOut:
			if stock.LessThan(quantity) {
				return fmt.Errorf("material %s has %s, needs %s: %w", materialID, stock, quantity, ErrInsufficientStock)
			}
			stock = stock.Sub(quantity)
		case MovementAdjust:
			stock = quantity
		}
		movement.BalanceAfter = stock

		if _, err := tx.ExecContext(ctx, `
			UPDATE materials SET stock_quantity = ?, updated_at = ? WHERE id = ?
		`, stock, formatTime(now), materialID); err != nil {
			return fmt.Errorf("update material stock: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stock_movements (id, material_id, kind, quantity, balance_after, reason, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, movement.ID, materialID, string(kind), quantity, stock, reason, formatTime(now)); err != nil {
			return fmt.Errorf("insert stock movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return StockMovement{}, err
	}

	movement.CreatedAt = now.UTC()
	return movement, nil
}

// ListMovements returns a material's stock history, newest first.
func (s *Store) ListMovements(ctx context.Context, materialID string) ([]StockMovement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, material_id, kind, quantity, balance_after, reason, created_at
		FROM stock_movements
		WHERE material_id = ?
		ORDER BY created_at DESC, id DESC
	`, materialID)
	if err != nil {
		return nil, fmt.Errorf("query stock movements: %w", err)
	}
	defer rows.Close()

	movements := make([]StockMovement, 0)
	for rows.Next() {
		var (
			m         StockMovement
			kind      string
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.MaterialID, &kind, &m.Quantity, &m.BalanceAfter, &m.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		m.Kind = MovementKind(kind)
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock movements: %w", err)
	}

	return movements, nil
}
