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

// Finishing is a catalog finishing process with its default costs.
type Finishing struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	CostPerM2 decimal.Decimal `json:"cost_per_m2"`
	FlatCost  decimal.Decimal `json:"flat_cost"`
	Minutes   decimal.Decimal `json:"minutes"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PricingLine turns the catalog entry into a pricing line for the given area.
func (f Finishing) PricingLine(areaM2 decimal.Decimal) pricing.Finishing {
	return pricing.Finishing{
		Name:      f.Name,
		AreaM2:    areaM2,
		CostPerM2: f.CostPerM2,
		FlatCost:  f.FlatCost,
		Minutes:   f.Minutes,
	}
}

const finishingColumns = `id, name, cost_per_m2, flat_cost, minutes, active, created_at, updated_at`

func scanFinishing(row rowScanner) (Finishing, error) {
	var (
		f                    Finishing
		createdAt, updatedAt string
	)
	if err := row.Scan(&f.ID, &f.Name, &f.CostPerM2, &f.FlatCost, &f.Minutes, &f.Active, &createdAt, &updatedAt); err != nil {
		return Finishing{}, err
	}
	var err error
	if f.CreatedAt, err = parseTime(createdAt); err != nil {
		return Finishing{}, err
	}
	if f.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Finishing{}, err
	}
	return f, nil
}

// CreateFinishing inserts an active finishing.
func (s *Store) CreateFinishing(ctx context.Context, f Finishing) (Finishing, error) {
	f.ID = s.newID()
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO finishings (id, name, cost_per_m2, flat_cost, minutes, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, TRUE, ?, ?)
	`, f.ID, f.Name, f.CostPerM2, f.FlatCost, f.Minutes, now, now)
	if err != nil {
		return Finishing{}, fmt.Errorf("insert finishing: %w", uniqueName(err, "finishing", f.Name))
	}
	return s.GetFinishing(ctx, f.ID)
}

// UpdateFinishing overwrites a finishing.
func (s *Store) UpdateFinishing(ctx context.Context, id string, f Finishing) (Finishing, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE finishings
		SET
			name = ?,
			cost_per_m2 = ?,
			flat_cost = ?,
			minutes = ?,
			active = ?,
			updated_at = ?
		WHERE id = ?
	`, f.Name, f.CostPerM2, f.FlatCost, f.Minutes, f.Active, s.timestamp(), id)
	if err != nil {
		return Finishing{}, fmt.Errorf("update finishing: %w", uniqueName(err, "finishing", f.Name))
	}
	if err := requireAffected(result, "finishing", id); err != nil {
		return Finishing{}, err
	}
	return s.GetFinishing(ctx, id)
}

// GetFinishing returns a finishing by id.
func (s *Store) GetFinishing(ctx context.Context, id string) (Finishing, error) {
	f, err := scanFinishing(s.db.QueryRowContext(ctx, `SELECT `+finishingColumns+` FROM finishings WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Finishing{}, fmt.Errorf("finishing %s: %w", id, ErrNotFound)
		}
		return Finishing{}, fmt.Errorf("query finishing: %w", err)
	}
	return f, nil
}

// ListFinishings returns all finishings, newest first.
func (s *Store) ListFinishings(ctx context.Context) ([]Finishing, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+finishingColumns+` FROM finishings ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query finishings: %w", err)
	}
	defer rows.Close()

	finishings := make([]Finishing, 0)
	for rows.Next() {
		f, err := scanFinishing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan finishing: %w", err)
		}
		finishings = append(finishings, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate finishings: %w", err)
	}

	return finishings, nil
}
