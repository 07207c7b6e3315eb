// Package seed inserts the catalog a fresh shop starts with.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Simplici0/orcafacil/internal/store"
)

const (
	defaultCustomerName  = "Consumidor final"
	defaultMaterialName  = "Lona 440g"
	defaultVinylName     = "Vinil adesivo"
	defaultFinishingName = "Laminação"
	defaultEyeletName    = "Ilhós"
	defaultProductName   = "Banner em lona"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

type seeder struct {
	tx    *sql.Tx
	ctx   context.Context
	now   string
	stats *Stats
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, db *sql.DB) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	s := &seeder{
		tx:    tx,
		ctx:   ctx,
		now:   time.Now().UTC().Format(store.TimeLayout),
		stats: &stats,
	}

	steps := []func() error{
		s.ensureSettings,
		s.ensureCustomer,
		s.ensureMaterials,
		s.ensureFinishings,
		s.ensureProduct,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func (s *seeder) exists(query string, args ...any) (bool, error) {
	var exists bool
	if err := s.tx.QueryRowContext(s.ctx, `SELECT EXISTS(`+query+`)`, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *seeder) ensureSettings() error {
	result, err := s.tx.ExecContext(s.ctx, `
		INSERT INTO settings (id, currency, finishing_hourly_rate, default_margin_percent, default_margin_basis, quote_validity_days, updated_at)
		VALUES (1, 'BRL', '45', '30', 'cost', 15, ?)
		ON CONFLICT(id) DO NOTHING
	`, s.now)
	if err != nil {
		return fmt.Errorf("insert settings singleton: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		s.stats.Inserts++
	}
	return nil
}

func (s *seeder) ensureCustomer() error {
	exists, err := s.exists(`SELECT 1 FROM customers WHERE name = ? LIMIT 1`, defaultCustomerName)
	if err != nil {
		return fmt.Errorf("check default customer existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := s.tx.ExecContext(s.ctx, `
		INSERT INTO customers (id, name, notes, active, created_at, updated_at)
		VALUES (?, ?, ?, TRUE, ?, ?)
	`, ulid.Make().String(), defaultCustomerName, "vendas de balcão", s.now, s.now); err != nil {
		return fmt.Errorf("insert default customer: %w", err)
	}
	s.stats.Inserts++
	return nil
}

func (s *seeder) ensureMaterials() error {
	materials := []struct {
		name, unit, price, minStock, waste string
	}{
		{defaultMaterialName, "m2", "18.50", "20", "5"},
		{defaultVinylName, "m2", "22.00", "10", "8"},
	}

	for _, m := range materials {
		exists, err := s.exists(`SELECT 1 FROM materials WHERE name = ? LIMIT 1`, m.name)
		if err != nil {
			return fmt.Errorf("check material %q existence: %w", m.name, err)
		}
		if exists {
			continue
		}

		if _, err := s.tx.ExecContext(s.ctx, `
			INSERT INTO materials (id, name, unit, unit_price, stock_quantity, min_stock, waste_percent, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, '0', ?, ?, TRUE, ?, ?)
		`, ulid.Make().String(), m.name, m.unit, m.price, m.minStock, m.waste, s.now, s.now); err != nil {
			return fmt.Errorf("insert material %q: %w", m.name, err)
		}
		s.stats.Inserts++
	}
	return nil
}

func (s *seeder) ensureFinishings() error {
	finishings := []struct {
		name, costPerM2, flatCost, minutes string
	}{
		{defaultFinishingName, "12.00", "0", "10"},
		{defaultEyeletName, "0", "4.00", "5"},
	}

	for _, f := range finishings {
		exists, err := s.exists(`SELECT 1 FROM finishings WHERE name = ? LIMIT 1`, f.name)
		if err != nil {
			return fmt.Errorf("check finishing %q existence: %w", f.name, err)
		}
		if exists {
			continue
		}

		if _, err := s.tx.ExecContext(s.ctx, `
			INSERT INTO finishings (id, name, cost_per_m2, flat_cost, minutes, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, TRUE, ?, ?)
		`, ulid.Make().String(), f.name, f.costPerM2, f.flatCost, f.minutes, s.now, s.now); err != nil {
			return fmt.Errorf("insert finishing %q: %w", f.name, err)
		}
		s.stats.Inserts++
	}
	return nil
}

func (s *seeder) ensureProduct() error {
	exists, err := s.exists(`SELECT 1 FROM products WHERE name = ? LIMIT 1`, defaultProductName)
	if err != nil {
		return fmt.Errorf("check default product existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := s.tx.ExecContext(s.ctx, `
		INSERT INTO products (id, name, category, unit, base_price, description, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, TRUE, ?, ?)
	`, ulid.Make().String(), defaultProductName, "impressos", "m2", "65.00", "lona 440g com acabamento em ilhós", s.now, s.now); err != nil {
		return fmt.Errorf("insert default product: %w", err)
	}
	s.stats.Inserts++
	return nil
}
