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

// Settings is the shop-wide pricing defaults singleton.
type Settings struct {
	Currency             string              `json:"currency"`
	FinishingHourlyRate  decimal.Decimal     `json:"finishing_hourly_rate"`
	DefaultMarginPercent decimal.Decimal     `json:"default_margin_percent"`
	DefaultMarginBasis   pricing.MarginBasis `json:"default_margin_basis"`
	QuoteValidityDays    int                 `json:"quote_validity_days"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// EnsureSettings inserts the default singleton if missing and reports whether it did.
func (s *Store) EnsureSettings(ctx context.Context) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, currency, finishing_hourly_rate, default_margin_percent, default_margin_basis, quote_validity_days, updated_at)
		VALUES (1, 'BRL', '0', '30', 'cost', 15, ?)
		ON CONFLICT(id) DO NOTHING
	`, s.timestamp())
	if err != nil {
		return false, fmt.Errorf("insert default settings: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert default settings: %w", err)
	}
	return affected > 0, nil
}

// GetSettings returns the singleton, creating it with defaults first if needed.
func (s *Store) GetSettings(ctx context.Context) (Settings, error) {
	if _, err := s.EnsureSettings(ctx); err != nil {
		return Settings{}, err
	}

	var (
		st        Settings
		basis     string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT currency, finishing_hourly_rate, default_margin_percent, default_margin_basis, quote_validity_days, updated_at
		FROM settings
		WHERE id = 1
	`).Scan(&st.Currency, &st.FinishingHourlyRate, &st.DefaultMarginPercent, &basis, &st.QuoteValidityDays, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Settings{}, fmt.Errorf("settings singleton: %w", ErrNotFound)
		}
		return Settings{}, fmt.Errorf("query settings: %w", err)
	}
	st.DefaultMarginBasis = pricing.MarginBasis(basis)
	if st.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Settings{}, err
	}
	return st, nil
}

// UpdateSettings overwrites the singleton.
func (s *Store) UpdateSettings(ctx context.Context, st Settings) (Settings, error) {
	if _, err := s.EnsureSettings(ctx); err != nil {
		return Settings{}, err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE settings
		SET
			currency = ?,
			finishing_hourly_rate = ?,
			default_margin_percent = ?,
			default_margin_basis = ?,
			quote_validity_days = ?,
			updated_at = ?
		WHERE id = 1
	`,
		st.Currency,
		st.FinishingHourlyRate,
		st.DefaultMarginPercent,
		string(st.DefaultMarginBasis),
		st.QuoteValidityDays,
		s.timestamp(),
	)
	if err != nil {
		return Settings{}, fmt.Errorf("update settings: %w", err)
	}

	return s.GetSettings(ctx)
}
