package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/orcafacil/internal/pricing"
)

// Quote is a saved pricing run. Totals are copied out of the result so lists
// and reports never have to decode the snapshot.
type Quote struct {
	ID           string          `json:"id"`
	CustomerID   *string         `json:"customer_id,omitempty"`
	CustomerName string          `json:"customer_name,omitempty"`
	Title        string          `json:"title"`
	Notes        string          `json:"notes"`
	Status       QuoteStatus     `json:"status"`
	Total        decimal.Decimal `json:"total"`
	NetProfit    decimal.Decimal `json:"net_profit"`
	ValidUntil   *time.Time      `json:"valid_until,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// QuoteDetail is a quote with the input and result it was saved with.
type QuoteDetail struct {
	Quote
	Input  pricing.Input  `json:"input"`
	Result pricing.Result `json:"result"`
}

// NewQuote carries what CreateQuote persists.
type NewQuote struct {
	CustomerID *string
	Title      string
	Notes      string
	Input      pricing.Input
	Result     pricing.Result
	ValidUntil *time.Time
}

// QuoteFilter narrows ListQuotes. Empty fields match everything.
type QuoteFilter struct {
	Query  string
	Status QuoteStatus
}

const quoteSelect = `
	SELECT q.id, q.customer_id, COALESCE(c.name, ''), q.title, q.notes, q.status, q.total, q.net_profit, q.valid_until, q.created_at, q.updated_at
	FROM quotes q
	LEFT JOIN customers c ON c.id = q.customer_id
`

func scanQuote(row rowScanner, extra ...any) (Quote, error) {
	var (
		q                    Quote
		customerID           sql.NullString
		status               string
		validUntil           sql.NullString
		createdAt, updatedAt string
	)
	dest := []any{&q.ID, &customerID, &q.CustomerName, &q.Title, &q.Notes, &status, &q.Total, &q.NetProfit, &validUntil, &createdAt, &updatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Quote{}, err
	}
	q.CustomerID = stringPtr(customerID)
	q.Status = QuoteStatus(status)

	var err error
	if q.ValidUntil, err = parseNullTime(validUntil); err != nil {
		return Quote{}, err
	}
	if q.CreatedAt, err = parseTime(createdAt); err != nil {
		return Quote{}, err
	}
	if q.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Quote{}, err
	}
	return q, nil
}

// CreateQuote saves a draft quote with its input and result snapshot.
func (s *Store) CreateQuote(ctx context.Context, nq NewQuote) (QuoteDetail, error) {
	if nq.CustomerID != nil && *nq.CustomerID != "" {
		if _, err := s.GetCustomer(ctx, *nq.CustomerID); err != nil {
			return QuoteDetail{}, err
		}
	}

	inputJSON, err := json.Marshal(nq.Input)
	if err != nil {
		return QuoteDetail{}, fmt.Errorf("encode quote input: %w", err)
	}
	resultJSON, err := json.Marshal(nq.Result)
	if err != nil {
		return QuoteDetail{}, fmt.Errorf("encode quote result: %w", err)
	}

	id := s.newID()
	now := s.timestamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quotes (id, customer_id, title, notes, status, input_json, result_json, total, net_profit, valid_until, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		nullString(nq.CustomerID),
		nq.Title,
		nq.Notes,
		string(QuoteDraft),
		string(inputJSON),
		string(resultJSON),
		nq.Result.Totals.Total,
		nq.Result.Indicators.NetProfit,
		nullTime(nq.ValidUntil),
		now,
		now,
	)
	if err != nil {
		return QuoteDetail{}, fmt.Errorf("insert quote: %w", err)
	}

	return s.GetQuote(ctx, id)
}

// ListQuotes returns quotes newest first, matching the query against title,
// notes and customer name.
func (s *Store) ListQuotes(ctx context.Context, f QuoteFilter) ([]Quote, error) {
	pattern := likePattern(f.Query)
	rows, err := s.db.QueryContext(ctx, quoteSelect+`
		WHERE (? = '' OR q.title LIKE ? OR q.notes LIKE ? OR c.name LIKE ?)
			AND (? = '' OR q.status = ?)
		ORDER BY q.created_at DESC, q.id DESC
	`, f.Query, pattern, pattern, pattern, string(f.Status), string(f.Status))
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}

	return quotes, nil
}

// GetQuote returns a quote with its stored snapshot. The result is never
// recalculated so later catalog changes do not alter a sent quote.
func (s *Store) GetQuote(ctx context.Context, id string) (QuoteDetail, error) {
	var inputJSON, resultJSON string
	row := s.db.QueryRowContext(ctx, `
		SELECT q.id, q.customer_id, COALESCE(c.name, ''), q.title, q.notes, q.status, q.total, q.net_profit, q.valid_until, q.created_at, q.updated_at,
			q.input_json, q.result_json
		FROM quotes q
		LEFT JOIN customers c ON c.id = q.customer_id
		WHERE q.id = ?
	`, id)
	q, err := scanQuote(row, &inputJSON, &resultJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QuoteDetail{}, fmt.Errorf("quote %s: %w", id, ErrNotFound)
		}
		return QuoteDetail{}, fmt.Errorf("query quote: %w", err)
	}

	detail := QuoteDetail{Quote: q}
	if err := json.Unmarshal([]byte(inputJSON), &detail.Input); err != nil {
		return QuoteDetail{}, fmt.Errorf("decode quote input: %w", err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &detail.Result); err != nil {
		return QuoteDetail{}, fmt.Errorf("decode quote result: %w", err)
	}
	return detail, nil
}

// UpdateQuoteStatus moves a quote along its lifecycle.
func (s *Store) UpdateQuoteStatus(ctx context.Context, id string, next QuoteStatus) (QuoteDetail, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM quotes WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("quote %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("query quote status: %w", err)
		}
		if !QuoteStatus(current).CanTransitionTo(next) {
			return fmt.Errorf("quote %s from %s to %s: %w", id, current, next, ErrInvalidTransition)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE quotes SET status = ?, updated_at = ? WHERE id = ?
		`, string(next), s.timestamp(), id); err != nil {
			return fmt.Errorf("update quote status: %w", err)
		}
		return nil
	})
	if err != nil {
		return QuoteDetail{}, err
	}
	return s.GetQuote(ctx, id)
}
