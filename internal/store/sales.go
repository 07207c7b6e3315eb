package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Sale is an approved quote the customer committed to.
type Sale struct {
	ID            string          `json:"id"`
	QuoteID       string          `json:"quote_id"`
	CustomerID    *string         `json:"customer_id,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	PaymentMethod string          `json:"payment_method"`
	Status        SaleStatus      `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Conversion is the outcome of turning a quote into a sale.
type Conversion struct {
	Sale       Sale            `json:"sale"`
	Production ProductionOrder `json:"production_order"`
}

const saleSelect = `
	SELECT s.id, s.quote_id, s.customer_id, COALESCE(c.name, ''), s.amount, s.net_profit, s.payment_method, s.status, s.created_at, s.updated_at
	FROM sales s
	LEFT JOIN customers c ON c.id = s.customer_id
`

func scanSale(row rowScanner) (Sale, error) {
	var (
		sale                 Sale
		customerID           sql.NullString
		status               string
		createdAt, updatedAt string
	)
	if err := row.Scan(&sale.ID, &sale.QuoteID, &customerID, &sale.CustomerName, &sale.Amount, &sale.NetProfit, &sale.PaymentMethod, &status, &createdAt, &updatedAt); err != nil {
		return Sale{}, err
	}
	sale.CustomerID = stringPtr(customerID)
	sale.Status = SaleStatus(status)

	var err error
	if sale.CreatedAt, err = parseTime(createdAt); err != nil {
		return Sale{}, err
	}
	if sale.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Sale{}, err
	}
	return sale, nil
}

// ConvertQuote turns an approved quote into a pending sale and queues its
// production order. A quote converts at most once.
func (s *Store) ConvertQuote(ctx context.Context, quoteID, paymentMethod string, dueDate *time.Time) (Conversion, error) {
	saleID := s.newID()
	orderID := s.newID()
	now := s.timestamp()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			status     string
			customerID sql.NullString
			title      string
			total      decimal.Decimal
			netProfit  decimal.Decimal
		)
		err := tx.QueryRowContext(ctx, `
			SELECT status, customer_id, title, total, net_profit FROM quotes WHERE id = ?
		`, quoteID).Scan(&status, &customerID, &title, &total, &netProfit)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("quote %s: %w", quoteID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("query quote: %w", err)
		}
		if QuoteStatus(status) != QuoteApproved {
			return fmt.Errorf("quote %s is %s: %w", quoteID, status, ErrQuoteNotApproved)
		}

		var existing int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales WHERE quote_id = ?`, quoteID).Scan(&existing); err != nil {
			return fmt.Errorf("query existing sale: %w", err)
		}
		if existing > 0 {
			return fmt.Errorf("quote %s: %w", quoteID, ErrAlreadyConverted)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sales (id, quote_id, customer_id, amount, net_profit, payment_method, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, saleID, quoteID, customerID, total, netProfit, strings.TrimSpace(paymentMethod), string(SalePending), now, now); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO production_orders (id, sale_id, title, stage, due_date, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, '', ?, ?)
		`, orderID, saleID, title, string(StageQueued), nullTime(dueDate), now, now); err != nil {
			return fmt.Errorf("insert production order: %w", err)
		}
		return nil
	})
	if err != nil {
		return Conversion{}, err
	}

	sale, err := s.GetSale(ctx, saleID)
	if err != nil {
		return Conversion{}, err
	}
	order, err := s.GetProductionOrder(ctx, orderID)
	if err != nil {
		return Conversion{}, err
	}
	return Conversion{Sale: sale, Production: order}, nil
}

// GetSale returns a sale by id.
func (s *Store) GetSale(ctx context.Context, id string) (Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, saleSelect+` WHERE s.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Sale{}, fmt.Errorf("sale %s: %w", id, ErrNotFound)
		}
		return Sale{}, fmt.Errorf("query sale: %w", err)
	}
	return sale, nil
}

// ListSales returns sales newest first, optionally filtered by status.
func (s *Store) ListSales(ctx context.Context, status SaleStatus) ([]Sale, error) {
	rows, err := s.db.QueryContext(ctx, saleSelect+`
		WHERE (? = '' OR s.status = ?)
		ORDER BY s.created_at DESC, s.id DESC
	`, string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	sales := make([]Sale, 0)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, sale)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}

	return sales, nil
}

// UpdateSaleStatus records payment or cancellation of a pending sale.
func (s *Store) UpdateSaleStatus(ctx context.Context, id string, next SaleStatus) (Sale, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM sales WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("sale %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("query sale status: %w", err)
		}
		if !SaleStatus(current).CanTransitionTo(next) {
			return fmt.Errorf("sale %s from %s to %s: %w", id, current, next, ErrInvalidTransition)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE sales SET status = ?, updated_at = ? WHERE id = ?
		`, string(next), s.timestamp(), id); err != nil {
			return fmt.Errorf("update sale status: %w", err)
		}
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	return s.GetSale(ctx, id)
}
