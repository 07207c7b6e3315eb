package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Period bounds a report. From is inclusive, To exclusive; nil is unbounded.
type Period struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

func (p Period) args() []any {
	var from, to string
	if p.From != nil {
		from = formatTime(*p.From)
	}
	if p.To != nil {
		to = formatTime(*p.To)
	}
	return []any{from, from, to, to}
}

const periodClause = `(? = '' OR created_at >= ?) AND (? = '' OR created_at < ?)`

// Summary aggregates the dashboard figures for a period.
type Summary struct {
	Period            Period                  `json:"period"`
	QuotesByStatus    map[QuoteStatus]int     `json:"quotes_by_status"`
	QuoteCount        int                     `json:"quote_count"`
	SaleCount         int                     `json:"sale_count"`
	ConversionRate    decimal.Decimal         `json:"conversion_rate"`
	Revenue           decimal.Decimal         `json:"revenue"`
	AverageTicket     decimal.Decimal         `json:"average_ticket"`
	EstimatedProfit   decimal.Decimal         `json:"estimated_profit"`
	LowStock          []Material              `json:"low_stock"`
	ProductionByStage map[ProductionStage]int `json:"production_by_stage"`
}

// Summary computes the report. Conversion counts non-cancelled sales over the
// quotes created in the period; revenue and average ticket use paid sales.
func (s *Store) Summary(ctx context.Context, p Period) (Summary, error) {
	sum := Summary{
		Period:            p,
		QuotesByStatus:    make(map[QuoteStatus]int),
		Revenue:           decimal.Zero,
		AverageTicket:     decimal.Zero,
		EstimatedProfit:   decimal.Zero,
		ConversionRate:    decimal.Zero,
		ProductionByStage: make(map[ProductionStage]int),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM quotes WHERE `+periodClause+` GROUP BY status
	`, p.args()...)
	if err != nil {
		return Summary{}, fmt.Errorf("query quotes by status: %w", err)
	}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return Summary{}, fmt.Errorf("scan quotes by status: %w", err)
		}
		sum.QuotesByStatus[QuoteStatus(status)] = count
		sum.QuoteCount += count
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return Summary{}, fmt.Errorf("iterate quotes by status: %w", err)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT status, amount, net_profit FROM sales WHERE `+periodClause+`
	`, p.args()...)
	if err != nil {
		return Summary{}, fmt.Errorf("query sales: %w", err)
	}
	paid := 0
	for rows.Next() {
		var (
			status            string
			amount, netProfit decimal.Decimal
		)
		if err := rows.Scan(&status, &amount, &netProfit); err != nil {
			rows.Close()
			return Summary{}, fmt.Errorf("scan sale: %w", err)
		}
		if SaleStatus(status) == SaleCancelled {
			continue
		}
		sum.SaleCount++
		sum.EstimatedProfit = sum.EstimatedProfit.Add(netProfit)
		if SaleStatus(status) == SalePaid {
			paid++
			sum.Revenue = sum.Revenue.Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return Summary{}, fmt.Errorf("iterate sales: %w", err)
	}
	rows.Close()

	if sum.QuoteCount > 0 {
		sum.ConversionRate = decimal.NewFromInt(int64(sum.SaleCount)).
			Div(decimal.NewFromInt(int64(sum.QuoteCount))).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	if paid > 0 {
		sum.AverageTicket = sum.Revenue.Div(decimal.NewFromInt(int64(paid))).Round(2)
	}

	if sum.LowStock, err = s.ListLowStock(ctx); err != nil {
		return Summary{}, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT stage, COUNT(*) FROM production_orders GROUP BY stage`)
	if err != nil {
		return Summary{}, fmt.Errorf("query production by stage: %w", err)
	}
	defer rows.Close()
	for _, stage := range ProductionStages {
		sum.ProductionByStage[stage] = 0
	}
	for rows.Next() {
		var (
			stage string
			count int
		)
		if err := rows.Scan(&stage, &count); err != nil {
			return Summary{}, fmt.Errorf("scan production by stage: %w", err)
		}
		sum.ProductionByStage[ProductionStage(stage)] = count
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate production by stage: %w", err)
	}

	return sum, nil
}
