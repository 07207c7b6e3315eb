package pricing

import (
	"bufio"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// SummaryHeader carries the quote metadata printed above the numbers.
type SummaryHeader struct {
	Title      string
	Customer   string
	Notes      string
	Currency   string
	CreatedAt  time.Time
	ValidUntil *time.Time
}

var currencySymbols = map[string]string{
	"BRL": "R$",
	"USD": "US$",
	"EUR": "€",
}

type summaryWriter struct {
	w        *bufio.Writer
	p        *message.Printer
	currency string
	group    string
	point    string
}

// localeSeparators reads the grouping and decimal separators the printer
// uses for its language ("1.000,5" in pt-BR).
func localeSeparators(p *message.Printer) (group, point string) {
	sample := []rune(p.Sprintf("%.1f", 1000.5))
	if len(sample) < 6 {
		return ",", "."
	}
	point = string(sample[len(sample)-2])
	if !unicode.IsDigit(sample[1]) {
		group = string(sample[1])
	}
	return group, point
}

func (s *summaryWriter) line(format string, args ...any) {
	s.p.Fprintf(s.w, format, args...)
	s.w.WriteByte('\n')
}

// fixed renders v with two decimal places from its exact digits.
func (s *summaryWriter) fixed(v decimal.Decimal) string {
	digits := v.StringFixed(2)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	whole, frac, _ := strings.Cut(digits, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(s.group)
		}
		b.WriteRune(r)
	}
	b.WriteString(s.point)
	b.WriteString(frac)
	return b.String()
}

func (s *summaryWriter) money(v decimal.Decimal) string {
	return s.currency + " " + s.fixed(v)
}

func (s *summaryWriter) ratio(v decimal.Decimal) string {
	return s.fixed(v) + "%"
}

// WriteSummary renders a plain-text quote with pt-BR number formatting.
func WriteSummary(w io.Writer, h SummaryHeader, in Input, res Result) error {
	currency := strings.ToUpper(strings.TrimSpace(h.Currency))
	if currency == "" {
		currency = "BRL"
	}
	if symbol, ok := currencySymbols[currency]; ok {
		currency = symbol
	}

	p := message.NewPrinter(language.BrazilianPortuguese)
	group, point := localeSeparators(p)
	s := &summaryWriter{
		w:        bufio.NewWriter(w),
		p:        p,
		currency: currency,
		group:    group,
		point:    point,
	}

	title := strings.TrimSpace(h.Title)
	if title == "" {
		title = "Orçamento"
	}
	s.line("%s", title)
	if h.Customer != "" {
		s.line("Cliente: %s", h.Customer)
	}
	if !h.CreatedAt.IsZero() {
		s.line("Data: %s", h.CreatedAt.Format("02/01/2006"))
	}
	if h.ValidUntil != nil {
		s.line("Válido até: %s", h.ValidUntil.Format("02/01/2006"))
	}
	s.line("")

	s.line("Custos:")
	s.line("  Materiais: %s", s.money(res.Breakdown.MaterialCost))
	s.line("  Acabamentos: %s", s.money(res.Breakdown.FinishingCost))
	s.line("  Operacional: %s", s.money(res.Breakdown.OperationalCost))
	s.line("  Mão de obra: %s", s.money(res.Breakdown.LaborCost))
	s.line("  Custo total: %s", s.money(res.Breakdown.TotalCost))
	s.line("")

	s.line("Preço:")
	s.line("  Margem: %s", s.money(res.Breakdown.Margin))
	if res.Breakdown.Discount.IsPositive() {
		s.line("  Desconto: -%s", s.money(res.Breakdown.Discount))
	}
	for _, t := range res.Breakdown.Taxes {
		if t.Exempt {
			s.line("  %s: isento", t.Name)
			continue
		}
		s.line("  %s (%s): %s", t.Name, s.ratio(t.Rate), s.money(t.Amount))
	}
	if res.Breakdown.Commission.IsPositive() {
		s.line("  Comissão: %s", s.money(res.Breakdown.Commission))
	}
	s.line("")

	s.line("Total: %s", s.money(res.Totals.Total))
	if !res.Totals.Quantity.Equal(decimal.NewFromInt(1)) {
		s.line("Quantidade: %s", res.Totals.Quantity.String())
		s.line("Preço unitário: %s", s.money(res.Totals.UnitPrice))
	}
	s.line("Lucro líquido: %s (%s)", s.money(res.Indicators.NetProfit), s.ratio(res.Indicators.ProfitabilityPercent))
	s.line("")

	s.line("Premissas:")
	for _, m := range in.Materials {
		unit := m.Unit
		if unit == "" {
			unit = "un"
		}
		s.line("  Material: %s (%s %s × %s)", m.Name, m.Quantity.String(), unit, s.money(m.UnitPrice))
	}
	for _, f := range in.Finishings {
		s.line("  Acabamento: %s", f.Name)
	}
	for _, l := range in.Labor {
		s.line("  Mão de obra: %s (%s h)", l.Role, l.Hours.String())
	}
	for _, warning := range res.Warnings {
		s.line("Atenção: %s", warning)
	}
	if notes := strings.TrimSpace(h.Notes); notes != "" {
		s.line("")
		s.line("Observações: %s", notes)
	}

	return s.w.Flush()
}
