package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func clamp(v decimal.Decimal, min, max *decimal.Decimal) (decimal.Decimal, bool) {
	if min != nil && v.LessThan(*min) {
		return *min, true
	}
	if max != nil && v.GreaterThan(*max) {
		return *max, true
	}
	return v, false
}

func normalizeKind(kind ValueKind) ValueKind {
	if kind == "" {
		return KindPercent
	}
	return kind
}

// MarginAmount returns the margin on cost and whether it was clamped to the
// configured bounds.
func MarginAmount(cost decimal.Decimal, m Margin) (decimal.Decimal, bool, error) {
	if err := requireNonNegative("margin.value", m.Value); err != nil {
		return decimal.Zero, false, err
	}
	if err := validateBounds("margin", m.Min, m.Max); err != nil {
		return decimal.Zero, false, err
	}

	var margin decimal.Decimal
	switch normalizeKind(m.Kind) {
	case KindFixed:
		margin = m.Value
	case KindPercent:
		switch m.Basis {
		case "", BasisCost:
			margin = percentOf(cost, m.Value)
		case BasisPrice:
			if m.Value.GreaterThanOrEqual(hundred) {
				return decimal.Zero, false, invalid("margin.value", "deve ser menor que 100 sobre o preço")
			}
			price := cost.Div(decimal.NewFromInt(1).Sub(m.Value.Div(hundred)))
			margin = price.Sub(cost)
		default:
			return decimal.Zero, false, invalid("margin.basis", msgUnknownBasis)
		}
	default:
		return decimal.Zero, false, invalid("margin.kind", msgUnknownKind)
	}

	clamped, changed := clamp(margin, m.Min, m.Max)
	return clamped, changed, nil
}

func (a *Adjustment) validate(field string) error {
	if err := requireNonNegative(field+".value", a.Value); err != nil {
		return err
	}
	switch normalizeKind(a.Kind) {
	case KindPercent:
		if err := requirePercent(field+".value", a.Value); err != nil {
			return err
		}
	case KindFixed:
	default:
		return invalid(field+".kind", msgUnknownKind)
	}
	if a.ValidFrom != nil && a.ValidUntil != nil && a.ValidFrom.After(*a.ValidUntil) {
		return invalid(field, msgWindowReversed)
	}
	return validateBounds(field, a.Min, a.Max)
}

// ActiveAt reports whether at falls inside the validity window. A zero instant
// is always active.
func (a *Adjustment) ActiveAt(at time.Time) bool {
	if at.IsZero() {
		return true
	}
	if a.ValidFrom != nil && at.Before(*a.ValidFrom) {
		return false
	}
	if a.ValidUntil != nil && at.After(*a.ValidUntil) {
		return false
	}
	return true
}

func (a *Adjustment) amount(base decimal.Decimal) decimal.Decimal {
	if normalizeKind(a.Kind) == KindFixed {
		return a.Value
	}
	return percentOf(base, a.Value)
}

// DiscountAmount returns the discount on base. The discount never exceeds the
// base; capped reports that it had to be limited.
func DiscountAmount(base decimal.Decimal, d *Adjustment, at time.Time) (amount decimal.Decimal, applied, capped bool, err error) {
	if d == nil {
		return decimal.Zero, false, false, nil
	}
	if err := d.validate("discount"); err != nil {
		return decimal.Zero, false, false, err
	}
	if !d.ActiveAt(at) {
		return decimal.Zero, false, false, nil
	}

	amount, _ = clamp(d.amount(base), d.Min, d.Max)
	if amount.GreaterThan(base) {
		return base, true, true, nil
	}
	return amount, true, false, nil
}

// CommissionAmount returns the commission on base. The [Min, Max] bounds apply
// only when the commission is applied: outside its validity window it is zero
// and applied is false, even if Min is positive.
func CommissionAmount(base decimal.Decimal, c *Adjustment, at time.Time) (amount decimal.Decimal, applied bool, err error) {
	if c == nil {
		return decimal.Zero, false, nil
	}
	if err := c.validate("commission"); err != nil {
		return decimal.Zero, false, err
	}
	if !c.ActiveAt(at) {
		return decimal.Zero, false, nil
	}

	amount, _ = clamp(c.amount(base), c.Min, c.Max)
	return amount, true, nil
}

// TaxAmounts computes every tax line against the post-discount price or the
// total cost, as selected per tax.
func TaxAmounts(taxes []Tax, price, cost decimal.Decimal) ([]TaxLine, decimal.Decimal, error) {
	lines := make([]TaxLine, 0, len(taxes))
	total := decimal.Zero
	for i, t := range taxes {
		field := fmt.Sprintf("taxes[%d]", i)
		if err := requirePercent(field+".rate", t.Rate); err != nil {
			return nil, decimal.Zero, err
		}

		base := t.Base
		var amount decimal.Decimal
		switch base {
		case "", TaxOnPrice:
			base = TaxOnPrice
			amount = percentOf(price, t.Rate)
		case TaxOnCost:
			amount = percentOf(cost, t.Rate)
		default:
			return nil, decimal.Zero, invalid(field+".base", msgUnknownBasis)
		}
		if t.Exempt {
			amount = decimal.Zero
		}

		amount = amount.Round(2)
		lines = append(lines, TaxLine{
			Name:   t.Name,
			Base:   base,
			Rate:   t.Rate,
			Amount: amount,
			Exempt: t.Exempt,
		})
		total = total.Add(amount)
	}
	return lines, total, nil
}
