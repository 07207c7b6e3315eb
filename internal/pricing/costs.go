package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	sixty   = decimal.NewFromInt(60)
)

func percentOf(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred)
}

// MaterialsCost sums unit price × quantity over all materials, inflated by each
// line's waste percentage.
func MaterialsCost(items []Material) (decimal.Decimal, error) {
	total := decimal.Zero
	for i, m := range items {
		field := fmt.Sprintf("materials[%d]", i)
		if err := requirePositive(field+".unit_price", m.UnitPrice); err != nil {
			return decimal.Zero, err
		}
		if err := requirePositive(field+".quantity", m.Quantity); err != nil {
			return decimal.Zero, err
		}
		if err := requireNonNegative(field+".waste_percent", m.WastePercent); err != nil {
			return decimal.Zero, err
		}

		line := m.UnitPrice.Mul(m.Quantity)
		if m.WastePercent.IsPositive() {
			line = line.Add(percentOf(line, m.WastePercent))
		}
		total = total.Add(line)
	}
	return total, nil
}

// FinishingsCost sums area × cost per m² plus flat cost for every finishing, and
// bills the estimated minutes at hourlyRate.
func FinishingsCost(items []Finishing, hourlyRate decimal.Decimal) (decimal.Decimal, error) {
	if err := requireNonNegative("finishing_hourly_rate", hourlyRate); err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for i, f := range items {
		field := fmt.Sprintf("finishings[%d]", i)
		if err := requireNonNegative(field+".cost_per_m2", f.CostPerM2); err != nil {
			return decimal.Zero, err
		}
		if err := requireNonNegative(field+".flat_cost", f.FlatCost); err != nil {
			return decimal.Zero, err
		}
		if err := requireNonNegative(field+".minutes", f.Minutes); err != nil {
			return decimal.Zero, err
		}
		if f.CostPerM2.IsPositive() {
			if err := requirePositive(field+".area_m2", f.AreaM2); err != nil {
				return decimal.Zero, err
			}
		} else if err := requireNonNegative(field+".area_m2", f.AreaM2); err != nil {
			return decimal.Zero, err
		}
		if f.CostPerM2.IsZero() && f.FlatCost.IsZero() && f.Minutes.IsZero() {
			return decimal.Zero, invalid(field, msgNotPositive)
		}

		line := f.AreaM2.Mul(f.CostPerM2).Add(f.FlatCost)
		if f.Minutes.IsPositive() {
			line = line.Add(f.Minutes.Div(sixty).Mul(hourlyRate))
		}
		total = total.Add(line)
	}
	return total, nil
}

// OperationalCost is machine time plus fixed cost plus itemized overheads.
func OperationalCost(op Operational) (decimal.Decimal, error) {
	if err := requireNonNegative("operational.hourly_cost", op.HourlyCost); err != nil {
		return decimal.Zero, err
	}
	if err := requireNonNegative("operational.production_hours", op.ProductionHours); err != nil {
		return decimal.Zero, err
	}
	if err := requireNonNegative("operational.fixed_cost", op.FixedCost); err != nil {
		return decimal.Zero, err
	}

	total := op.HourlyCost.Mul(op.ProductionHours).Add(op.FixedCost)
	for i, o := range op.Overheads {
		if err := requireNonNegative(fmt.Sprintf("operational.overheads[%d].amount", i), o.Amount); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(o.Amount)
	}
	return total, nil
}

// LaborCost sums rate × hours plus payroll burden and benefits for every role.
func LaborCost(items []Labor) (decimal.Decimal, error) {
	total := decimal.Zero
	for i, l := range items {
		field := fmt.Sprintf("labor[%d]", i)
		if err := requirePositive(field+".hourly_rate", l.HourlyRate); err != nil {
			return decimal.Zero, err
		}
		if err := requirePositive(field+".hours", l.Hours); err != nil {
			return decimal.Zero, err
		}
		if err := requireNonNegative(field+".burden_percent", l.BurdenPercent); err != nil {
			return decimal.Zero, err
		}
		if err := requireNonNegative(field+".benefits", l.Benefits); err != nil {
			return decimal.Zero, err
		}

		base := l.HourlyRate.Mul(l.Hours)
		total = total.Add(base).Add(percentOf(base, l.BurdenPercent)).Add(l.Benefits)
	}
	return total, nil
}
