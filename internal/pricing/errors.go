package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is matched by every ValidationError.
var ErrInvalidInput = errors.New("pricing: invalid input")

const (
	msgNotPositive    = "não pode ser negativo ou zero"
	msgNegative       = "não pode ser negativo"
	msgPercentRange   = "deve estar entre 0 e 100"
	msgMinAboveMax    = "mínimo não pode ser maior que o máximo"
	msgUnknownKind    = "tipo deve ser percent ou fixed"
	msgUnknownBasis   = "base deve ser cost ou price"
	msgWindowReversed = "início da validade posterior ao fim"
	msgOutOfRange     = "fora da faixa suportada (até 8 casas decimais)"
)

// Decimal inputs outside these limits are rejected before any comparison or
// arithmetic, since rescaling to an extreme exponent is unbounded work.
const (
	minExponent        = -8
	maxExponent        = 12
	maxCoefficientBits = 96
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Representable reports whether v has at most 8 decimal places, an exponent
// of at most 12 and about 28 significant digits.
func Representable(v decimal.Decimal) bool {
	e := v.Exponent()
	if e < minExponent || e > maxExponent {
		return false
	}
	return v.Coefficient().BitLen() <= maxCoefficientBits
}

func requireRepresentable(field string, v decimal.Decimal) error {
	if !Representable(v) {
		return invalid(field, msgOutOfRange)
	}
	return nil
}

func requirePositive(field string, v decimal.Decimal) error {
	if err := requireRepresentable(field, v); err != nil {
		return err
	}
	if v.Sign() <= 0 {
		return invalid(field, msgNotPositive)
	}
	return nil
}

func requireNonNegative(field string, v decimal.Decimal) error {
	if err := requireRepresentable(field, v); err != nil {
		return err
	}
	if v.Sign() < 0 {
		return invalid(field, msgNegative)
	}
	return nil
}

func requirePercent(field string, v decimal.Decimal) error {
	if err := requireRepresentable(field, v); err != nil {
		return err
	}
	if v.Sign() < 0 || v.GreaterThan(hundred) {
		return invalid(field, msgPercentRange)
	}
	return nil
}

func validateBounds(field string, min, max *decimal.Decimal) error {
	if min != nil {
		if err := requireNonNegative(field+".min", *min); err != nil {
			return err
		}
	}
	if max != nil {
		if err := requireNonNegative(field+".max", *max); err != nil {
			return err
		}
	}
	if min != nil && max != nil && min.GreaterThan(*max) {
		return invalid(field, msgMinAboveMax)
	}
	return nil
}

type rangeCheck struct {
	err error
}

func (c *rangeCheck) value(field string, v decimal.Decimal) {
	if c.err == nil {
		c.err = requireRepresentable(field, v)
	}
}

func (c *rangeCheck) optional(field string, v *decimal.Decimal) {
	if v != nil {
		c.value(field, *v)
	}
}

func (c *rangeCheck) adjustment(field string, a *Adjustment) {
	if a == nil {
		return
	}
	c.value(field+".value", a.Value)
	c.optional(field+".min", a.Min)
	c.optional(field+".max", a.Max)
}

// CheckRange rejects the first decimal in the input that is not
// Representable. It only inspects exponents and sizes, so it is safe to run
// before the input is hashed or encoded.
func CheckRange(in Input) error {
	c := &rangeCheck{}
	c.value("quantity", in.Quantity)
	for i, m := range in.Materials {
		field := fmt.Sprintf("materials[%d]", i)
		c.value(field+".unit_price", m.UnitPrice)
		c.value(field+".quantity", m.Quantity)
		c.value(field+".waste_percent", m.WastePercent)
	}
	for i, f := range in.Finishings {
		field := fmt.Sprintf("finishings[%d]", i)
		c.value(field+".area_m2", f.AreaM2)
		c.value(field+".cost_per_m2", f.CostPerM2)
		c.value(field+".flat_cost", f.FlatCost)
		c.value(field+".minutes", f.Minutes)
	}
	c.value("finishing_hourly_rate", in.FinishingHourlyRate)
	c.value("operational.hourly_cost", in.Operational.HourlyCost)
	c.value("operational.production_hours", in.Operational.ProductionHours)
	c.value("operational.fixed_cost", in.Operational.FixedCost)
	for i, o := range in.Operational.Overheads {
		c.value(fmt.Sprintf("operational.overheads[%d].amount", i), o.Amount)
	}
	for i, l := range in.Labor {
		field := fmt.Sprintf("labor[%d]", i)
		c.value(field+".hourly_rate", l.HourlyRate)
		c.value(field+".hours", l.Hours)
		c.value(field+".burden_percent", l.BurdenPercent)
		c.value(field+".benefits", l.Benefits)
	}
	c.value("margin.value", in.Margin.Value)
	c.optional("margin.min", in.Margin.Min)
	c.optional("margin.max", in.Margin.Max)
	for i, t := range in.Taxes {
		c.value(fmt.Sprintf("taxes[%d].rate", i), t.Rate)
	}
	c.adjustment("discount", in.Discount)
	c.adjustment("commission", in.Commission)
	return c.err
}
