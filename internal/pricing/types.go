package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValueKind selects whether an adjustment value is a percentage or an absolute amount.
type ValueKind string

const (
	KindPercent ValueKind = "percent"
	KindFixed   ValueKind = "fixed"
)

// MarginBasis selects what the margin percentage refers to.
type MarginBasis string

const (
	// BasisCost applies the percentage on top of the cost (markup).
	BasisCost MarginBasis = "cost"
	// BasisPrice makes the percentage a share of the resulting price.
	BasisPrice MarginBasis = "price"
)

// TaxBase selects the amount a tax rate is applied to.
type TaxBase string

const (
	TaxOnPrice TaxBase = "price"
	TaxOnCost  TaxBase = "cost"
)

// Material is a consumable line item (substrate, ink, vinyl).
type Material struct {
	Name         string          `json:"name" yaml:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price" yaml:"unit_price"`
	Quantity     decimal.Decimal `json:"quantity" yaml:"quantity"`
	Unit         string          `json:"unit,omitempty" yaml:"unit"`
	WastePercent decimal.Decimal `json:"waste_percent" yaml:"waste_percent"`
}

// Finishing is a finishing process such as lamination or UV coating.
// Area cost and flat cost add up; Minutes are billed at the finishing hourly rate.
type Finishing struct {
	Name      string          `json:"name" yaml:"name"`
	AreaM2    decimal.Decimal `json:"area_m2" yaml:"area_m2"`
	CostPerM2 decimal.Decimal `json:"cost_per_m2" yaml:"cost_per_m2"`
	FlatCost  decimal.Decimal `json:"flat_cost" yaml:"flat_cost"`
	Minutes   decimal.Decimal `json:"minutes" yaml:"minutes"`
}

// Overhead is an itemized operational expense (energy, rent).
type Overhead struct {
	Name   string          `json:"name" yaml:"name"`
	Amount decimal.Decimal `json:"amount" yaml:"amount"`
}

// Operational groups machine time and shop overhead attributed to a job.
type Operational struct {
	HourlyCost      decimal.Decimal `json:"hourly_cost" yaml:"hourly_cost"`
	ProductionHours decimal.Decimal `json:"production_hours" yaml:"production_hours"`
	FixedCost       decimal.Decimal `json:"fixed_cost" yaml:"fixed_cost"`
	Overheads       []Overhead      `json:"overheads,omitempty" yaml:"overheads"`
}

// Labor is one role's work on a job.
type Labor struct {
	Role          string          `json:"role" yaml:"role"`
	HourlyRate    decimal.Decimal `json:"hourly_rate" yaml:"hourly_rate"`
	Hours         decimal.Decimal `json:"hours" yaml:"hours"`
	BurdenPercent decimal.Decimal `json:"burden_percent" yaml:"burden_percent"`
	Benefits      decimal.Decimal `json:"benefits" yaml:"benefits"`
}

// Margin configures the profit margin. An empty Kind means percent and an
// empty Basis means cost.
type Margin struct {
	Kind  ValueKind        `json:"kind,omitempty" yaml:"kind"`
	Value decimal.Decimal  `json:"value" yaml:"value"`
	Basis MarginBasis      `json:"basis,omitempty" yaml:"basis"`
	Min   *decimal.Decimal `json:"min,omitempty" yaml:"min"`
	Max   *decimal.Decimal `json:"max,omitempty" yaml:"max"`
}

// Tax is a single tax line (ISS, ICMS, PIS, COFINS).
type Tax struct {
	Name   string          `json:"name" yaml:"name"`
	Rate   decimal.Decimal `json:"rate" yaml:"rate"`
	Base   TaxBase         `json:"base,omitempty" yaml:"base"`
	Exempt bool            `json:"exempt,omitempty" yaml:"exempt"`
}

// Adjustment describes a discount or a sales commission.
type Adjustment struct {
	Kind       ValueKind        `json:"kind,omitempty" yaml:"kind"`
	Value      decimal.Decimal  `json:"value" yaml:"value"`
	ValidFrom  *time.Time       `json:"valid_from,omitempty" yaml:"valid_from"`
	ValidUntil *time.Time       `json:"valid_until,omitempty" yaml:"valid_until"`
	Min        *decimal.Decimal `json:"min,omitempty" yaml:"min"`
	Max        *decimal.Decimal `json:"max,omitempty" yaml:"max"`
}

// Input is everything needed to price a job.
type Input struct {
	// Quantity is the number of units produced; zero means one.
	Quantity            decimal.Decimal `json:"quantity" yaml:"quantity"`
	Materials           []Material      `json:"materials" yaml:"materials"`
	Finishings          []Finishing     `json:"finishings,omitempty" yaml:"finishings"`
	FinishingHourlyRate decimal.Decimal `json:"finishing_hourly_rate" yaml:"finishing_hourly_rate"`
	Operational         Operational     `json:"operational" yaml:"operational"`
	Labor               []Labor         `json:"labor,omitempty" yaml:"labor"`
	Margin              Margin          `json:"margin" yaml:"margin"`
	Taxes               []Tax           `json:"taxes,omitempty" yaml:"taxes"`
	Discount            *Adjustment     `json:"discount,omitempty" yaml:"discount"`
	Commission          *Adjustment     `json:"commission,omitempty" yaml:"commission"`
	// At is the instant validity windows are checked against. Zero skips the check.
	At time.Time `json:"at,omitzero" yaml:"at"`
}

// TaxLine is the computed amount of one tax.
type TaxLine struct {
	Name   string          `json:"name"`
	Base   TaxBase         `json:"base"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
	Exempt bool            `json:"exempt,omitempty"`
}

// Breakdown contains all intermediate and line-item values of the pricing calculation.
type Breakdown struct {
	MaterialCost      decimal.Decimal `json:"material_cost"`
	FinishingCost     decimal.Decimal `json:"finishing_cost"`
	OperationalCost   decimal.Decimal `json:"operational_cost"`
	LaborCost         decimal.Decimal `json:"labor_cost"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	Margin            decimal.Decimal `json:"margin"`
	BasePrice         decimal.Decimal `json:"base_price"`
	Discount          decimal.Decimal `json:"discount"`
	BaseAfterDiscount decimal.Decimal `json:"base_after_discount"`
	Tax               decimal.Decimal `json:"tax"`
	Taxes             []TaxLine       `json:"taxes"`
	Commission        decimal.Decimal `json:"commission"`
}

// Totals contains roll-up values from the pricing calculation.
type Totals struct {
	Quantity  decimal.Decimal `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Indicators are the derived profitability ratios of a priced job.
type Indicators struct {
	NetProfit            decimal.Decimal  `json:"net_profit"`
	Contribution         decimal.Decimal  `json:"contribution_margin"`
	ContributionPercent  decimal.Decimal  `json:"contribution_margin_percent"`
	ProfitabilityPercent decimal.Decimal  `json:"profitability_percent"`
	ROIPercent           decimal.Decimal  `json:"roi_percent"`
	Markup               decimal.Decimal  `json:"markup"`
	BreakEvenUnits       *int64           `json:"break_even_units"`
	Payback              *decimal.Decimal `json:"payback"`
}

// Result groups the full pricing output, including detailed breakdown and totals.
type Result struct {
	Breakdown  Breakdown  `json:"breakdown"`
	Totals     Totals     `json:"totals"`
	Indicators Indicators `json:"indicators"`
	Warnings   []string   `json:"warnings,omitempty"`
}
