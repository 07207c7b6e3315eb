package pricing

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func assertDecimal(t *testing.T, name, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, got.Equal(d(want)), "%s = %s, want %s", name, got.String(), want)
}

func bannerInput() Input {
	return Input{
		Quantity: d("10"),
		Materials: []Material{
			{Name: "Lona 440g", UnitPrice: d("25"), Quantity: d("4"), Unit: "m²"},
		},
		Finishings: []Finishing{
			{Name: "Laminação", AreaM2: d("4"), CostPerM2: d("5"), Minutes: d("30")},
		},
		FinishingHourlyRate: d("40"),
		Operational: Operational{
			HourlyCost:      d("30"),
			ProductionHours: d("1"),
			Overheads:       []Overhead{{Name: "Energia", Amount: d("10")}},
		},
		Labor: []Labor{
			{Role: "Impressor", HourlyRate: d("20"), Hours: d("1")},
		},
		Margin: Margin{Kind: KindPercent, Value: d("30"), Basis: BasisCost},
		Taxes: []Tax{
			{Name: "ISS", Rate: d("5")},
			{Name: "ICMS", Rate: d("18"), Exempt: true},
		},
		Discount:   &Adjustment{Kind: KindPercent, Value: d("10")},
		Commission: &Adjustment{Kind: KindPercent, Value: d("5")},
	}
}

func TestMaterialsCost_SumsPriceTimesQuantity(t *testing.T) {
	cost, err := MaterialsCost([]Material{
		{Name: "Vinil", UnitPrice: d("10"), Quantity: d("3")},
		{Name: "Tinta", UnitPrice: d("2.5"), Quantity: d("4")},
	})
	require.NoError(t, err)
	assertDecimal(t, "materials", "40", cost)
}

func TestMaterialsCost_WastePercent(t *testing.T) {
	withoutWaste, err := MaterialsCost([]Material{{UnitPrice: d("10"), Quantity: d("1")}})
	require.NoError(t, err)
	withWaste, err := MaterialsCost([]Material{{UnitPrice: d("10"), Quantity: d("1"), WastePercent: d("5")}})
	require.NoError(t, err)

	assertDecimal(t, "withoutWaste", "10", withoutWaste)
	assertDecimal(t, "withWaste", "10.5", withWaste)
}

func TestMaterialsCost_RejectsZeroAndNegative(t *testing.T) {
	cases := map[string]Material{
		"materials[0].unit_price":    {UnitPrice: d("0"), Quantity: d("1")},
		"materials[0].quantity":      {UnitPrice: d("1"), Quantity: d("-2")},
		"materials[0].waste_percent": {UnitPrice: d("1"), Quantity: d("1"), WastePercent: d("-1")},
	}
	for field, m := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := MaterialsCost([]Material{m})
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, field, verr.Field)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestFinishingsCost_AreaFlatAndTime(t *testing.T) {
	cost, err := FinishingsCost([]Finishing{
		{Name: "Laminação", AreaM2: d("2"), CostPerM2: d("15"), FlatCost: d("5"), Minutes: d("30")},
	}, d("40"))
	require.NoError(t, err)
	assertDecimal(t, "finishing", "55", cost)
}

func TestFinishingsCost_RequiresAreaWhenPricedPerArea(t *testing.T) {
	_, err := FinishingsCost([]Finishing{{Name: "UV", CostPerM2: d("10")}}, decimal.Zero)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "finishings[0].area_m2", verr.Field)
}

func TestOperationalCost_FlatPlusItemized(t *testing.T) {
	cost, err := OperationalCost(Operational{
		HourlyCost:      d("50"),
		ProductionHours: d("2"),
		FixedCost:       d("20"),
		Overheads: []Overhead{
			{Name: "Energia", Amount: d("10")},
			{Name: "Aluguel", Amount: d("5")},
		},
	})
	require.NoError(t, err)
	assertDecimal(t, "operational", "135", cost)
}

func TestLaborCost_BurdenAndBenefits(t *testing.T) {
	cost, err := LaborCost([]Labor{
		{Role: "Arte-finalista", HourlyRate: d("20"), Hours: d("5"), BurdenPercent: d("50"), Benefits: d("10")},
	})
	require.NoError(t, err)
	assertDecimal(t, "labor", "160", cost)

	_, err = LaborCost([]Labor{{Role: "Instalador", HourlyRate: d("20"), Hours: d("0")}})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestMarginAmount_CostBasis(t *testing.T) {
	for _, cost := range []string{"1", "99.99", "200", "12345.67"} {
		margin, clamped, err := MarginAmount(d(cost), Margin{Value: d("30"), Basis: BasisCost})
		require.NoError(t, err)
		assert.False(t, clamped)
		assertDecimal(t, "margin", d(cost).Mul(d("0.30")).String(), margin)
	}
}

func TestMarginAmount_PriceBasis(t *testing.T) {
	margin, _, err := MarginAmount(d("80"), Margin{Value: d("20"), Basis: BasisPrice})
	require.NoError(t, err)
	assertDecimal(t, "margin", "20", margin)

	_, _, err = MarginAmount(d("80"), Margin{Value: d("100"), Basis: BasisPrice})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestMarginAmount_Clamp(t *testing.T) {
	margin, clamped, err := MarginAmount(d("1000"), Margin{Value: d("30"), Max: dp("250")})
	require.NoError(t, err)
	assert.True(t, clamped)
	assertDecimal(t, "margin", "250", margin)

	margin, clamped, err = MarginAmount(d("10"), Margin{Value: d("30"), Min: dp("15")})
	require.NoError(t, err)
	assert.True(t, clamped)
	assertDecimal(t, "margin", "15", margin)

	_, _, err = MarginAmount(d("10"), Margin{Value: d("30"), Min: dp("20"), Max: dp("5")})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCommissionAmount_AlwaysWithinBounds(t *testing.T) {
	c := &Adjustment{Kind: KindPercent, Value: d("5"), Min: dp("20"), Max: dp("200")}
	for _, base := range []string{"0", "10", "100", "1000", "10000", "999999"} {
		amount, applied, err := CommissionAmount(d(base), c, time.Time{})
		require.NoError(t, err)
		require.True(t, applied)
		assert.True(t, amount.GreaterThanOrEqual(*c.Min), "base %s commission %s below min", base, amount)
		assert.True(t, amount.LessThanOrEqual(*c.Max), "base %s commission %s above max", base, amount)
	}
}

func TestCommissionAmount_OutsideWindowIsZeroAndNotApplied(t *testing.T) {
	until := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)
	c := &Adjustment{Kind: KindPercent, Value: d("5"), Min: dp("20"), ValidUntil: &until}

	amount, applied, err := CommissionAmount(d("1000"), c, until.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, applied)
	assertDecimal(t, "commission", "0", amount)
}

func TestDiscountAmount_FixedIsCappedAtBase(t *testing.T) {
	amount, applied, capped, err := DiscountAmount(d("50"), &Adjustment{Kind: KindFixed, Value: d("80")}, time.Time{})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, capped)
	assertDecimal(t, "discount", "50", amount)
}

func TestDiscountAmount_ValidityWindow(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
	discount := &Adjustment{Kind: KindPercent, Value: d("10"), ValidFrom: &from, ValidUntil: &until}

	amount, applied, _, err := DiscountAmount(d("100"), discount, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, applied)
	assertDecimal(t, "inside window", "10", amount)

	amount, applied, _, err = DiscountAmount(d("100"), discount, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, applied)
	assertDecimal(t, "outside window", "0", amount)
}

func TestTaxAmounts_BaseSelectorAndExemption(t *testing.T) {
	lines, total, err := TaxAmounts([]Tax{
		{Name: "ISS", Rate: d("5")},
		{Name: "PIS", Rate: d("1"), Base: TaxOnCost},
		{Name: "ICMS", Rate: d("18"), Exempt: true},
	}, d("300"), d("200"))
	require.NoError(t, err)
	require.Len(t, lines, 3)

	assertDecimal(t, "ISS", "15", lines[0].Amount)
	assert.Equal(t, TaxOnPrice, lines[0].Base)
	assertDecimal(t, "PIS", "2", lines[1].Amount)
	assertDecimal(t, "ICMS", "0", lines[2].Amount)
	assertDecimal(t, "total", "17", total)
}

func TestCalculate_FullPipeline(t *testing.T) {
	result, err := Calculate(bannerInput())
	require.NoError(t, err)

	b := result.Breakdown
	assertDecimal(t, "materialCost", "100", b.MaterialCost)
	assertDecimal(t, "finishingCost", "40", b.FinishingCost)
	assertDecimal(t, "operationalCost", "40", b.OperationalCost)
	assertDecimal(t, "laborCost", "20", b.LaborCost)
	assertDecimal(t, "totalCost", "200", b.TotalCost)
	assertDecimal(t, "margin", "60", b.Margin)
	assertDecimal(t, "basePrice", "260", b.BasePrice)
	assertDecimal(t, "discount", "26", b.Discount)
	assertDecimal(t, "baseAfterDiscount", "234", b.BaseAfterDiscount)
	assertDecimal(t, "tax", "11.70", b.Tax)
	assertDecimal(t, "commission", "11.70", b.Commission)

	assertDecimal(t, "total", "257.40", result.Totals.Total)
	assertDecimal(t, "unitPrice", "25.74", result.Totals.UnitPrice)

	ind := result.Indicators
	assertDecimal(t, "netProfit", "34", ind.NetProfit)
	assertDecimal(t, "contribution", "74", ind.Contribution)
	assertDecimal(t, "contributionPercent", "28.749", ind.ContributionPercent)
	assertDecimal(t, "profitabilityPercent", "13.209", ind.ProfitabilityPercent)
	assertDecimal(t, "roi", "17", ind.ROIPercent)
	assertDecimal(t, "markup", "1.287", ind.Markup)
	require.NotNil(t, ind.BreakEvenUnits)
	assert.Equal(t, int64(6), *ind.BreakEvenUnits)
	require.NotNil(t, ind.Payback)
	assertDecimal(t, "payback", "5.8824", *ind.Payback)
	assert.Empty(t, result.Warnings)
}

func TestCalculate_IsDeterministic(t *testing.T) {
	first, err := Calculate(bannerInput())
	require.NoError(t, err)
	second, err := Calculate(bannerInput())
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestCalculate_RejectsEmptyCost(t *testing.T) {
	_, err := Calculate(Input{Margin: Margin{Value: d("30")}})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "total_cost", verr.Field)
}

func TestCalculate_NegativeInputFailsBeforeAnyResult(t *testing.T) {
	in := bannerInput()
	in.Labor[0].HourlyRate = d("-1")

	result, err := Calculate(in)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.True(t, result.Totals.Total.IsZero())
}

func TestCalculate_LossWarningsAndNoPayback(t *testing.T) {
	in := bannerInput()
	in.Discount = &Adjustment{Kind: KindFixed, Value: d("1000")}

	result, err := Calculate(in)
	require.NoError(t, err)

	assertDecimal(t, "discount", "260", result.Breakdown.Discount)
	assert.Contains(t, result.Warnings, WarningDiscountCapped)
	assert.Contains(t, result.Warnings, WarningLoss)
	assert.Nil(t, result.Indicators.Payback)
	assert.Nil(t, result.Indicators.BreakEvenUnits)
}

func TestCalculate_BreakEvenEdges(t *testing.T) {
	materials := []Material{{Name: "Lona", UnitPrice: d("25"), Quantity: d("4")}}

	t.Run("zero contribution has no break-even", func(t *testing.T) {
		result, err := Calculate(Input{
			Materials: materials,
			Margin:    Margin{Kind: KindFixed, Value: d("0")},
		})
		require.NoError(t, err)

		assertDecimal(t, "contribution", "0", result.Indicators.Contribution)
		assert.Nil(t, result.Indicators.BreakEvenUnits)
		assert.Nil(t, result.Indicators.Payback)
	})

	t.Run("no operational cost breaks even at zero units", func(t *testing.T) {
		result, err := Calculate(Input{
			Materials: materials,
			Margin:    Margin{Kind: KindPercent, Value: d("30")},
		})
		require.NoError(t, err)

		assertDecimal(t, "contribution", "30", result.Indicators.Contribution)
		require.NotNil(t, result.Indicators.BreakEvenUnits)
		assert.Equal(t, int64(0), *result.Indicators.BreakEvenUnits)
	})
}

func TestCalculate_RejectsExtremeDecimals(t *testing.T) {
	cases := []struct {
		name  string
		value string
	}{
		{"tiny exponent", "1e-8000000"},
		{"nine places", "0.000000001"},
		{"huge exponent", "1e13"},
		{"too many digits", "12345678901234567890123456789012"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := Input{
				Materials: []Material{
					{Name: "Lona", UnitPrice: d("10"), Quantity: d("1")},
					{Name: "Vinil", UnitPrice: d(tc.value), Quantity: d("1")},
				},
			}

			start := time.Now()
			_, err := Calculate(in)
			assert.Less(t, time.Since(start), time.Second)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "materials[1].unit_price", verr.Field)
		})
	}

	in := bannerInput()
	in.Commission.Max = dp("1e-9")
	_, err := Calculate(in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "commission.max", verr.Field)

	assert.True(t, Representable(d("0.00000001")))
	assert.True(t, Representable(d("1e12")))
	assert.True(t, Representable(decimal.Decimal{}))
}

func TestCalculate_InactiveDiscountWarns(t *testing.T) {
	until := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := bannerInput()
	in.Discount.ValidUntil = &until
	in.At = until.Add(24 * time.Hour)

	result, err := Calculate(in)
	require.NoError(t, err)
	assertDecimal(t, "discount", "0", result.Breakdown.Discount)
	assert.Contains(t, result.Warnings, WarningDiscountInactive)
}

func TestWriteSummary(t *testing.T) {
	in := bannerInput()
	result, err := Calculate(in)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = WriteSummary(&buf, SummaryHeader{
		Title:     "Banner fachada",
		Customer:  "Padaria Central",
		Notes:     "Entregar em 48h",
		Currency:  "BRL",
		CreatedAt: time.Date(2024, 2, 1, 14, 0, 0, 0, time.UTC),
	}, in, result)
	require.NoError(t, err)

	body := buf.String()
	for _, expected := range []string{
		"Banner fachada",
		"Cliente: Padaria Central",
		"Data: 01/02/2024",
		"Total: R$",
		"Premissas:",
		"Material: Lona 440g",
		"ICMS: isento",
		"Observações: Entregar em 48h",
	} {
		assert.Contains(t, body, expected)
	}
}

func TestSummaryFormatsExactDecimals(t *testing.T) {
	p := message.NewPrinter(language.BrazilianPortuguese)
	group, point := localeSeparators(p)
	s := &summaryWriter{p: p, currency: "R$", group: group, point: point}

	assert.Equal(t, "R$ 1.234.567,50", s.money(d("1234567.5")))
	assert.Equal(t, "R$ -1.234,50", s.money(d("-1234.5")))
	assert.Equal(t, "R$ 0,13", s.money(d("0.125")), "half-up on the exact value")
	assert.Equal(t, "R$ 98.765.432.109.876.543,21", s.money(d("98765432109876543.21")))
	assert.Equal(t, "12,35%", s.ratio(d("12.345")))
}
