package pricing

import (
	"github.com/shopspring/decimal"
)

const (
	moneyPlaces = 2
	ratioPlaces = 4
)

const (
	WarningLoss             = "prejuízo: o preço final não cobre o custo total"
	WarningMarginClamped    = "margem ajustada aos limites configurados"
	WarningDiscountCapped   = "desconto limitado ao preço base"
	WarningDiscountInactive = "desconto fora da validade, não aplicado"
	WarningCommissionOff    = "comissão fora da validade, não aplicada"
)

// Calculate composes the cost, margin, discount, tax and commission steps into
// a final price and the derived profitability indicators. Every money component
// is rounded to cents before being composed, so the breakdown always adds up.
func Calculate(in Input) (Result, error) {
	if err := CheckRange(in); err != nil {
		return Result{}, err
	}

	quantity := in.Quantity
	if quantity.IsZero() {
		quantity = decimal.NewFromInt(1)
	}
	if err := requirePositive("quantity", quantity); err != nil {
		return Result{}, err
	}

	materialCost, err := MaterialsCost(in.Materials)
	if err != nil {
		return Result{}, err
	}
	finishingCost, err := FinishingsCost(in.Finishings, in.FinishingHourlyRate)
	if err != nil {
		return Result{}, err
	}
	operationalCost, err := OperationalCost(in.Operational)
	if err != nil {
		return Result{}, err
	}
	laborCost, err := LaborCost(in.Labor)
	if err != nil {
		return Result{}, err
	}

	materialCost = materialCost.Round(moneyPlaces)
	finishingCost = finishingCost.Round(moneyPlaces)
	operationalCost = operationalCost.Round(moneyPlaces)
	laborCost = laborCost.Round(moneyPlaces)

	totalCost := materialCost.Add(finishingCost).Add(operationalCost).Add(laborCost)
	if err := requirePositive("total_cost", totalCost); err != nil {
		return Result{}, err
	}

	var warnings []string

	margin, marginClamped, err := MarginAmount(totalCost, in.Margin)
	if err != nil {
		return Result{}, err
	}
	margin = margin.Round(moneyPlaces)
	if marginClamped {
		warnings = append(warnings, WarningMarginClamped)
	}
	basePrice := totalCost.Add(margin)

	discount, discountApplied, discountCapped, err := DiscountAmount(basePrice, in.Discount, in.At)
	if err != nil {
		return Result{}, err
	}
	discount = discount.Round(moneyPlaces)
	if in.Discount != nil && !discountApplied {
		warnings = append(warnings, WarningDiscountInactive)
	}
	if discountCapped {
		warnings = append(warnings, WarningDiscountCapped)
	}
	baseAfterDiscount := basePrice.Sub(discount)

	taxLines, tax, err := TaxAmounts(in.Taxes, baseAfterDiscount, totalCost)
	if err != nil {
		return Result{}, err
	}

	commission, commissionApplied, err := CommissionAmount(baseAfterDiscount, in.Commission, in.At)
	if err != nil {
		return Result{}, err
	}
	commission = commission.Round(moneyPlaces)
	if in.Commission != nil && !commissionApplied {
		warnings = append(warnings, WarningCommissionOff)
	}

	finalPrice := baseAfterDiscount.Add(tax).Add(commission)

	variableCost := materialCost.Add(finishingCost).Add(laborCost)
	indicators := deriveIndicators(finalPrice, totalCost, baseAfterDiscount, variableCost, operationalCost, tax, commission, quantity)
	if indicators.NetProfit.IsNegative() {
		warnings = append(warnings, WarningLoss)
	}

	return Result{
		Breakdown: Breakdown{
			MaterialCost:      materialCost,
			FinishingCost:     finishingCost,
			OperationalCost:   operationalCost,
			LaborCost:         laborCost,
			TotalCost:         totalCost,
			Margin:            margin,
			BasePrice:         basePrice,
			Discount:          discount,
			BaseAfterDiscount: baseAfterDiscount,
			Tax:               tax,
			Taxes:             taxLines,
			Commission:        commission,
		},
		Totals: Totals{
			Quantity:  quantity,
			Total:     finalPrice,
			UnitPrice: finalPrice.Div(quantity).Round(moneyPlaces),
		},
		Indicators: indicators,
		Warnings:   warnings,
	}, nil
}

func deriveIndicators(finalPrice, totalCost, baseAfterDiscount, variableCost, fixedCost, tax, commission, quantity decimal.Decimal) Indicators {
	netProfit := baseAfterDiscount.Sub(totalCost)
	contribution := finalPrice.Sub(variableCost).Sub(tax).Sub(commission)

	ind := Indicators{
		NetProfit:    netProfit,
		Contribution: contribution,
		ROIPercent:   netProfit.Div(totalCost).Mul(hundred).Round(ratioPlaces),
		Markup:       finalPrice.Div(totalCost).Round(ratioPlaces),
	}
	if finalPrice.IsPositive() {
		ind.ContributionPercent = contribution.Div(finalPrice).Mul(hundred).Round(ratioPlaces)
		ind.ProfitabilityPercent = netProfit.Div(finalPrice).Mul(hundred).Round(ratioPlaces)
	}

	if contribution.IsPositive() {
		units := int64(0)
		if fixedCost.IsPositive() {
			perUnit := contribution.Div(quantity)
			units = fixedCost.Div(perUnit).Ceil().IntPart()
		}
		ind.BreakEvenUnits = &units
	}
	if netProfit.IsPositive() {
		payback := totalCost.Div(netProfit).Round(ratioPlaces)
		ind.Payback = &payback
	}
	return ind
}
