package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/orcafacil/internal/db"
	"github.com/Simplici0/orcafacil/internal/migrations"
	"github.com/Simplici0/orcafacil/internal/pricing"
)

// steppingClock returns a clock that advances one minute per call.
func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	database, err := db.Open(db.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, migrations.Up(database, nil))

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return New(database).WithClock(steppingClock(start))
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func sampleResult(t *testing.T) (pricing.Input, pricing.Result) {
	t.Helper()

	in := pricing.Input{
		Materials: []pricing.Material{{Name: "Lona 440g", UnitPrice: dec("25"), Quantity: dec("4"), Unit: "m2"}},
		Margin:    pricing.Margin{Kind: pricing.KindPercent, Value: dec("30")},
	}
	res, err := pricing.Calculate(in)
	require.NoError(t, err)
	return in, res
}

func createQuote(t *testing.T, s *Store, title, notes string, customerID *string) QuoteDetail {
	t.Helper()

	in, res := sampleResult(t)
	q, err := s.CreateQuote(context.Background(), NewQuote{
		CustomerID: customerID,
		Title:      title,
		Notes:      notes,
		Input:      in,
		Result:     res,
	})
	require.NoError(t, err)
	return q
}

func approvedQuote(t *testing.T, s *Store, title string) QuoteDetail {
	t.Helper()
	ctx := context.Background()

	q := createQuote(t, s, title, "", nil)
	_, err := s.UpdateQuoteStatus(ctx, q.ID, QuoteSent)
	require.NoError(t, err)
	q, err = s.UpdateQuoteStatus(ctx, q.ID, QuoteApproved)
	require.NoError(t, err)
	return q
}

func TestSettingsDefaultsAndUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.EnsureSettings(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnsureSettings(ctx)
	require.NoError(t, err)
	assert.False(t, created)

	st, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BRL", st.Currency)
	assert.True(t, st.DefaultMarginPercent.Equal(dec("30")))
	assert.Equal(t, pricing.BasisCost, st.DefaultMarginBasis)
	assert.Equal(t, 15, st.QuoteValidityDays)

	st.FinishingHourlyRate = dec("48.5")
	st.QuoteValidityDays = 7
	updated, err := s.UpdateSettings(ctx, st)
	require.NoError(t, err)
	assert.True(t, updated.FinishingHourlyRate.Equal(dec("48.5")))
	assert.Equal(t, 7, updated.QuoteValidityDays)
}

func TestCustomersSearchAndDeactivate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ana, err := s.CreateCustomer(ctx, Customer{Name: "Ana Souza", Email: "ana@grafica.com.br"})
	require.NoError(t, err)
	_, err = s.CreateCustomer(ctx, Customer{Name: "Padaria Central", Document: "12.345.678/0001-90"})
	require.NoError(t, err)

	found, err := s.ListCustomers(ctx, "grafica", false)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, ana.ID, found[0].ID)

	found, err = s.ListCustomers(ctx, "0001", false)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Padaria Central", found[0].Name)

	require.NoError(t, s.DeactivateCustomer(ctx, ana.ID))

	active, err := s.ListCustomers(ctx, "", false)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := s.ListCustomers(ctx, "", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, s.DeactivateCustomer(ctx, "missing"), ErrNotFound)
	_, err = s.GetCustomer(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductsFilterByCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	banner, err := s.CreateProduct(ctx, Product{Name: "Banner", Category: "impressos", Unit: "m2", BasePrice: dec("60")})
	require.NoError(t, err)
	_, err = s.CreateProduct(ctx, Product{Name: "Fachada ACM", Category: "fachadas", Unit: "m2", BasePrice: dec("450")})
	require.NoError(t, err)

	printed, err := s.ListProducts(ctx, "impressos")
	require.NoError(t, err)
	require.Len(t, printed, 1)
	assert.Equal(t, banner.ID, printed[0].ID)

	banner.BasePrice = dec("65")
	updated, err := s.UpdateProduct(ctx, banner.ID, banner)
	require.NoError(t, err)
	assert.True(t, updated.BasePrice.Equal(dec("65")))

	_, err = s.UpdateProduct(ctx, "missing", banner)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFinishingPricingLine(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f, err := s.CreateFinishing(ctx, Finishing{Name: "Laminação", CostPerM2: dec("12"), Minutes: dec("15")})
	require.NoError(t, err)

	got, err := s.GetFinishing(ctx, f.ID)
	require.NoError(t, err)

	line := got.PricingLine(dec("2.5"))
	cost, err := pricing.FinishingsCost([]pricing.Finishing{line}, dec("60"))
	require.NoError(t, err)
	assert.True(t, cost.Equal(dec("45")), "got %s", cost)
}

func TestDuplicateNamesReturnErrDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateMaterial(ctx, Material{Name: "Vinil", Unit: "m2", UnitPrice: dec("10")})
	require.NoError(t, err)
	_, err = s.CreateMaterial(ctx, Material{Name: "Vinil", Unit: "m2", UnitPrice: dec("12")})
	require.ErrorIs(t, err, ErrDuplicate)

	lona, err := s.CreateMaterial(ctx, Material{Name: "Lona", Unit: "m2", UnitPrice: dec("20")})
	require.NoError(t, err)
	lona.Name = "Vinil"
	_, err = s.UpdateMaterial(ctx, lona.ID, lona)
	require.ErrorIs(t, err, ErrDuplicate)

	laminacao, err := s.CreateFinishing(ctx, Finishing{Name: "Laminação", FlatCost: dec("5")})
	require.NoError(t, err)
	_, err = s.CreateFinishing(ctx, Finishing{Name: "Laminação", FlatCost: dec("6")})
	require.ErrorIs(t, err, ErrDuplicate)
	_, err = s.UpdateFinishing(ctx, laminacao.ID, laminacao)
	require.NoError(t, err, "keeping its own name is not a clash")
}

func TestRecordMovementKeepsStockNonNegative(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m, err := s.CreateMaterial(ctx, Material{Name: "Vinil adesivo", Unit: "m2", UnitPrice: dec("18"), StockQuantity: dec("10"), MinStock: dec("5")})
	require.NoError(t, err)

	mv, err := s.RecordMovement(ctx, m.ID, MovementOut, dec("4"), "pedido 12")
	require.NoError(t, err)
	assert.True(t, mv.BalanceAfter.Equal(dec("6")))

	_, err = s.RecordMovement(ctx, m.ID, MovementOut, dec("7"), "pedido 13")
	assert.ErrorIs(t, err, ErrInsufficientStock)

	got, err := s.GetMaterial(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.StockQuantity.Equal(dec("6")), "failed movement must not change stock")

	mv, err = s.RecordMovement(ctx, m.ID, MovementIn, dec("2.5"), "compra")
	require.NoError(t, err)
	assert.True(t, mv.BalanceAfter.Equal(dec("8.5")))

	mv, err = s.RecordMovement(ctx, m.ID, MovementAdjust, dec("3"), "inventário")
	require.NoError(t, err)
	assert.True(t, mv.BalanceAfter.Equal(dec("3")))

	_, err = s.RecordMovement(ctx, m.ID, MovementIn, dec("0"), "")
	assert.ErrorIs(t, err, ErrInvalidMovement)
	_, err = s.RecordMovement(ctx, m.ID, MovementAdjust, dec("-1"), "")
	assert.ErrorIs(t, err, ErrInvalidMovement)
	_, err = s.RecordMovement(ctx, m.ID, MovementKind("transfer"), dec("1"), "")
	assert.ErrorIs(t, err, ErrInvalidMovement)
	_, err = s.RecordMovement(ctx, "missing", MovementIn, dec("1"), "")
	assert.ErrorIs(t, err, ErrNotFound)

	movements, err := s.ListMovements(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, movements, 3)
	assert.Equal(t, MovementAdjust, movements[0].Kind)
	assert.Equal(t, MovementOut, movements[2].Kind)

	low, err := s.ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, m.ID, low[0].ID)
}

func TestListQuotesOrdersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createQuote(t, s, "Primeira", "nota um", nil)
	createQuote(t, s, "Segunda", "nota dois", nil)
	createQuote(t, s, "Terceira", "nota três", nil)

	quotes, err := s.ListQuotes(ctx, QuoteFilter{})
	require.NoError(t, err)
	require.Len(t, quotes, 3)
	assert.Equal(t, "Terceira", quotes[0].Title)
	assert.Equal(t, "Segunda", quotes[1].Title)
	assert.Equal(t, "Primeira", quotes[2].Title)
	assert.True(t, quotes[0].Total.Equal(dec("130")), "got %s", quotes[0].Total)
	assert.Equal(t, QuoteDraft, quotes[0].Status)
}

func TestListQuotesFiltersByTitleNotesCustomerAndStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	padaria, err := s.CreateCustomer(ctx, Customer{Name: "Padaria Central"})
	require.NoError(t, err)

	createQuote(t, s, "Fachada", "impressão vermelha", nil)
	chaveiros := createQuote(t, s, "Chaveiros", "cliente vip", nil)
	createQuote(t, s, "Protótipo", "urgente para fachada", nil)
	createQuote(t, s, "Cardápio", "", &padaria.ID)

	byTitle, err := s.ListQuotes(ctx, QuoteFilter{Query: "Chave"})
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "Chaveiros", byTitle[0].Title)

	byNotes, err := s.ListQuotes(ctx, QuoteFilter{Query: "fachada"})
	require.NoError(t, err)
	assert.Len(t, byNotes, 2)

	byCustomer, err := s.ListQuotes(ctx, QuoteFilter{Query: "padaria"})
	require.NoError(t, err)
	require.Len(t, byCustomer, 1)
	assert.Equal(t, "Padaria Central", byCustomer[0].CustomerName)

	_, err = s.UpdateQuoteStatus(ctx, chaveiros.ID, QuoteSent)
	require.NoError(t, err)
	sent, err := s.ListQuotes(ctx, QuoteFilter{Status: QuoteSent})
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, chaveiros.ID, sent[0].ID)
}

func TestGetQuoteReturnsStoredSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := createQuote(t, s, "Banner", "", nil)

	got, err := s.GetQuote(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lona 440g", got.Input.Materials[0].Name)
	assert.True(t, got.Result.Totals.Total.Equal(created.Result.Totals.Total))
	assert.True(t, got.Result.Breakdown.MaterialCost.Equal(dec("100")))

	_, err = s.GetQuote(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	missing := "missing"
	in, res := sampleResult(t)
	_, err = s.CreateQuote(ctx, NewQuote{CustomerID: &missing, Input: in, Result: res})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateQuoteStatusRejectsInvalidTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	q := createQuote(t, s, "Adesivos", "", nil)

	_, err := s.UpdateQuoteStatus(ctx, q.ID, QuoteApproved)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.UpdateQuoteStatus(ctx, q.ID, QuoteSent)
	require.NoError(t, err)
	rejected, err := s.UpdateQuoteStatus(ctx, q.ID, QuoteRejected)
	require.NoError(t, err)
	assert.Equal(t, QuoteRejected, rejected.Status)

	_, err = s.UpdateQuoteStatus(ctx, q.ID, QuoteSent)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.UpdateQuoteStatus(ctx, "missing", QuoteSent)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConvertQuoteCreatesSaleAndProductionOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	draft := createQuote(t, s, "Rascunho", "", nil)
	_, err := s.ConvertQuote(ctx, draft.ID, "pix", nil)
	assert.ErrorIs(t, err, ErrQuoteNotApproved)

	q := approvedQuote(t, s, "Placa PVC")
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	conv, err := s.ConvertQuote(ctx, q.ID, " pix ", &due)
	require.NoError(t, err)

	assert.Equal(t, q.ID, conv.Sale.QuoteID)
	assert.Equal(t, SalePending, conv.Sale.Status)
	assert.Equal(t, "pix", conv.Sale.PaymentMethod)
	assert.True(t, conv.Sale.Amount.Equal(q.Result.Totals.Total))
	assert.Equal(t, conv.Sale.ID, conv.Production.SaleID)
	assert.Equal(t, StageQueued, conv.Production.Stage)
	assert.Equal(t, "Placa PVC", conv.Production.Title)
	require.NotNil(t, conv.Production.DueDate)
	assert.True(t, conv.Production.DueDate.Equal(due))

	_, err = s.ConvertQuote(ctx, q.ID, "pix", nil)
	assert.ErrorIs(t, err, ErrAlreadyConverted)

	sales, err := s.ListSales(ctx, "")
	require.NoError(t, err)
	assert.Len(t, sales, 1)
}

func TestSaleStatusAndProductionFlow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.ConvertQuote(ctx, approvedQuote(t, s, "Banner").ID, "cartão", nil)
	require.NoError(t, err)

	paid, err := s.UpdateSaleStatus(ctx, conv.Sale.ID, SalePaid)
	require.NoError(t, err)
	assert.Equal(t, SalePaid, paid.Status)

	_, err = s.UpdateSaleStatus(ctx, conv.Sale.ID, SaleCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	order := conv.Production
	for _, want := range []ProductionStage{StagePrinting, StageFinishing, StageReady, StageDelivered} {
		order, err = s.AdvanceProduction(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, want, order.Stage)
	}
	_, err = s.AdvanceProduction(ctx, order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	delivered, err := s.ListProduction(ctx, StageDelivered)
	require.NoError(t, err)
	assert.Len(t, delivered, 1)
}

func TestCancelledSaleFreezesProduction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.ConvertQuote(ctx, approvedQuote(t, s, "Faixa").ID, "", nil)
	require.NoError(t, err)
	_, err = s.UpdateSaleStatus(ctx, conv.Sale.ID, SaleCancelled)
	require.NoError(t, err)

	_, err = s.AdvanceProduction(ctx, conv.Production.ID)
	assert.ErrorIs(t, err, ErrSaleCancelled)
}

func TestSummaryAggregatesPeriod(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createQuote(t, s, "Aberto", "", nil)
	first, err := s.ConvertQuote(ctx, approvedQuote(t, s, "Vendido").ID, "pix", nil)
	require.NoError(t, err)
	_, err = s.UpdateSaleStatus(ctx, first.Sale.ID, SalePaid)
	require.NoError(t, err)
	second, err := s.ConvertQuote(ctx, approvedQuote(t, s, "Pendente").ID, "boleto", nil)
	require.NoError(t, err)
	_, err = s.AdvanceProduction(ctx, second.Production.ID)
	require.NoError(t, err)

	_, err = s.CreateMaterial(ctx, Material{Name: "Tinta", UnitPrice: dec("90"), StockQuantity: dec("1"), MinStock: dec("2")})
	require.NoError(t, err)

	sum, err := s.Summary(ctx, Period{})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.QuoteCount)
	assert.Equal(t, 1, sum.QuotesByStatus[QuoteDraft])
	assert.Equal(t, 2, sum.QuotesByStatus[QuoteApproved])
	assert.Equal(t, 2, sum.SaleCount)
	assert.True(t, sum.ConversionRate.Equal(dec("66.67")), "got %s", sum.ConversionRate)
	assert.True(t, sum.Revenue.Equal(dec("130")), "got %s", sum.Revenue)
	assert.True(t, sum.AverageTicket.Equal(dec("130")))
	assert.True(t, sum.EstimatedProfit.Equal(dec("60")), "got %s", sum.EstimatedProfit)
	require.Len(t, sum.LowStock, 1)
	assert.Equal(t, "Tinta", sum.LowStock[0].Name)
	assert.Equal(t, 1, sum.ProductionByStage[StageQueued])
	assert.Equal(t, 1, sum.ProductionByStage[StagePrinting])
	assert.Equal(t, 0, sum.ProductionByStage[StageDelivered])

	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	empty, err := s.Summary(ctx, Period{From: &future})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.QuoteCount)
	assert.True(t, empty.ConversionRate.IsZero())
}
