package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Simplici0/orcafacil/internal/cache"
	"github.com/Simplici0/orcafacil/internal/observability"
	"github.com/Simplici0/orcafacil/internal/pricing"
	"github.com/Simplici0/orcafacil/internal/store"
)

const quoteCachePrefix = "quote"

// materialRef prices an inventory material by id.
type materialRef struct {
	MaterialID string          `json:"material_id" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity" validate:"gt=0"`
}

// finishingRef prices a catalog finishing by id over an area.
type finishingRef struct {
	FinishingID string          `json:"finishing_id" validate:"required"`
	AreaM2      decimal.Decimal `json:"area_m2" validate:"gte=0"`
}

type calculateRequest struct {
	Input         pricing.Input  `json:"input"`
	MaterialRefs  []materialRef  `json:"material_refs" validate:"dive"`
	FinishingRefs []finishingRef `json:"finishing_refs" validate:"dive"`
}

type createQuoteRequest struct {
	calculateRequest
	CustomerID *string    `json:"customer_id"`
	Title      string     `json:"title" validate:"required,max=200"`
	Notes      string     `json:"notes" validate:"max=2000"`
	ValidUntil *time.Time `json:"valid_until"`
}

type quoteStatusRequest struct {
	Status store.QuoteStatus `json:"status" validate:"required,oneof=sent approved rejected expired"`
}

type quoteSaleRequest struct {
	PaymentMethod string     `json:"payment_method" validate:"max=50"`
	DueDate       *time.Time `json:"due_date"`
}

// resolveInput expands catalog references into pricing lines and fills the
// finishing rate and margin from the shop settings when the request leaves
// them empty.
func (s *server) resolveInput(ctx context.Context, req calculateRequest) (pricing.Input, store.Settings, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return pricing.Input{}, store.Settings{}, err
	}

	in := req.Input
	in.Materials = append([]pricing.Material(nil), req.Input.Materials...)
	in.Finishings = append([]pricing.Finishing(nil), req.Input.Finishings...)

	for _, ref := range req.MaterialRefs {
		m, err := s.store.GetMaterial(ctx, ref.MaterialID)
		if err != nil {
			return pricing.Input{}, store.Settings{}, err
		}
		if !m.Active {
			return pricing.Input{}, store.Settings{}, fmt.Errorf("%w: material %s está inativo", errBadRequest, m.Name)
		}
		in.Materials = append(in.Materials, m.PricingLine(ref.Quantity))
	}
	for _, ref := range req.FinishingRefs {
		f, err := s.store.GetFinishing(ctx, ref.FinishingID)
		if err != nil {
			return pricing.Input{}, store.Settings{}, err
		}
		if !f.Active {
			return pricing.Input{}, store.Settings{}, fmt.Errorf("%w: acabamento %s está inativo", errBadRequest, f.Name)
		}
		in.Finishings = append(in.Finishings, f.PricingLine(ref.AreaM2))
	}

	if in.FinishingHourlyRate.IsZero() {
		in.FinishingHourlyRate = settings.FinishingHourlyRate
	}
	if in.Margin.Kind == "" && in.Margin.Basis == "" && in.Margin.Value.IsZero() {
		in.Margin.Kind = pricing.KindPercent
		in.Margin.Value = settings.DefaultMarginPercent
		in.Margin.Basis = settings.DefaultMarginBasis
	}
	if in.At.IsZero() && (hasWindow(in.Discount) || hasWindow(in.Commission)) {
		in.At = s.now().UTC()
	}

	return in, settings, nil
}

func hasWindow(a *pricing.Adjustment) bool {
	return a != nil && (a.ValidFrom != nil || a.ValidUntil != nil)
}

// quoteKey is what a cached result depends on. The instant only matters
// through whether each adjustment is in its window, so it is replaced by that.
type quoteKey struct {
	Input            pricing.Input `json:"input"`
	DiscountActive   bool          `json:"discount_active"`
	CommissionActive bool          `json:"commission_active"`
}

func quoteCacheKey(in pricing.Input) (string, error) {
	k := quoteKey{Input: in}
	k.Input.At = time.Time{}
	if in.Discount != nil {
		k.DiscountActive = in.Discount.ActiveAt(in.At)
	}
	if in.Commission != nil {
		k.CommissionActive = in.Commission.ActiveAt(in.At)
	}
	return cache.Key(quoteCachePrefix, k)
}

// calculate runs the pricing engine, memoising results by input.
func (s *server) calculate(ctx context.Context, in pricing.Input) (pricing.Result, error) {
	logger := observability.FromContext(ctx)

	if err := pricing.CheckRange(in); err != nil {
		s.metrics.QuoteCalculated("invalid")
		return pricing.Result{}, err
	}
	key, err := quoteCacheKey(in)
	if err != nil {
		return pricing.Result{}, err
	}
	if raw, ok := s.cache.Get(ctx, key); ok {
		var res pricing.Result
		if err := json.Unmarshal([]byte(raw), &res); err == nil {
			s.metrics.CacheLookup(true)
			s.metrics.QuoteCalculated("cached")
			return res, nil
		}
		logger.Warn("discarding unreadable cached quote", zap.String("key", key))
	}
	s.metrics.CacheLookup(false)

	res, err := pricing.Calculate(in)
	if err != nil {
		s.metrics.QuoteCalculated("invalid")
		return pricing.Result{}, err
	}
	s.metrics.QuoteCalculated("ok")

	raw, err := json.Marshal(res)
	if err != nil {
		return pricing.Result{}, fmt.Errorf("encode quote result: %w", err)
	}
	if err := s.cache.Set(ctx, key, string(raw), s.cacheTTL); err != nil {
		logger.Warn("quote cache write failed", zap.Error(err))
	}
	return res, nil
}

func (s *server) handleQuoteCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	in, _, err := s.resolveInput(r.Context(), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	res, err := s.calculate(r.Context(), in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleQuotesCreate(w http.ResponseWriter, r *http.Request) {
	var req createQuoteRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	in, settings, err := s.resolveInput(r.Context(), req.calculateRequest)
	if err != nil {
		handleError(w, r, err)
		return
	}
	res, err := s.calculate(r.Context(), in)
	if err != nil {
		handleError(w, r, err)
		return
	}

	validUntil := req.ValidUntil
	if validUntil == nil && settings.QuoteValidityDays > 0 {
		until := s.now().UTC().AddDate(0, 0, settings.QuoteValidityDays)
		validUntil = &until
	}

	detail, err := s.store.CreateQuote(r.Context(), store.NewQuote{
		CustomerID: req.CustomerID,
		Title:      s.clean(req.Title),
		Notes:      s.clean(req.Notes),
		Input:      in,
		Result:     res,
		ValidUntil: validUntil,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	observability.FromContext(r.Context()).Info("quote created",
		zap.String("quote_id", detail.ID),
		zap.String("total", detail.Total.StringFixed(2)),
	)
	writeJSON(w, http.StatusCreated, detail)
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	status := store.QuoteStatus(queryParam(r, "status"))
	switch status {
	case "", store.QuoteDraft, store.QuoteSent, store.QuoteApproved, store.QuoteRejected, store.QuoteExpired:
	default:
		handleError(w, r, fmt.Errorf("%w: status %q desconhecido", errBadRequest, status))
		return
	}

	quotes, err := s.store.ListQuotes(r.Context(), store.QuoteFilter{Query: queryParam(r, "q"), Status: status})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (s *server) handleQuoteDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.store.GetQuote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *server) handleQuoteText(w http.ResponseWriter, r *http.Request) {
	detail, err := s.store.GetQuote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	header := pricing.SummaryHeader{
		Title:      detail.Title,
		Customer:   detail.CustomerName,
		Notes:      detail.Notes,
		Currency:   settings.Currency,
		CreatedAt:  detail.CreatedAt,
		ValidUntil: detail.ValidUntil,
	}
	if err := pricing.WriteSummary(&buf, header, detail.Input, detail.Result); err != nil {
		handleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *server) handleQuoteStatus(w http.ResponseWriter, r *http.Request) {
	var req quoteStatusRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	detail, err := s.store.UpdateQuoteStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *server) handleQuoteSale(w http.ResponseWriter, r *http.Request) {
	var req quoteSaleRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	conv, err := s.store.ConvertQuote(r.Context(), chi.URLParam(r, "id"), s.clean(req.PaymentMethod), req.DueDate)
	if err != nil {
		handleError(w, r, err)
		return
	}

	observability.FromContext(r.Context()).Info("quote converted",
		zap.String("sale_id", conv.Sale.ID),
		zap.String("production_order_id", conv.Production.ID),
	)
	writeJSON(w, http.StatusCreated, conv)
}
