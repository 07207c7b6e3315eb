package main

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/orcafacil/internal/pricing"
	"github.com/Simplici0/orcafacil/internal/store"
)

type settingsRequest struct {
	Currency             string              `json:"currency" validate:"required,len=3"`
	FinishingHourlyRate  decimal.Decimal     `json:"finishing_hourly_rate" validate:"gte=0"`
	DefaultMarginPercent decimal.Decimal     `json:"default_margin_percent" validate:"gte=0"`
	DefaultMarginBasis   pricing.MarginBasis `json:"default_margin_basis" validate:"omitempty,oneof=cost price"`
	QuoteValidityDays    int                 `json:"quote_validity_days" validate:"gte=1,lte=365"`
}

func (s *server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.DefaultMarginBasis == "" {
		req.DefaultMarginBasis = pricing.BasisCost
	}

	settings, err := s.store.UpdateSettings(r.Context(), store.Settings{
		Currency:             strings.ToUpper(req.Currency),
		FinishingHourlyRate:  req.FinishingHourlyRate,
		DefaultMarginPercent: req.DefaultMarginPercent,
		DefaultMarginBasis:   req.DefaultMarginBasis,
		QuoteValidityDays:    req.QuoteValidityDays,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type customerRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Document string `json:"document" validate:"max=30"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"max=30"`
	City     string `json:"city" validate:"max=100"`
	Notes    string `json:"notes" validate:"max=2000"`
	Active   *bool  `json:"active"`
}

func (s *server) customerFrom(req customerRequest) store.Customer {
	c := store.Customer{
		Name:     s.clean(req.Name),
		Document: s.clean(req.Document),
		Email:    s.clean(req.Email),
		Phone:    s.clean(req.Phone),
		City:     s.clean(req.City),
		Notes:    s.clean(req.Notes),
		Active:   true,
	}
	if req.Active != nil {
		c.Active = *req.Active
	}
	return c
}

func (s *server) handleCustomersList(w http.ResponseWriter, r *http.Request) {
	customers, err := s.store.ListCustomers(r.Context(), queryParam(r, "q"), queryParam(r, "include_inactive") == "true")
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *server) handleCustomersCreate(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	customer, err := s.store.CreateCustomer(r.Context(), s.customerFrom(req))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (s *server) handleCustomersGet(w http.ResponseWriter, r *http.Request) {
	customer, err := s.store.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (s *server) handleCustomersUpdate(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	customer, err := s.store.UpdateCustomer(r.Context(), chi.URLParam(r, "id"), s.customerFrom(req))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (s *server) handleCustomersDeactivate(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeactivateCustomer(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type productRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Category    string          `json:"category" validate:"max=100"`
	Unit        string          `json:"unit" validate:"max=20"`
	BasePrice   decimal.Decimal `json:"base_price" validate:"gte=0"`
	Description string          `json:"description" validate:"max=2000"`
	Active      *bool           `json:"active"`
}

func (s *server) productFrom(req productRequest) store.Product {
	p := store.Product{
		Name:        s.clean(req.Name),
		Category:    s.clean(req.Category),
		Unit:        s.clean(req.Unit),
		BasePrice:   req.BasePrice,
		Description: s.clean(req.Description),
		Active:      true,
	}
	if p.Unit == "" {
		p.Unit = "un"
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	return p
}

func (s *server) handleProductsList(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListProducts(r.Context(), queryParam(r, "category"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *server) handleProductsCreate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	product, err := s.store.CreateProduct(r.Context(), s.productFrom(req))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (s *server) handleProductsGet(w http.ResponseWriter, r *http.Request) {
	product, err := s.store.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *server) handleProductsUpdate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	product, err := s.store.UpdateProduct(r.Context(), chi.URLParam(r, "id"), s.productFrom(req))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

type materialRequest struct {
	Name          string          `json:"name" validate:"required,max=200"`
	Unit          string          `json:"unit" validate:"max=20"`
	UnitPrice     decimal.Decimal `json:"unit_price" validate:"gt=0"`
	StockQuantity decimal.Decimal `json:"stock_quantity" validate:"gte=0"`
	MinStock      decimal.Decimal `json:"min_stock" validate:"gte=0"`
	WastePercent  decimal.Decimal `json:"waste_percent" validate:"gte=0,lte=100"`
	Active        *bool           `json:"active"`
}

func (s *server) materialFrom(req materialRequest) store.Material {
	m := store.Material{
		Name:          s.clean(req.Name),
		Unit:          s.clean(req.Unit),
		UnitPrice:     req.UnitPrice,
		StockQuantity: req.StockQuantity,
		MinStock:      req.MinStock,
		WastePercent:  req.WastePercent,
		Active:        true,
	}
	if m.Unit == "" {
		m.Unit = "un"
	}
	if req.Active != nil {
		m.Active = *req.Active
	}
	return m
}

func (s *server) handleMaterialsList(w http.ResponseWriter, r *http.Request) {
	materials, err := s.store.ListMaterials(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

func (s *server) handleMaterialsLowStock(w http.ResponseWriter, r *http.Request) {
	materials, err := s.store.ListLowStock(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

func (s *server) handleMaterialsCreate(w http.ResponseWriter, r *http.Request) {
	var req materialRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	material, err := s.store.CreateMaterial(r.Context(), s.materialFrom(req))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, material)
}

func (s *server) handleMaterialsGet(w http.ResponseWriter, r *http.Request) {
	material, err := s.store.GetMaterial(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, material)
}

func (s *server) handleMaterialsUpdate(w http.ResponseWriter, r *http.Request) {
	var req materialRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	material, err := s.store.UpdateMaterial(r.Context(), chi.URLParam(r, "id"), s.materialFrom(req))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, material)
}

type movementRequest struct {
	Kind     store.MovementKind `json:"kind" validate:"required,oneof=in out adjust"`
	Quantity decimal.Decimal    `json:"quantity" validate:"gte=0"`
	Reason   string             `json:"reason" validate:"max=500"`
}

func (s *server) handleMovementsCreate(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	movement, err := s.store.RecordMovement(r.Context(), chi.URLParam(r, "id"), req.Kind, req.Quantity, s.clean(req.Reason))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, movement)
}

func (s *server) handleMovementsList(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetMaterial(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	movements, err := s.store.ListMovements(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, movements)
}

type finishingRequest struct {
	Name      string          `json:"name" validate:"required,max=200"`
	CostPerM2 decimal.Decimal `json:"cost_per_m2" validate:"gte=0"`
	FlatCost  decimal.Decimal `json:"flat_cost" validate:"gte=0"`
	Minutes   decimal.Decimal `json:"minutes" validate:"gte=0"`
	Active    *bool           `json:"active"`
}

func (s *server) finishingFrom(req finishingRequest) store.Finishing {
	f := store.Finishing{
		Name:      s.clean(req.Name),
		CostPerM2: req.CostPerM2,
		FlatCost:  req.FlatCost,
		Minutes:   req.Minutes,
		Active:    true,
	}
	if req.Active != nil {
		f.Active = *req.Active
	}
	return f
}

func (s *server) handleFinishingsList(w http.ResponseWriter, r *http.Request) {
	finishings, err := s.store.ListFinishings(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, finishings)
}

func (s *server) handleFinishingsCreate(w http.ResponseWriter, r *http.Request) {
	var req finishingRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	finishing, err := s.store.CreateFinishing(r.Context(), s.finishingFrom(req))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, finishing)
}

func (s *server) handleFinishingsGet(w http.ResponseWriter, r *http.Request) {
	finishing, err := s.store.GetFinishing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, finishing)
}

func (s *server) handleFinishingsUpdate(w http.ResponseWriter, r *http.Request) {
	var req finishingRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	finishing, err := s.store.UpdateFinishing(r.Context(), chi.URLParam(r, "id"), s.finishingFrom(req))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, finishing)
}
