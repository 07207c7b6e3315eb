package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/orcafacil/internal/store"
)

const dateLayout = "2006-01-02"

type saleStatusRequest struct {
	Status store.SaleStatus `json:"status" validate:"required,oneof=paid cancelled"`
}

func (s *server) handleSalesList(w http.ResponseWriter, r *http.Request) {
	status := store.SaleStatus(queryParam(r, "status"))
	switch status {
	case "", store.SalePending, store.SalePaid, store.SaleCancelled:
	default:
		handleError(w, r, fmt.Errorf("%w: status %q desconhecido", errBadRequest, status))
		return
	}

	sales, err := s.store.ListSales(r.Context(), status)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (s *server) handleSalesGet(w http.ResponseWriter, r *http.Request) {
	sale, err := s.store.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (s *server) handleSaleStatus(w http.ResponseWriter, r *http.Request) {
	var req saleStatusRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	sale, err := s.store.UpdateSaleStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (s *server) handleProductionList(w http.ResponseWriter, r *http.Request) {
	stage := store.ProductionStage(queryParam(r, "stage"))
	if stage != "" && !knownStage(stage) {
		handleError(w, r, fmt.Errorf("%w: etapa %q desconhecida", errBadRequest, stage))
		return
	}

	orders, err := s.store.ListProduction(r.Context(), stage)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func knownStage(stage store.ProductionStage) bool {
	for _, known := range store.ProductionStages {
		if known == stage {
			return true
		}
	}
	return false
}

func (s *server) handleProductionAdvance(w http.ResponseWriter, r *http.Request) {
	order, err := s.store.AdvanceProduction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// parsePeriod reads from/to as calendar days; to includes the whole day.
func parsePeriod(r *http.Request) (store.Period, error) {
	var p store.Period
	if raw := queryParam(r, "from"); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			return p, fmt.Errorf("%w: from deve estar no formato AAAA-MM-DD", errBadRequest)
		}
		p.From = &from
	}
	if raw := queryParam(r, "to"); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			return p, fmt.Errorf("%w: to deve estar no formato AAAA-MM-DD", errBadRequest)
		}
		to = to.AddDate(0, 0, 1)
		p.To = &to
	}
	if p.From != nil && p.To != nil && !p.From.Before(*p.To) {
		return p, fmt.Errorf("%w: from deve ser anterior a to", errBadRequest)
	}
	return p, nil
}

func (s *server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	summary, err := s.store.Summary(r.Context(), period)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
