package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Simplici0/orcafacil/internal/observability"
	"github.com/Simplici0/orcafacil/internal/pricing"
	"github.com/Simplici0/orcafacil/internal/store"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// apiError is the JSON error envelope every handler answers with.
type apiError struct {
	Code    string
	Message string
	Status  int
	Details map[string]any
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(ctx context.Context, w http.ResponseWriter, e apiError) {
	if e.Status == 0 {
		e.Status = http.StatusInternalServerError
	}
	payload := map[string]any{
		"error":   e.Code,
		"message": e.Message,
		"status":  e.Status,
	}
	if requestID := middleware.GetReqID(ctx); requestID != "" {
		payload["request_id"] = requestID
	}
	if len(e.Details) > 0 {
		payload["details"] = e.Details
	}
	writeJSON(w, e.Status, payload)
}

var conflictCodes = []struct {
	err  error
	code string
}{
	{store.ErrInvalidTransition, "invalid_transition"},
	{store.ErrInsufficientStock, "insufficient_stock"},
	{store.ErrAlreadyConverted, "already_converted"},
	{store.ErrQuoteNotApproved, "quote_not_approved"},
	{store.ErrSaleCancelled, "sale_cancelled"},
	{store.ErrDuplicate, "duplicate_name"},
}

// handleError maps domain errors onto HTTP statuses; anything unknown is
// logged and reported as a 500.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]any, len(fieldErrs))
		for _, fe := range fieldErrs {
			details[fe.Field()] = validationMessage(fe)
		}
		writeError(ctx, w, apiError{Code: "validation_failed", Message: "dados inválidos", Status: http.StatusBadRequest, Details: details})
		return
	}

	var pricingErr *pricing.ValidationError
	if errors.As(err, &pricingErr) {
		writeError(ctx, w, apiError{
			Code:    "invalid_input",
			Message: pricingErr.Error(),
			Status:  http.StatusUnprocessableEntity,
			Details: map[string]any{"field": pricingErr.Field},
		})
		return
	}

	switch {
	case errors.Is(err, errBadRequest):
		writeError(ctx, w, apiError{Code: "bad_request", Message: err.Error(), Status: http.StatusBadRequest})
		return
	case errors.Is(err, store.ErrNotFound):
		writeError(ctx, w, apiError{Code: "not_found", Message: err.Error(), Status: http.StatusNotFound})
		return
	case errors.Is(err, store.ErrInvalidMovement):
		writeError(ctx, w, apiError{Code: "invalid_movement", Message: err.Error(), Status: http.StatusUnprocessableEntity})
		return
	}
	for _, c := range conflictCodes {
		if errors.Is(err, c.err) {
			writeError(ctx, w, apiError{Code: c.code, Message: err.Error(), Status: http.StatusConflict})
			return
		}
	}

	observability.FromContext(ctx).Error("request failed", zap.Error(err))
	writeError(ctx, w, apiError{Code: "internal_error", Message: "erro interno", Status: http.StatusInternalServerError})
}

// decodeJSON reads a single JSON document into dst and validates it.
func (s *server) decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: corpo JSON inválido: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: corpo deve conter um único objeto JSON", errBadRequest)
	}
	return s.validate.Struct(dst)
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " é obrigatório"
	case "email":
		return "formato de e-mail inválido"
	case "len":
		return fmt.Sprintf("%s deve ter exatamente %s caracteres", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s deve ter no máximo %s caracteres", field, fe.Param())
	case "oneof":
		return field + " deve ser um de: " + fe.Param()
	case "gt":
		return fmt.Sprintf("%s deve ser maior que %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s deve ser maior ou igual a %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s deve ser menor ou igual a %s", field, fe.Param())
	default:
		return field + " é inválido"
	}
}

func queryParam(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
