package main

import (
	"html"
	"math"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Simplici0/orcafacil/internal/cache"
	"github.com/Simplici0/orcafacil/internal/observability"
	"github.com/Simplici0/orcafacil/internal/pricing"
	"github.com/Simplici0/orcafacil/internal/store"
)

type server struct {
	store     *store.Store
	cache     cache.Cache
	cacheTTL  time.Duration
	metrics   *observability.Metrics
	logger    *zap.Logger
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

func newServer(st *store.Store, c cache.Cache, cacheTTL time.Duration, metrics *observability.Metrics, logger *zap.Logger) *server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	if c == nil {
		c = cache.NewMemory()
	}
	return &server{
		store:     st,
		cache:     c,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
		logger:    logger,
		validate:  newValidator(),
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

// newValidator reports errors under JSON field names and lets numeric tags
// such as gte and lte apply to decimal amounts.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			// Converting extreme exponents to float is itself slow; NaN fails every numeric tag.
			if !pricing.Representable(d) {
				return math.NaN()
			}
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// clean strips markup from free text typed by users.
func (s *server) clean(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(text)))
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(s.logger))
	r.Use(observability.Recovery(s.logger))
	r.Use(s.metrics.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Get("/settings", s.handleSettingsGet)
	r.Put("/settings", s.handleSettingsUpdate)

	r.Route("/customers", func(r chi.Router) {
		r.Get("/", s.handleCustomersList)
		r.Post("/", s.handleCustomersCreate)
		r.Get("/{id}", s.handleCustomersGet)
		r.Put("/{id}", s.handleCustomersUpdate)
		r.Delete("/{id}", s.handleCustomersDeactivate)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.handleProductsList)
		r.Post("/", s.handleProductsCreate)
		r.Get("/{id}", s.handleProductsGet)
		r.Put("/{id}", s.handleProductsUpdate)
	})

	r.Route("/materials", func(r chi.Router) {
		r.Get("/", s.handleMaterialsList)
		r.Post("/", s.handleMaterialsCreate)
		r.Get("/low-stock", s.handleMaterialsLowStock)
		r.Get("/{id}", s.handleMaterialsGet)
		r.Put("/{id}", s.handleMaterialsUpdate)
		r.Get("/{id}/movements", s.handleMovementsList)
		r.Post("/{id}/movements", s.handleMovementsCreate)
	})

	r.Route("/finishings", func(r chi.Router) {
		r.Get("/", s.handleFinishingsList)
		r.Post("/", s.handleFinishingsCreate)
		r.Get("/{id}", s.handleFinishingsGet)
		r.Put("/{id}", s.handleFinishingsUpdate)
	})

	r.Route("/quotes", func(r chi.Router) {
		r.Post("/calculate", s.handleQuoteCalculate)
		r.Get("/", s.handleQuotesList)
		r.Post("/", s.handleQuotesCreate)
		r.Get("/{id}", s.handleQuoteDetail)
		r.Get("/{id}/text", s.handleQuoteText)
		r.Post("/{id}/status", s.handleQuoteStatus)
		r.Post("/{id}/sale", s.handleQuoteSale)
	})

	r.Route("/sales", func(r chi.Router) {
		r.Get("/", s.handleSalesList)
		r.Get("/{id}", s.handleSalesGet)
		r.Post("/{id}/status", s.handleSaleStatus)
	})

	r.Route("/production", func(r chi.Router) {
		r.Get("/", s.handleProductionList)
		r.Post("/{id}/advance", s.handleProductionAdvance)
	})

	r.Get("/reports/summary", s.handleReportSummary)

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DB().PingContext(r.Context()); err != nil {
		writeError(r.Context(), w, apiError{Code: "unavailable", Message: "banco de dados indisponível", Status: http.StatusServiceUnavailable})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
