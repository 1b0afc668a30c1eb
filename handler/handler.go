// Package handler provides the local JSON API through which a view layer
// reaches the point-of-sale services.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/stevemurr/simple-pos/customer"
	"github.com/stevemurr/simple-pos/inventory"
	"github.com/stevemurr/simple-pos/model"
	"github.com/stevemurr/simple-pos/sale"
	"github.com/stevemurr/simple-pos/storage"
	"github.com/stevemurr/simple-pos/store"
)

// Handler holds the server dependencies and registers routes.
type Handler struct {
	storage   *storage.Storage
	inventory *inventory.Service
	customers *customer.Service
	checkout  *sale.Checkout

	log      log.FieldLogger
	loc      *time.Location
	cascade  bool
	origins  []string
	registry *prometheus.Registry
	metrics  *metrics
	router   *mux.Router
	wrapped  http.Handler
}

type Option func(*Handler)

func WithLogger(l log.FieldLogger) Option {
	return func(h *Handler) { h.log = l }
}

// WithLocation sets the time zone report date ranges are read in.
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) { h.loc = loc }
}

// WithCascade enables stock and customer updates on checkout.
func WithCascade(on bool) Option {
	return func(h *Handler) { h.cascade = on }
}

// WithRegistry registers metrics with reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(h *Handler) { h.registry = reg }
}

// New creates a Handler over s and wires up all routes.
func New(s *storage.Storage, opts ...Option) *Handler {
	h := &Handler{
		storage: s,
		log:     log.StandardLogger(),
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.registry == nil {
		h.registry = prometheus.NewRegistry()
	}
	h.inventory = inventory.New(s, h.log)
	h.customers = customer.New(s, h.log)
	h.checkout = sale.NewCheckout(s, sale.WithLogger(h.log), sale.WithCascade(h.cascade))
	h.metrics = newMetrics(h.registry, s)

	h.router = mux.NewRouter()
	h.routes()
	h.router.Use(h.metrics.middleware)
	h.wrapped = h.logMiddleware(h.corsMiddleware(h.router))
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.wrapped.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	r := h.router
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/settings", h.getSettings).Methods(http.MethodGet)
	r.HandleFunc("/settings", h.putSettings).Methods(http.MethodPut)

	// static segments are registered before {id}
	r.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	r.HandleFunc("/products", h.createProduct).Methods(http.MethodPost)
	r.HandleFunc("/products/low-stock", h.lowStock).Methods(http.MethodGet)
	r.HandleFunc("/products/summary", h.productSummary).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", h.getProduct).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", h.updateProduct).Methods(http.MethodPut)
	r.HandleFunc("/products/{id}", h.deleteProduct).Methods(http.MethodDelete)
	r.HandleFunc("/products/{id}/adjust", h.adjustStock).Methods(http.MethodPost)

	r.HandleFunc("/customers", h.listCustomers).Methods(http.MethodGet)
	r.HandleFunc("/customers", h.createCustomer).Methods(http.MethodPost)
	r.HandleFunc("/customers/summary", h.customerSummary).Methods(http.MethodGet)
	r.HandleFunc("/customers/{id}", h.getCustomer).Methods(http.MethodGet)
	r.HandleFunc("/customers/{id}", h.updateCustomer).Methods(http.MethodPut)
	r.HandleFunc("/customers/{id}", h.deleteCustomer).Methods(http.MethodDelete)
	r.HandleFunc("/customers/{id}/transactions", h.customerTransactions).Methods(http.MethodGet)

	r.HandleFunc("/transactions", h.listTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{id}/receipt", h.receipt).Methods(http.MethodGet)
	r.HandleFunc("/quote", h.quote).Methods(http.MethodPost)
	r.HandleFunc("/checkout", h.completeSale).Methods(http.MethodPost)

	r.HandleFunc("/reports", h.getReport).Methods(http.MethodGet)
	r.HandleFunc("/reports/export", h.exportReport).Methods(http.MethodGet)

	r.HandleFunc("/data/export", h.exportData).Methods(http.MethodGet)
	r.HandleFunc("/data/import", h.importData).Methods(http.MethodPost)
	r.HandleFunc("/data/backup", h.backup).Methods(http.MethodPost)
	r.HandleFunc("/data/restore", h.restore).Methods(http.MethodPost)
	r.HandleFunc("/data/info", h.storageInfo).Methods(http.MethodGet)
	r.HandleFunc("/data/sync", h.sync).Methods(http.MethodPost)
	r.HandleFunc("/data", h.clearData).Methods(http.MethodDelete)
}

// ---------- helpers ----------

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Error("write response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"detail": msg})
}

// fail maps a service error to a status code and writes it.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).Error("request failed")
	}
	h.writeError(w, status, err.Error())
}

var errBadBody = errors.New("invalid JSON")

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(errBadBody, err.Error())
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, inventory.ErrProductNotFound),
		errors.Is(err, customer.ErrCustomerNotFound),
		errors.Is(err, storage.ErrNoBackup),
		errors.Is(err, errTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrDuplicateSKU),
		errors.Is(err, storage.ErrCorruptDocument):
		return http.StatusConflict
	case errors.Is(err, store.ErrQuotaExceeded):
		return http.StatusInsufficientStorage
	case errors.Is(err, storage.ErrInvalidDocument),
		errors.Is(err, storage.ErrUnknownField),
		errors.Is(err, inventory.ErrInvalidProduct),
		errors.Is(err, inventory.ErrInvalidAdjustment),
		errors.Is(err, inventory.ErrMissingReason),
		errors.Is(err, customer.ErrInvalidCustomer),
		errors.Is(err, sale.ErrEmptyCart),
		errors.Is(err, sale.ErrInvalidQuantity),
		errors.Is(err, sale.ErrInvalidDiscount),
		errors.Is(err, sale.ErrInsufficientTender),
		errors.Is(err, sale.ErrMissingCard),
		errors.Is(err, sale.ErrUnknownPaymentMethod),
		errors.Is(err, sale.ErrUnknownCustomer),
		errors.Is(err, errBadQuery):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL.String(),
			"remoteAddr": r.RemoteAddr,
			"status":     rec.status,
			"duration":   time.Since(start),
		}).Info("handled request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// ---------- status ----------

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"state":  h.storage.State().String(),
	})
}

// ---------- settings ----------

func (h *Handler) getSettings(w http.ResponseWriter, _ *http.Request) {
	settings, err := h.storage.Settings()
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := readJSON(r, &raw); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.storage.SetField(model.FieldSettings, raw); err != nil {
		h.fail(w, err)
		return
	}
	h.getSettings(w, r)
}
