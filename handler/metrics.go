package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stevemurr/simple-pos/storage"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	sales    *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer, s *storage.Storage) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pos_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		sales: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_sales_total",
				Help: "Completed sales by payment method",
			},
			[]string{"method"},
		),
	}
	used := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "pos_storage_used_bytes",
			Help: "Serialized size of the live document",
		},
		func() float64 {
			info, err := s.StorageInfo()
			if err != nil {
				return 0
			}
			return float64(info.Used)
		},
	)
	reg.MustRegister(m.requests, m.duration, m.sales, used)
	return m
}

func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := "undefined"
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		m.requests.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		m.duration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	})
}
