package handler

import (
	"net/http"
	"strings"
)

// WithAllowedOrigins enables CORS for the given browser origins. A single
// "*" allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Handler) {
		h.origins = nil
		for _, o := range origins {
			if o = strings.TrimSpace(o); o != "" {
				h.origins = append(h.origins, o)
			}
		}
	}
}

func (h *Handler) corsMiddleware(next http.Handler) http.Handler {
	if len(h.origins) == 0 {
		return next
	}
	allowAll := len(h.origins) == 1 && h.origins[0] == "*"
	allowed := make(map[string]bool, len(h.origins))
	for _, o := range h.origins {
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && allowed[origin]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
