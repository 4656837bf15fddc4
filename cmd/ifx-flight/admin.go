package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hugr-lab/ifx-fdw/conncache"
)

// adminRouter serves health and connection cache endpoints.
func adminRouter(registry *conncache.Registry, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	r.Route("/connections", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, registry.Stats(), logger)
		})
		r.Delete("/{name}", func(w http.ResponseWriter, r *http.Request) {
			name := chi.URLParam(r, "name")
			_, found, err := registry.Remove(name)
			switch {
			case err != nil:
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()}, logger)
			case !found:
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "connection " + name + " is not cached"}, logger)
			default:
				logger.Info("Connection closed via admin API", "connection", name)
				w.WriteHeader(http.StatusNoContent)
			}
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}
