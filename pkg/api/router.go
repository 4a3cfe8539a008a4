// Package api exposes the hive state over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func NewRouter(h *Handler) http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(requestLogger(h.log))

	mux.Get("/health", HealthCheck)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Get("/ws", h.Stream)
	mux.Route("/api", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Get("/snapshot", h.Snapshot)
		r.Get("/history", h.History)
		r.Get("/alerts", h.Alerts)
		r.Get("/rules", h.Rules)
		r.Post("/connect", h.Connect)
		r.Post("/disconnect", h.Disconnect)
	})
	return mux
}

func requestLogger(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"duration": time.Since(start),
				"request":  middleware.GetReqID(r.Context()),
			}).Debugln("request served")
		})
	}
}
