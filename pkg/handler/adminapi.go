// Copyright 2024-2026 Aiku AI

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// maxReloadBodySize is the maximum allowed request body for keyword reload (1 MB).
const maxReloadBodySize = 1 << 20

// AdminRouter returns the routes of the admin API.
func (h *Handler) AdminRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Route("/api", func(r chi.Router) {
		r.Post("/reload-keywords", h.HandleReloadKeywords)
	})
	return r
}

// StartAdminAPI serves the admin API on addr until ctx is done. An empty
// addr falls back to the configured admin_api_addr; if that is empty too,
// nothing is started and nil is returned.
func (h *Handler) StartAdminAPI(ctx context.Context, addr string) *http.Server {
	if addr == "" {
		addr = h.cfg.AdminAPIAddr
	}
	if addr == "" {
		return nil
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      h.AdminRouter(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		h.log.Info().Str("addr", addr).Msg("Starting admin API")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.Error().Err(err).Msg("Admin API error")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	return server
}

// HandleReloadKeywords is an HTTP handler for POST /api/reload-keywords.
// It accepts an optional JSON list of keywords; if the body is empty or
// absent, the keywords are re-read from the notification configuration.
func (h *Handler) HandleReloadKeywords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var list []string
	if r.Body != nil && r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxReloadBodySize)
		defer r.Body.Close()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &list); err != nil {
				http.Error(w, "invalid JSON", http.StatusBadRequest)
				return
			}
			if list == nil {
				list = []string{}
			}
		}
	}

	source := "body"
	if list == nil {
		source = "config"
	}
	h.log.Info().
		Str("remote_addr", r.RemoteAddr).
		Str("source", source).
		Msg("Keyword reload requested")

	count, err := h.ReloadKeywords(list)
	if err != nil {
		h.log.Error().Err(err).Msg("Keyword reload failed")
		http.Error(w, "failed to reload keywords", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]int{"count": count}); err != nil {
		h.log.Warn().Err(err).Msg("Failed to write reload response")
	}
}
