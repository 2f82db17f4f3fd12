// Package api provides the HTTP API for observing and steering the diplomatic world.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/talgya/concord/internal/engine"
	"github.com/talgya/concord/internal/persistence"
	"github.com/talgya/concord/internal/realm"
)

// Server serves the world state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB // optional; enables snapshots and full event history
	AdminKey string          // Bearer token for POST endpoints. Empty = POST disabled.

	router  chi.Router
	limiter *RateLimiter
	streams int32 // open websocket streams, atomic
}

// New builds a server. adminRate caps admin requests per client per minute.
func New(sim *engine.Simulation, eng *engine.Engine, db *persistence.DB, adminKey string, adminRate int) *Server {
	s := &Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		AdminKey: adminKey,
		limiter:  NewRateLimiter(adminRate, time.Minute),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints.
		r.Get("/status", s.handleStatus)
		r.Get("/realms", s.handleRealms)
		r.Get("/realms/{id}", s.handleRealm)
		r.Get("/realms/{id}/relations/{other}", s.handleRelation)
		r.Get("/realms/{id}/influence", s.handleInfluence)
		r.Get("/realms/{id}/memory/{other}", s.handleMemory)
		r.Get("/realms/{id}/decisions", s.handleDecisions)
		r.Get("/conflicts", s.handleConflicts)
		r.Get("/events", s.handleEvents)
		r.Get("/speed", s.handleSpeed)
		r.Get("/stream", s.handleStream)

		// Admin endpoints.
		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Use(RateLimitMiddleware(s.limiter))
			r.Post("/speed", s.handleSetSpeed)
			r.Post("/actions", s.handleAction)
			r.Post("/inbound", s.handleInbound)
			r.Post("/snapshot", s.handleSnapshot)
		})
	})

	s.router = r
}

// ListenAndServe serves on port until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP API starting", "addr", srv.Addr, "admin_auth", s.AdminKey != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve api: %w", err)
	}
	return nil
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CONCORD_CORS_ORIGINS to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CONCORD_CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires the admin bearer token.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, http.StatusForbidden, "admin endpoints disabled (no CONCORD_ADMIN_KEY set)")
			return
		}
		if !s.checkBearerToken(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// realmParam resolves a path parameter to a known realm, writing the error response
// when it cannot.
func (s *Server) realmParam(w http.ResponseWriter, r *http.Request, name string) (realm.ID, bool) {
	id, err := realm.ParseID(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid realm id")
		return realm.None, false
	}
	if !s.Sim.Diplomacy.HasRealm(id) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("realm %d not found", id))
		return realm.None, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
