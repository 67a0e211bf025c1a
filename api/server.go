// Package api provides the HTTP REST API server for creditplan.
//
// It exposes endpoints to resolve product assumptions, run portfolio
// projections, fetch cached results and reports, manage configuration and
// stream projection progress over WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fracarlesi/piano-excel-sub003/internal/config"
	"github.com/fracarlesi/piano-excel-sub003/internal/infra"
	"github.com/fracarlesi/piano-excel-sub003/internal/portfolio"
	"github.com/fracarlesi/piano-excel-sub003/internal/product"
	"github.com/fracarlesi/piano-excel-sub003/internal/refrate"
	"github.com/fracarlesi/piano-excel-sub003/internal/report"
)

// Version is reported by the health endpoint; set at build time.
var Version = "dev"

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	logger  *slog.Logger
	engine  *portfolio.Engine
	results *infra.Cache[*portfolio.Result]
	limiter *infra.RateLimiter // nil: unlimited
	wsHub   *WSHub
	started time.Time

	mu         sync.RWMutex // guards cfg, rates and configPath
	cfg        *config.Config
	rates      refrate.Source
	configPath string
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rates, err := refrate.New(cfg.Rates)
	if err != nil {
		return nil, fmt.Errorf("rate source setup failed: %w", err)
	}

	hub := NewWSHub()
	srv := &Server{
		logger:     logger,
		results:    infra.NewCache[*portfolio.Result](time.Duration(cfg.Engine.CacheTTL) * time.Second),
		wsHub:      hub,
		started:    time.Now(),
		cfg:        cfg,
		rates:      rates,
		configPath: config.ConfigFilePath(),
	}
	srv.engine = portfolio.NewEngine(
		portfolio.Config{Workers: cfg.Engine.Workers},
		portfolio.Observers{portfolio.NewLogObserver(logger), hubObserver{hub}},
	)
	if cfg.API.RateLimit > 0 {
		srv.limiter = infra.NewRateLimiter(cfg.API.RateLimit, time.Minute/time.Duration(cfg.API.RateLimit))
	}

	srv.router = srv.buildRouter()
	return srv, nil
}

// SetConfigPath sets where PUT /api/v1/config persists the configuration.
func (s *Server) SetConfigPath(path string) {
	s.mu.Lock()
	s.configPath = path
	s.mu.Unlock()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the HTTP server with graceful shutdown on SIGINT or
// SIGTERM.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan struct{})
	go s.wsHub.Run(stop)
	go s.evictLoop(stop)
	defer close(stop)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-done:
	}
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}

// evictLoop drops expired projections once a minute.
func (s *Server) evictLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := s.results.Cleanup(); n > 0 {
				s.logger.Debug("evicted projections", "count", n)
			}
		}
	}
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Market assumptions
		r.Get("/rates", s.handleRates)

		// Products
		r.Get("/products/defaults", s.handleProductDefaults)
		r.Post("/products/resolve", s.handleResolveProducts)

		// Projections
		r.Post("/projections", s.handleCreateProjection)
		r.Get("/projections", s.handleListProjections)
		r.Get("/projections/{id}", s.handleGetProjection)
		r.Delete("/projections/{id}", s.handleDeleteProjection)
		r.Get("/projections/{id}/report", s.handleProjectionReport)
		r.Get("/projections/{id}/products/{product}", s.handleProjectionProduct)

		// Configuration
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handleUpdateConfig)
		r.Get("/config/settings", s.handleGetSettings)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ProjectionRequest is the body for POST /api/v1/projections.
type ProjectionRequest struct {
	RunID    string           `json:"run_id,omitempty"`
	Products []product.Input  `json:"products"`
	Globals  *product.Globals `json:"globals,omitempty"` // default: the configured rate source
}

// ProjectionInfo lists a cached projection.
type ProjectionInfo struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Products    int       `json:"products"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":      "ok",
			"version":     Version,
			"uptime":      report.FormatDuration(time.Since(s.started)),
			"projections": len(s.results.Keys()),
			"ws_clients":  s.wsHub.ClientCount(),
		},
	})
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	src := s.rateSource()
	g, err := src.Rates(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"source":  src.Name(),
			"globals": g,
		},
	})
}

func (s *Server) handleProductDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: product.Defaults()})
}

func (s *Server) handleResolveProducts(w http.ResponseWriter, r *http.Request) {
	var inputs []product.Input
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cfgs, err := product.ResolveAll(inputs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	views := make([]product.ConfigView, len(cfgs))
	for i, c := range cfgs {
		views[i] = product.View(c)
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: views})
}

func (s *Server) handleCreateProjection(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "projection rate limit exceeded")
		return
	}

	var req ProjectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Products) == 0 {
		writeError(w, http.StatusBadRequest, "products are required")
		return
	}
	cfgs, err := product.ResolveAll(req.Products)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var g product.Globals
	if req.Globals != nil {
		g = *req.Globals
	} else if g, err = s.rateSource().Rates(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "rates unavailable: "+err.Error())
		return
	}

	res, err := s.engine.Run(r.Context(), req.RunID, cfgs, g)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	s.results.Set(res.RunID, res)

	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: res.WithoutVintages()})
}

func (s *Server) handleListProjections(w http.ResponseWriter, r *http.Request) {
	infos := make([]ProjectionInfo, 0)
	for _, id := range s.results.Keys() {
		if res, ok := s.results.Get(id); ok {
			infos = append(infos, ProjectionInfo{RunID: id, GeneratedAt: res.GeneratedAt, Products: len(res.Products)})
		}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: infos})
}

func (s *Server) handleGetProjection(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lookup(w, r)
	if !ok {
		return
	}
	data := res.WithoutVintages()
	if r.URL.Query().Get("vintages") == "true" {
		data = res
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func (s *Server) handleDeleteProjection(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.lookup(w, r); !ok {
		return
	}
	s.results.Invalidate(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, APIResponse{Success: true})
}

func (s *Server) handleProjectionProduct(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lookup(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "product")
	p, ok := res.Product(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("product %q not in projection", id))
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: p})
}

func (s *Server) handleProjectionReport(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lookup(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	format, err := report.ParseFormat(q.Get("format"))
	if err != nil || format == report.FormatPDF {
		writeError(w, http.StatusBadRequest, "format must be text, csv or html")
		return
	}

	cfg := report.DefaultConfig()
	cfg.Format = format
	cfg.StartYear = s.config().Engine.StartYear
	cfg.Quarterly = q.Get("quarterly") == "true"
	cfg.Products = q.Get("products") == "true"

	switch format {
	case report.FormatHTML:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	case report.FormatCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, res.RunID))
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	if err := report.Render(w, res, cfg); err != nil {
		s.logger.Error("render report", "run_id", res.RunID, "error", err)
	}
}

// ============================================================
// Helpers
// ============================================================

func (s *Server) config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Server) rateSource() refrate.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rates
}

// lookup fetches the projection named by the {id} URL parameter, writing a
// 404 when it is unknown or expired.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*portfolio.Result, bool) {
	id := chi.URLParam(r, "id")
	res, ok := s.results.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("projection %q not found", id))
		return nil, false
	}
	return res, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
