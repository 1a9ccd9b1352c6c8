// Package server exposes the simulator over a JSON API plus a WebSocket
// price stream.
package server

import (
	"context"
	"fmt"
	"net/http"

	"perfect-traders-go/internal/config"
	"perfect-traders-go/internal/identity"
	"perfect-traders-go/internal/ledger"
	"perfect-traders-go/internal/market"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server is the HTTP front for the trading simulator.
type Server struct {
	server  *http.Server
	handler *APIHandler
	hub     *PriceHub
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewServer creates a Server wired to the given stores.
func NewServer(cfg *config.Server, users *identity.Store, registry *market.Registry, book *ledger.Ledger, logger *zap.Logger) *Server {
	log := logger.Named("api-server")
	hub := NewPriceHub(registry, log)
	handler := NewAPIHandler(users, registry, book, log)

	s := &Server{
		server:  &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port)},
		handler: handler,
		hub:     hub,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		logger:  log,
	}
	s.server.Handler = s.routes()
	return s
}

// Hub returns the price stream fan-out, so the simulator can push ticks.
func (s *Server) Hub() *PriceHub {
	return s.hub
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/signup", s.handler.Signup)
	mux.HandleFunc("POST /api/login", s.handler.Login)
	mux.HandleFunc("POST /api/logout", s.handler.Logout)
	mux.HandleFunc("GET /api/session", s.handler.Session)
	mux.HandleFunc("GET /api/symbols", s.handler.Symbols)
	mux.HandleFunc("POST /api/trades", s.handler.PlaceTrade)
	mux.HandleFunc("GET /api/trades", s.handler.Trades)
	mux.HandleFunc("GET /api/account", s.handler.Account)
	mux.HandleFunc("POST /api/admin/symbols", s.handler.AddSymbol)
	mux.HandleFunc("PUT /api/admin/symbols/{name}/price", s.handler.SetPrice)
	mux.HandleFunc("GET /api/admin/users", s.handler.Users)
	mux.HandleFunc("GET /api/health", s.handler.Health)
	mux.HandleFunc("GET /ws/prices", s.hub.Serve)

	return s.rateLimit(mux)
}

// rateLimit rejects requests with 429 once the shared token bucket is empty.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server and closes stream subscribers.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	s.hub.Close()
	return s.server.Shutdown(ctx)
}
