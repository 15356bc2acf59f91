package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"vaultledger/internal/engine"
	"vaultledger/internal/observability"
	"vaultledger/internal/query"
)

// Server exposes the vault ledger over HTTP/JSON.
type Server struct {
	engine  *engine.Engine
	queries *query.Service
	health  *observability.HealthChecker
	log     zerolog.Logger
	mux     *http.ServeMux
	server  *http.Server
}

func NewServer(addr string, eng *engine.Engine, queries *query.Service, health *observability.HealthChecker) *Server {
	mux := http.NewServeMux()

	s := &Server{
		engine:  eng,
		queries: queries,
		health:  health,
		log:     observability.NewLogger("server"),
		mux:     mux,
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /v1/vault/init", s.handleInitVault)
	s.mux.HandleFunc("POST /v1/users/init", s.handleInitUser)
	s.mux.HandleFunc("POST /v1/custody/init", s.handleInitCustody)

	s.mux.HandleFunc("POST /v1/deposit", s.handleDeposit)
	s.mux.HandleFunc("POST /v1/withdraw", s.handleWithdraw)
	s.mux.HandleFunc("POST /v1/wrap", s.handleWrap)
	s.mux.HandleFunc("POST /v1/unwrap", s.handleUnwrap)
	s.mux.HandleFunc("POST /v1/swap/base-to-quote", s.handleSwapBaseToQuote)
	s.mux.HandleFunc("POST /v1/swap/quote-to-base", s.handleSwapQuoteToBase)
	s.mux.HandleFunc("POST /v1/swap/venue", s.handleVenueSwap)
	s.mux.HandleFunc("POST /v1/withdraw-quote", s.handleWithdrawQuote)

	s.mux.HandleFunc("POST /v1/admin/wrap", s.handleAdminWrap)
	s.mux.HandleFunc("POST /v1/admin/swap/base-to-quote", s.handleAdminSwapBaseToQuote)
	s.mux.HandleFunc("POST /v1/admin/swap/quote-to-base", s.handleAdminSwapQuoteToBase)
	s.mux.HandleFunc("POST /v1/admin/withdraw-quote", s.handleAdminWithdrawQuote)

	s.mux.HandleFunc("GET /v1/users/{id}/balance", s.handleUserBalance)
	s.mux.HandleFunc("GET /v1/users/{id}/tokens", s.handleTokenBalances)
	s.mux.HandleFunc("GET /v1/users/{id}/history", s.handleHistory)
	s.mux.HandleFunc("GET /v1/vault/stats", s.handleVaultStats)
	s.mux.HandleFunc("GET /v1/swaps/stats", s.handleSwapStats)

	s.mux.HandleFunc("GET /healthz", s.health.LivenessHandler)
	s.mux.HandleFunc("GET /readyz", s.health.ReadinessHandler)
}

// Handler exposes the mux, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("http server listening")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
