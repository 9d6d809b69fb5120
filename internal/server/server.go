package server

import (
	"context"
	"net/http"
	"time"

	"github.com/merlinthebtcwizard/allowance-app/internal/auth"
	"github.com/merlinthebtcwizard/allowance-app/internal/config"
	"github.com/merlinthebtcwizard/allowance-app/internal/http/handlers"
	"github.com/merlinthebtcwizard/allowance-app/internal/ledger"
	"github.com/merlinthebtcwizard/allowance-app/internal/middleware"
	"github.com/merlinthebtcwizard/allowance-app/internal/payments"
	"github.com/merlinthebtcwizard/allowance-app/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server. wake pokes
// the allowance sweep after wallet funding and may be nil.
func New(cfg config.Config, store storage.Store, lgr *ledger.Ledger, issuer payments.CardIssuer, charger payments.Charger, settlement payments.Settlement, wake func()) *Server {
	mux := http.NewServeMux()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	handlers.NewHealthHandler(time.Now()).Register(mux)
	handlers.NewAuthHandler(store, tokens).Register(mux)
	handlers.NewParentHandler(store, issuer, charger, settlement, tokens, wake).Register(mux)
	handlers.NewChildHandler(store, lgr, issuer, tokens).Register(mux)
	handlers.NewTransactionsHandler(store, lgr, tokens).Register(mux)
	handlers.NewWebhookHandler(lgr).Register(mux)

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(mux))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
