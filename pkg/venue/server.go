package venue

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/persistence"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/requestPath"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/verifier"
	"go.uber.org/zap"
)

/*
Mock venue

A local stand-in for the exchange's private API-key endpoints:

  GET    /v3/api-keys                  list the caller's keys
  POST   /v3/api-keys  {"apiKey":..}   register a key
  DELETE /v3/api-keys?apiKey=..        delete a key
  GET    /health                       persistence health

Every /v3 request must carry DYDX-SIGNATURE, DYDX-TIMESTAMP and
DYDX-ETHEREUM-ADDRESS. The signer recovered from the signature owns the keys
the request reads or writes.
*/

type Config struct {
	Port    int
	ChainId uint64

	// Freshness window for DYDX-TIMESTAMP. Zero uses the verifier defaults.
	MaxAge    time.Duration
	MaxFuture time.Duration
}

// Server handles HTTP requests for the mock venue
type Server struct {
	persistence persistence.IApiKeyPersistence
	verifier    *verifier.Verifier
	httpServer  *http.Server
	now         func() time.Time
	logger      *zap.Logger
}

func NewServer(cfg *Config, p persistence.IApiKeyPersistence, logger *zap.Logger) *Server {
	s := &Server{
		persistence: p,
		verifier: verifier.NewVerifier(&verifier.Config{
			ChainId:   cfg.ChainId,
			MaxAge:    cfg.MaxAge,
			MaxFuture: cfg.MaxFuture,
		}, logger),
		now:    time.Now,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.Handle(requestPath.Versioned("api-keys"), s.verifier.Middleware(http.HandlerFunc(s.handleApiKeys)))
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// SetNow replaces the clock used for timestamps and signature freshness.
func (s *Server) SetNow(now func() time.Time) {
	s.now = now
	s.verifier.SetNow(now)
}

// Start serves in the background until Stop is called.
func (s *Server) Start() error {
	go func() {
		s.logger.Sugar().Infow("Starting HTTP server", "port", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Sugar().Errorw("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}
