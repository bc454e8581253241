// Package web provides the HTTP front door: one convert endpoint taking
// a multipart upload (export JSON plus photos) and returning the filled
// PDF, plus version and health endpoints.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hhpr/odot-converter/internal/config"
	"github.com/hhpr/odot-converter/internal/convert"
)

const (
	readTimeout    = 30 * time.Second
	writeTimeout   = 120 * time.Second
	requestTimeout = 90 * time.Second
	maxHeaderBytes = 1 << 20
)

// Server is the HTTP converter server.
type Server struct {
	httpServer *http.Server
}

// New creates the HTTP server around the conversion service.
func New(cfg *config.Config, svc *convert.Service) *Server {
	convertHandler := NewConvert(svc, cfg.MaxUploadSize)

	mux := http.NewServeMux()
	mux.Handle("POST /convert", convertHandler)
	mux.Handle("GET /version", VersionHandler(cfg.ServerName, cfg.Version, svc.CatalogVersion()))
	mux.Handle("GET /healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	return &Server{
		httpServer: &http.Server{
			Addr:           cfg.Address(),
			ReadTimeout:    readTimeout,
			WriteTimeout:   writeTimeout,
			Handler:        http.TimeoutHandler(mux, requestTimeout, ""),
			MaxHeaderBytes: maxHeaderBytes,
		},
	}
}

// Run starts the server and blocks until ctx is cancelled or the
// listener fails, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("Starting server", "addr", s.httpServer.Addr)

	serverErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Graceful shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("Server shut down gracefully")
		return nil
	case err := <-serverErr:
		if err != nil {
			slog.Error("Server encountered error", "err", err)
		}
		return err
	}
}
