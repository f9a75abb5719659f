package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"dbxmcp/internal/domain"
)

const shutdownTimeout = 5 * time.Second

type ServerOptions struct {
	Addr   string
	Logger *zap.Logger
}

// Run serves the handler until ctx is cancelled, then drains in-flight
// requests and shuts down.
func Run(ctx context.Context, handler http.Handler, opts ServerOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	addr := opts.Addr
	if addr == "" {
		addr = domain.DefaultListenAddress
	}

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("gateway server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("gateway shutdown error", zap.Error(err))
			return err
		}
		logger.Info("gateway stopped")
		return nil
	}
}
