// internal/server/server.go
//
// HTTP server helper with timeouts and graceful shutdown.
//
// Defaults:
//
//   • ReadHeaderTimeout  – abort slow-loris headers (5 s)
//   • ReadTimeout        – whole request including body (10 s)
//   • WriteTimeout       – cap total response time (30 s, the scheduler tick
//                          runs inside the request)
//   • IdleTimeout        – close keep-alives on idle clients (60 s)
//
// Run blocks until ctx is cancelled, then drains in-flight requests for up
// to ShutdownGrace.

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ShutdownGrace bounds the drain after ctx is cancelled.
const ShutdownGrace = 15 * time.Second

// New constructs an *http.Server with the defaults above.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Run serves srv until ctx is done or ListenAndServe fails.
func Run(ctx context.Context, srv *http.Server, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("http server shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	return <-errCh
}
