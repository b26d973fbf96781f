package graceful

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/routerpay/router_service/pkg/logger"
)

// Shutdowner is implemented by components that need orderly teardown
type Shutdowner interface {
	Shutdown(timeout time.Duration) error
}

// Closer adapts a plain Close method to Shutdowner
type Closer struct {
	Name  string
	Close func() error
}

// Shutdown implements Shutdowner
func (c Closer) Shutdown(time.Duration) error {
	return c.Close()
}

// ShutdownManager coordinates shutdown of the HTTP server and any
// registered components on SIGINT/SIGTERM.
type ShutdownManager struct {
	server      *http.Server
	shutdowners []Shutdowner
	logger      *logger.Logger
}

// NewShutdownManager creates a shutdown manager for a server
func NewShutdownManager(server *http.Server, logger *logger.Logger) *ShutdownManager {
	return &ShutdownManager{
		server:      server,
		shutdowners: make([]Shutdowner, 0),
		logger:      logger,
	}
}

// Register adds a component to shut down before the server closes
func (sm *ShutdownManager) Register(s Shutdowner) {
	sm.shutdowners = append(sm.shutdowners, s)
}

// WaitForShutdown blocks until a termination signal, then tears
// everything down with a bounded timeout.
func (sm *ShutdownManager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sm.logger.Info("Shutting down gracefully...")

	timeout := 30 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, s := range sm.shutdowners {
		if err := s.Shutdown(timeout); err != nil {
			sm.logger.Warn("Component shutdown error", "error", err)
		}
	}

	if err := sm.server.Shutdown(ctx); err != nil {
		sm.logger.Error("Server forced shutdown", "error", err)
	}

	sm.logger.Info("Shutdown complete")
}
