// Package server runs the long-lived parts of vmftool, such as the ingest
// watcher and the metrics listener, with signal-driven graceful shutdown.
package server

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service is a long-running component.
type Service interface {
	// Start blocks until ctx is cancelled, Stop is called, or the service fails.
	Start(ctx context.Context) error
	// Stop makes a running Start return. It must be safe to call more than once.
	Stop()
}

type entry struct {
	name string
	svc  Service
}

// Lifecycle starts a set of services together and stops them in reverse
// registration order.
type Lifecycle struct {
	logger *zap.Logger

	mu      sync.Mutex
	entries []entry
}

// NewLifecycle creates an empty Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Add registers svc under name. Services added after Run has begun are ignored
// by that Run.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{name: name, svc: svc})
}

// Run starts every service and blocks until SIGINT or SIGTERM arrives, ctx is
// cancelled, a service fails, or every service has returned on its own.
//
// Postcondition: Every service has been stopped and its Start has returned.
// The error is the first service failure, or nil for a signal or cancellation.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	l.mu.Lock()
	entries := append([]entry(nil), l.entries...)
	l.mu.Unlock()

	// gctx is also cancelled once Wait returns, so the stopper below always runs.
	g, gctx := errgroup.WithContext(ctx)
	for _, e := range entries {
		g.Go(func() error {
			l.logger.Info("starting service", zap.String("service", e.name))
			began := time.Now()
			if err := e.svc.Start(gctx); err != nil {
				l.logger.Error("service failed",
					zap.String("service", e.name),
					zap.Duration("uptime", time.Since(began)),
					zap.Error(err),
				)
				return fmt.Errorf("service %s: %w", e.name, err)
			}
			l.logger.Info("service exited", zap.String("service", e.name))
			return nil
		})
	}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-gctx.Done()
		l.logger.Info("shutting down", zap.NamedError("cause", context.Cause(gctx)))
		l.stopAll(entries)
	}()

	err := g.Wait()
	<-stopped
	l.logger.Info("shutdown complete",
		zap.Int("services", len(entries)),
		zap.Duration("uptime", time.Since(start)),
	)
	return err
}

func (l *Lifecycle) stopAll(entries []entry) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		began := time.Now()
		e.svc.Stop()
		l.logger.Debug("service stopped",
			zap.String("service", e.name),
			zap.Duration("elapsed", time.Since(began)),
		)
	}
}
