package proxy

import (
	"context"
	"time"

	"github.com/go-logr/logr"
)

// Refresher periodically closes idle upstream connections. Targets behind
// a CDN resolve to rotating edge addresses, and a kept-alive connection
// would otherwise stay pinned to whichever edge it first reached.
type Refresher struct {
	logr.Logger

	Interval time.Duration
	Conns    interface{ CloseIdleConnections() }
}

// Start closes idle connections on every tick until the context is
// canceled.
func (r *Refresher) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Conns.CloseIdleConnections()
			r.V(2).Info("closed idle upstream connections")
		}
	}
}
