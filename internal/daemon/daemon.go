// Package daemon configures and starts the tokenproxyd daemon and its subsystems.
package daemon

import (
	"context"
	"fmt"
	"net"

	"github.com/go-logr/logr"
	"github.com/leg100/surl/v2"
	"github.com/leg100/tokenproxy/internal"
	"github.com/leg100/tokenproxy/internal/http"
	"github.com/leg100/tokenproxy/internal/proxy"
	"golang.org/x/sync/errgroup"
)

type Daemon struct {
	Config
	logr.Logger

	// ListenAddress is the listening address of the daemon's http server,
	// e.g. localhost:8080
	ListenAddress *net.TCPAddr

	proxy *proxy.Handlers
}

// New constructs a new daemon
func New(logger logr.Logger, cfg Config) (*Daemon, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}

	var signer *surl.Signer
	if cfg.Secret != nil {
		signer = internal.NewSigner(cfg.Secret)
		logger.V(0).Info("signing links")
	}
	handlers, err := proxy.NewHandlers(proxy.Options{
		Logger: logger,
		Config: cfg.ProxyConfig,
		Signer: signer,
	})
	if err != nil {
		return nil, err
	}
	return &Daemon{
		Config: cfg,
		Logger: logger,
		proxy:  handlers,
	}, nil
}

// Start the daemon and block until ctx is cancelled or an error is
// returned. The started channel is closed once the daemon has started.
func (d *Daemon) Start(ctx context.Context, started chan struct{}) error {
	// Cancel context the first time a func started with g.Go() fails
	g, ctx := errgroup.WithContext(ctx)

	// Construct web server and start listening on port
	server, err := http.NewServer(d.Logger, http.ServerConfig{
		SSL:                  d.SSL,
		CertFile:             d.CertFile,
		KeyFile:              d.KeyFile,
		EnableRequestLogging: d.EnableRequestLogging,
		Handlers:             []http.Handlers{d.proxy},
	})
	if err != nil {
		return fmt.Errorf("setting up http server: %w", err)
	}
	ln, err := net.Listen("tcp", d.Address)
	if err != nil {
		return err
	}
	d.ListenAddress = ln.Addr().(*net.TCPAddr)

	defer ln.Close()

	d.V(0).Info("listening", "address", d.ListenAddress.String())

	if interval := d.ProxyConfig.ConnRefreshInterval; interval > 0 {
		refresher := &Subsystem{
			Name:   "conn-refresher",
			Logger: d.Logger,
			System: &proxy.Refresher{
				Logger:   d.Logger.WithValues("component", "conn-refresher"),
				Interval: interval,
				Conns:    d.proxy,
			},
		}
		refresher.Start(ctx, g)
	}

	// Run HTTP server
	g.Go(func() error {
		if err := server.Start(ctx, ln); err != nil {
			return fmt.Errorf("http server terminated: %w", err)
		}
		return nil
	})

	// Inform the caller the daemon has started
	close(started)

	// Block until error or Ctrl-C received.
	return g.Wait()
}
