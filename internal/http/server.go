package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/go-logr/logr"
	"github.com/gomarkdown/markdown"
	"github.com/google/uuid"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/leg100/tokenproxy/internal"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// shutdownTimeout is the time given for outstanding requests to finish
	// before shutdown.
	shutdownTimeout = 1 * time.Second

	// readHeaderTimeout bounds the time a client may take to send request
	// headers. There is no write timeout: media streams are unbounded.
	readHeaderTimeout = 10 * time.Second

	// RequestIDHeader identifies a request in logs.
	RequestIDHeader = "X-Request-ID"
)

var (
	healthzPayload = mustMarshal(struct {
		Version string
		Commit  string
		Built   string
	}{
		Version: internal.Version,
		Commit:  internal.Commit,
		Built:   internal.Built,
	})

	//go:embed usage.md
	usageMarkdown []byte

	usagePage = fmt.Appendf(nil, "<!DOCTYPE html>\n<html>\n<head><title>tokenproxy</title></head>\n<body>\n%s</body>\n</html>\n",
		markdown.ToHTML(usageMarkdown, nil, nil))
)

type (
	// Handlers registers routes on a router.
	Handlers interface {
		AddHandlers(*mux.Router)
	}

	// ServerConfig is the http server config
	ServerConfig struct {
		SSL                  bool
		CertFile, KeyFile    string
		EnableRequestLogging bool

		Handlers []Handlers
	}

	// Server is the http server for tokenproxy
	Server struct {
		logr.Logger
		ServerConfig

		server *http.Server
	}
)

// NewServer constructs the http server for tokenproxy
func NewServer(logger logr.Logger, cfg ServerConfig) (*Server, error) {
	if cfg.SSL {
		if cfg.CertFile == "" || cfg.KeyFile == "" {
			return nil, fmt.Errorf("must provide both --cert-file and --key-file")
		}
	}
	return &Server{
		Logger:       logger,
		ServerConfig: cfg,
		server: &http.Server{
			Handler:           NewRouter(logger, cfg),
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}, nil
}

// NewRouter constructs the handler chain served by the server: CORS,
// request logging, panic recovery, and routes.
func NewRouter(logger logr.Logger, cfg ServerConfig) http.Handler {
	r := mux.NewRouter()

	// Tokens in the standard base64 alphabet may contain '//', which must
	// not be collapsed.
	r.SkipClean(true)

	// Catch panics and return 500s
	r.Use(gorillaHandlers.RecoveryHandler(gorillaHandlers.PrintRecoveryStack(true)))

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(usagePage)
	}).Methods("GET")

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-type", "application/json")
		w.Write(healthzPayload)
	})

	for _, h := range cfg.Handlers {
		h.AddHandlers(r)
	}

	var h http.Handler = r

	// Optionally log every request
	if cfg.EnableRequestLogging {
		h = logRequests(logger, h)
	}

	// Media players on other origins must be able to read range responses.
	return gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "HEAD", "POST", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Range"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length", "Content-Range", "Content-Type"}),
		gorillaHandlers.MaxAge(86400),
	)(h)
}

// logRequests logs each request once it completes. A request ID is
// assigned unless the caller supplied one. The path is not logged because
// it carries the token.
func logRequests(logger logr.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)

		m := httpsnoop.CaptureMetrics(next, w, r)
		logger.Info("request",
			"request_id", id,
			"duration", fmt.Sprintf("%dms", m.Duration.Milliseconds()),
			"status", m.Code,
			"bytes", m.Written,
			"method", r.Method,
			"route", routeName(r))
	})
}

// routeName returns the first component of the request path.
func routeName(r *http.Request) string {
	p := r.URL.Path
	for i := 1; i < len(p); i++ {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return p
}

// Start starts serving http traffic on the given listener and waits until the server exits due to
// error or the context is cancelled.
func (s *Server) Start(ctx context.Context, ln net.Listener) (err error) {
	errch := make(chan error)

	go func() {
		if s.SSL {
			errch <- s.server.ServeTLS(ln, s.CertFile, s.KeyFile)
		} else {
			errch <- s.server.Serve(ln)
		}
	}()

	s.Info("started server", "address", ln.Addr().String(), "ssl", s.SSL)

	// Block until server stops listening or context is cancelled.
	select {
	case err := <-errch:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		s.Info("gracefully shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return s.server.Close()
		}

		return nil
	}
}

// Absolute returns an absolute URL for the given path, using the scheme and
// host by which the request reached the server.
func Absolute(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, path)
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err.Error())
	}
	return b
}
