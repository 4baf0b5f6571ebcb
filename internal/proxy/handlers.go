// Package proxy redeems tokens, relaying the response of the protected
// resource, and serves the endpoint that generates them.
package proxy

import (
	"net/http"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"github.com/leg100/surl/v2"
	"github.com/leg100/tokenproxy/internal"
	tphttp "github.com/leg100/tokenproxy/internal/http"
)

// Options for constructing Handlers.
type Options struct {
	Logger logr.Logger
	Config Config
	// Clock defaults to the system clock.
	Clock internal.Clock
	// Signer, if non-nil, signs generated links, and unsigned links are
	// refused.
	Signer *surl.Signer
	// Transport overrides the upstream transport.
	Transport http.RoundTripper
}

// Handlers registers the proxy and generate routes.
type Handlers struct {
	redeemer  *Redeemer
	generator *generator
	signer    *surl.Signer
}

func NewHandlers(opts Options) (*Handlers, error) {
	redeemer, err := NewRedeemer(opts.Logger, opts.Config, opts.Clock, opts.Transport)
	if err != nil {
		return nil, err
	}
	gen := &generator{
		logger:     opts.Logger.WithValues("component", "generator"),
		clock:      opts.Clock,
		baseURL:    opts.Config.BaseURL,
		defaultTTL: opts.Config.DefaultTTL,
	}
	if gen.defaultTTL <= 0 {
		gen.defaultTTL = DefaultTTL
	}
	// assign only when non-nil, to avoid a typed-nil Signer interface
	if opts.Signer != nil {
		gen.signer = opts.Signer
	}
	return &Handlers{redeemer: redeemer, generator: gen, signer: opts.Signer}, nil
}

// CloseIdleConnections closes idle upstream connections.
func (h *Handlers) CloseIdleConnections() {
	h.redeemer.CloseIdleConnections()
}

func (h *Handlers) AddHandlers(r *mux.Router) {
	r.Handle(tphttp.GeneratePath, h.generator).Methods("POST")

	if h.signer != nil {
		signed := r.PathPrefix(internal.SignedPrefix + "/{signature.expiry}").Subrouter()
		signed.Use(internal.VerifySignedURL(h.signer))
		addProxyRoutes(signed, h.redeemer)

		// unsigned links are forgeries when signing is enabled
		addProxyRoutes(r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.redeemer.reject(w, internal.ErrInvalidToken)
		}))
		return
	}
	addProxyRoutes(r, h.redeemer)
}

func addProxyRoutes(r *mux.Router, h http.Handler) {
	r.Handle("/proxy", h).Methods("GET", "HEAD")
	r.Handle("/proxy/{token:.*}", h).Methods("GET", "HEAD")
}
