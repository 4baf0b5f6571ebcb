package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/leg100/tokenproxy/internal"
	"github.com/leg100/tokenproxy/internal/capability"
	tphttp "github.com/leg100/tokenproxy/internal/http"
)

// maxGenerateBodySize bounds the size of a generate request body.
const maxGenerateBodySize = 1 << 20

// generator serves the generate endpoint, minting links on behalf of
// callers that cannot mint offline.
type generator struct {
	logger     logr.Logger
	clock      internal.Clock
	signer     internal.Signer
	baseURL    string
	defaultTTL time.Duration
}

func (g *generator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxGenerateBodySize)

	var params tphttp.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		g.error(w, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}

	ttl := g.defaultTTL
	if params.TTL != nil {
		var err error
		ttl, err = capability.SecondsTTL(*params.TTL)
		if err != nil {
			g.error(w, err, http.StatusBadRequest)
			return
		}
	}

	baseURL := g.baseURL
	if baseURL == "" {
		baseURL = tphttp.Absolute(r, "")
	}
	minter := capability.Minter{BaseURL: baseURL, Clock: g.clock, Signer: g.signer}
	link, err := minter.Mint(params.URL, params.Headers, ttl)
	if err != nil {
		g.error(w, err, internal.StatusCode(err))
		return
	}
	generatedMetric.Inc()

	expiresAt := tphttp.Timestamp(link.Capability.ExpiresAt())
	g.respond(w, tphttp.GenerateResponse{
		Success:   true,
		ProxyURL:  link.URL,
		ExpiresAt: &expiresAt,
	}, http.StatusOK)
}

func (g *generator) error(w http.ResponseWriter, err error, code int) {
	var missing *internal.MissingParameterError
	msg := err.Error()
	if errors.As(err, &missing) {
		msg = missing.Parameter + " is required"
	}
	g.logger.V(1).Info("rejected generate request", "error", msg, "status", code)
	g.respond(w, tphttp.GenerateResponse{Error: msg}, code)
}

func (g *generator) respond(w http.ResponseWriter, resp tphttp.GenerateResponse, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		g.logger.Error(err, "writing generate response")
	}
}
