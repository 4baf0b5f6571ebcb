package proxy

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"github.com/leg100/tokenproxy/internal"
	"github.com/leg100/tokenproxy/internal/capability"
	"golang.org/x/sync/semaphore"
)

// Redeemer decodes a token from the request path, checks it, and relays the
// target's response to the caller. It holds no per-token state: any number
// of redemptions of the same token may proceed concurrently.
type Redeemer struct {
	logger    logr.Logger
	clock     internal.Clock
	client    *http.Client
	hosts     hostMatcher
	userAgent string

	// slots caps concurrent upstream fetches; slotWait bounds the wait for
	// one.
	slots    *semaphore.Weighted
	slotWait time.Duration
}

// NewRedeemer constructs a redeemer. A nil clock means the system clock, and
// a nil transport one built from cfg.
func NewRedeemer(logger logr.Logger, cfg Config, clock internal.Clock, transport http.RoundTripper) (*Redeemer, error) {
	hosts, err := newHostMatcher(cfg.AllowedHosts)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = internal.SystemClock
	}
	if transport == nil {
		transport = newTransport(cfg)
	}
	maxConns := cfg.MaxUpstreamConns
	if maxConns <= 0 {
		maxConns = DefaultMaxUpstreamConns
	}
	slotWait := cfg.ResponseHeaderTimeout
	if slotWait <= 0 {
		slotWait = DefaultResponseHeaderTimeout
	}
	return &Redeemer{
		logger:    logger.WithValues("component", "redeemer"),
		clock:     clock,
		client:    &http.Client{Transport: transport},
		hosts:     hosts,
		userAgent: cfg.UserAgent,
		slots:     semaphore.NewWeighted(int64(maxConns)),
		slotWait:  slotWait,
	}, nil
}

func (h *Redeemer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target, c, err := h.authorize(r)
	if err != nil {
		h.reject(w, err)
		return
	}
	h.forward(w, r, target, c)
}

// authorize parses, decodes, and validates the token, returning the URL to
// fetch.
func (h *Redeemer) authorize(r *http.Request) (*url.URL, capability.Capability, error) {
	token := mux.Vars(r)["token"]
	if token == "" {
		return nil, capability.Capability{}, internal.ErrMalformedRequest
	}
	c, err := capability.Decode(token)
	if err != nil {
		h.logger.V(1).Info("rejected token", "reason", err.Error())
		return nil, capability.Capability{}, internal.ErrInvalidToken
	}
	if c.Expired(h.clock.Now()) {
		return nil, capability.Capability{}, internal.ErrExpired
	}
	// Decode has already checked the url is absolute.
	target, err := url.Parse(c.URL)
	if err != nil {
		return nil, capability.Capability{}, internal.ErrInvalidToken
	}
	if !h.hosts.allowed(target.Hostname()) {
		h.logger.V(1).Info("rejected token", "reason", "host not allowed", "host", target.Hostname())
		return nil, capability.Capability{}, internal.ErrInvalidToken
	}
	appendQuery(target, r.URL.RawQuery)
	return target, c, nil
}

func (h *Redeemer) forward(w http.ResponseWriter, r *http.Request, target *url.URL, c capability.Capability) {
	ctx := r.Context()

	req, err := http.NewRequestWithContext(ctx, r.Method, target.String(), nil)
	if err != nil {
		h.logger.Error(err, "constructing upstream request")
		h.reject(w, internal.ErrInvalidToken)
		return
	}
	for name, value := range c.Headers {
		if http.CanonicalHeaderKey(name) == "Host" {
			req.Host = value
			continue
		}
		req.Header.Set(name, value)
	}
	copyRequestHeaders(req.Header, r.Header)
	if req.Header.Get("User-Agent") == "" && h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	if err := h.acquire(ctx); err != nil {
		if ctx.Err() != nil {
			h.canceled(target, err)
			return
		}
		h.logger.Error(err, "no upstream capacity", "host", target.Host)
		h.reject(w, internal.ErrUpstreamUnavailable)
		return
	}
	defer h.slots.Release(1)

	upstreamInflightMetric.Inc()
	defer upstreamInflightMetric.Dec()

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			h.canceled(target, err)
			return
		}
		upstreamDurationMetric.WithLabelValues("error").Observe(time.Since(start).Seconds())
		h.logger.Error(err, "upstream request failed", "host", target.Host, "duration", time.Since(start))
		h.reject(w, internal.ErrUpstreamUnavailable)
		return
	}
	defer resp.Body.Close()
	upstreamDurationMetric.WithLabelValues(strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	copyResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	redemptionsMetric.WithLabelValues(outcomeRelayed).Inc()

	if r.Method == http.MethodHead {
		return
	}
	n, err := stream(w, resp.Body)
	switch {
	case err == nil:
		h.logger.V(1).Info("relayed", "host", target.Host, "status", resp.StatusCode, "bytes", n, "duration", time.Since(start))
	case errors.Is(err, errClientGone) || ctx.Err() != nil:
		h.logger.V(1).Info("client disconnected mid-stream", "host", target.Host, "bytes", n)
	default:
		h.logger.Error(err, "upstream stream interrupted", "host", target.Host, "bytes", n)
	}
}

// CloseIdleConnections closes upstream connections not currently in use.
func (h *Redeemer) CloseIdleConnections() {
	h.client.CloseIdleConnections()
}

// acquire waits for an outbound slot, giving up after slotWait.
func (h *Redeemer) acquire(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.slotWait)
	defer cancel()
	return h.slots.Acquire(ctx, 1)
}

func (h *Redeemer) canceled(target *url.URL, err error) {
	redemptionsMetric.WithLabelValues(outcomeCanceled).Inc()
	h.logger.V(1).Info("client canceled request", "host", target.Host, "error", err.Error())
}

func (h *Redeemer) reject(w http.ResponseWriter, err error) {
	redemptionsMetric.WithLabelValues(outcomeOf(err)).Inc()
	internal.Error(w, err)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, internal.ErrMalformedRequest):
		return outcomeMalformed
	case errors.Is(err, internal.ErrExpired):
		return outcomeExpired
	case errors.Is(err, internal.ErrUpstreamUnavailable):
		return outcomeUnavailable
	default:
		return outcomeInvalid
	}
}
