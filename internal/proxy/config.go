package proxy

import (
	"time"

	"github.com/spf13/pflag"
)

const (
	DefaultConnectTimeout        = 5 * time.Second
	DefaultResponseHeaderTimeout = 10 * time.Second
	DefaultMaxUpstreamConns      = 256
	DefaultTTL                   = 24 * time.Hour

	// DefaultUserAgent is sent upstream when a token carries no user agent
	// of its own; some CDNs refuse requests without a browser-like one.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Config configures the redeemer and the generate endpoint.
type Config struct {
	// BaseURL is the public address of the service, used when generating
	// links. If empty, the address of the generate request is used.
	BaseURL string
	// ConnectTimeout bounds dialing and the TLS handshake with the target.
	ConnectTimeout time.Duration
	// ResponseHeaderTimeout bounds the wait for the target's response
	// headers, and the wait for a free outbound slot.
	ResponseHeaderTimeout time.Duration
	// MaxUpstreamConns caps concurrent upstream fetches across all hosts.
	MaxUpstreamConns int
	// MaxConnsPerHost caps connections to any one target host. Zero means
	// no per-host limit.
	MaxConnsPerHost int
	// UserAgent is sent when the token carries none. Empty to send Go's
	// default.
	UserAgent string
	// AllowedHosts, if non-empty, restricts targets to hosts matching one
	// of these glob patterns, e.g. *.cloudfront.net.
	AllowedHosts []string
	// DefaultTTL applies to generate requests that omit a ttl.
	DefaultTTL time.Duration
	// SkipTLSVerification skips verification of target certificates.
	SkipTLSVerification bool
	// ConnRefreshInterval, if non-zero, is how often idle upstream
	// connections are closed.
	ConnRefreshInterval time.Duration
}

// NewConfig constructs a config with defaults.
func NewConfig() Config {
	return Config{
		ConnectTimeout:        DefaultConnectTimeout,
		ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
		MaxUpstreamConns:      DefaultMaxUpstreamConns,
		UserAgent:             DefaultUserAgent,
		DefaultTTL:            DefaultTTL,
	}
}

// LoadConfigFromFlags binds flags to cfg. Call before parsing flags.
func LoadConfigFromFlags(flags *pflag.FlagSet, cfg *Config) {
	flags.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Public URL of this service, used in generated links. Defaults to the address of the request.")
	flags.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "Timeout for connecting to a target.")
	flags.DurationVar(&cfg.ResponseHeaderTimeout, "response-header-timeout", cfg.ResponseHeaderTimeout, "Timeout waiting for a target's response headers.")
	flags.IntVar(&cfg.MaxUpstreamConns, "max-upstream-conns", cfg.MaxUpstreamConns, "Maximum number of concurrent upstream fetches.")
	flags.IntVar(&cfg.MaxConnsPerHost, "max-conns-per-host", cfg.MaxConnsPerHost, "Maximum number of connections per target host. 0 means unlimited.")
	flags.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User agent sent to targets when a link specifies none.")
	flags.StringSliceVar(&cfg.AllowedHosts, "allowed-hosts", cfg.AllowedHosts, "Glob patterns of permitted target hosts. Empty permits all hosts.")
	flags.DurationVar(&cfg.DefaultTTL, "default-ttl", cfg.DefaultTTL, "Lifetime of generated links when the request specifies none.")
	flags.DurationVar(&cfg.ConnRefreshInterval, "conn-refresh-interval", cfg.ConnRefreshInterval, "How often to close idle upstream connections, so that rotated CDN addresses are picked up. 0 disables.")
	flags.BoolVar(&cfg.SkipTLSVerification, "skip-tls-verification", cfg.SkipTLSVerification, "Skip verification of target TLS certificates.")
}
