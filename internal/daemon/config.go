package daemon

import (
	"fmt"

	"github.com/leg100/tokenproxy/internal"
	"github.com/leg100/tokenproxy/internal/logr"
	"github.com/leg100/tokenproxy/internal/proxy"
)

// Config configures the tokenproxyd daemon. Descriptions of each field can
// be found in the flag definitions in ./cmd/tokenproxyd
type Config struct {
	// Secret, if set, signs generated links. Links without a valid
	// signature are then refused.
	Secret               internal.Secret
	Address              string
	SSL                  bool
	CertFile, KeyFile    string
	EnableRequestLogging bool
	ProxyConfig          proxy.Config
	LogConfig            logr.Config
}

// NewConfig constructs a tokenproxyd configuration with defaults.
func NewConfig() Config {
	return Config{
		Address:     ":8080",
		ProxyConfig: proxy.NewConfig(),
	}
}

func (cfg *Config) Valid() error {
	if cfg.Secret != nil && len(cfg.Secret) < 16 {
		return internal.ErrInvalidSecretLength
	}
	if cfg.ProxyConfig.BaseURL != "" {
		if _, err := internal.NewWebURL(cfg.ProxyConfig.BaseURL); err != nil {
			return fmt.Errorf("invalid base url: %w", err)
		}
	}
	if cfg.ProxyConfig.DefaultTTL < 0 {
		return fmt.Errorf("%w: default ttl %s", internal.ErrInvalidTTL, cfg.ProxyConfig.DefaultTTL)
	}
	if cfg.ProxyConfig.MaxUpstreamConns < 0 {
		return fmt.Errorf("max upstream connections must not be negative: %d", cfg.ProxyConfig.MaxUpstreamConns)
	}
	if cfg.ProxyConfig.ConnRefreshInterval < 0 {
		return fmt.Errorf("connection refresh interval must not be negative: %s", cfg.ProxyConfig.ConnRefreshInterval)
	}
	return nil
}
