package main

import (
	"fmt"
	"net/textproto"
	"strings"
	"time"

	"github.com/leg100/tokenproxy/internal"
	"github.com/leg100/tokenproxy/internal/capability"
	"github.com/spf13/pflag"
)

// minterFlags are the flags common to the commands minting links offline.
type minterFlags struct {
	baseURL internal.WebURL
	secret  internal.Secret
	ttl     time.Duration
}

func (f *minterFlags) add(flags *pflag.FlagSet) {
	flags.Var(&f.baseURL, "base-url", "Public URL of the tokenproxyd service. Required.")
	flags.Var(&f.secret, "secret", "Hex-encoded secret shared with tokenproxyd, for signing links.")
	flags.DurationVar(&f.ttl, "ttl", 24*time.Hour, "Lifetime of the link.")
}

func (f *minterFlags) minter() (*capability.Minter, error) {
	if f.baseURL.URL == nil {
		return nil, &internal.MissingParameterError{Parameter: "base-url"}
	}
	m := &capability.Minter{
		BaseURL: f.baseURL.String(),
		Clock:   internal.SystemClock,
	}
	if f.secret != nil {
		m.Signer = internal.NewSigner(f.secret)
	}
	return m, nil
}

// parseHeaders parses curl-style "Name: value" headers.
func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: expected 'Name: value', got %q", internal.ErrInvalidHeader, h)
		}
		if _, dup := headers[textproto.CanonicalMIMEHeaderKey(name)]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", internal.ErrInvalidHeader, name)
		}
		headers[textproto.CanonicalMIMEHeaderKey(name)] = strings.TrimSpace(value)
	}
	return headers, nil
}
