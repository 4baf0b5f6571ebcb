package capability

import (
	"fmt"
	"maps"
	"math"
	"time"

	"github.com/leg100/tokenproxy/internal"
)

// ProxyPath is the path prefix under which tokens are redeemed.
const ProxyPath = "/proxy/"

type (
	// Minter produces redeemable URLs. It performs no I/O and holds no
	// state beyond its configuration, so it is safe for concurrent use.
	Minter struct {
		// BaseURL is the public address of the redeemer, e.g.
		// https://proxy.example.com. A trailing slash is ignored.
		BaseURL string
		// Clock provides the minting instant. Defaults to the system clock.
		Clock internal.Clock
		// Signer, if non-nil, signs the redeemable URL so that the
		// redeemer can detect forged tokens.
		Signer internal.Signer
	}

	// Link is a minted capability together with its redeemable URL.
	Link struct {
		URL        string
		Capability Capability
	}
)

// MintCapability builds a capability for fetching target with headers,
// expiring ttl from now. The ttl is truncated to whole seconds and must be
// at least one second.
func (m *Minter) MintCapability(target string, headers map[string]string, ttl time.Duration) (Capability, error) {
	if target == "" {
		return Capability{}, &internal.MissingParameterError{Parameter: "url"}
	}
	seconds := int64(ttl / time.Second)
	if seconds <= 0 {
		return Capability{}, fmt.Errorf("%w: %s", internal.ErrInvalidTTL, ttl)
	}
	if _, err := internal.NewWebURL(target); err != nil {
		return Capability{}, err
	}
	if err := validateHeaders(headers); err != nil {
		return Capability{}, err
	}
	copied := make(map[string]string, len(headers))
	maps.Copy(copied, headers)
	return Capability{
		URL:     target,
		Headers: copied,
		Expiry:  m.now().UnixMilli() + seconds*1000,
	}, nil
}

// Mint builds, encodes, and (if configured) signs a capability, returning
// its redeemable URL.
func (m *Minter) Mint(target string, headers map[string]string, ttl time.Duration) (Link, error) {
	c, err := m.MintCapability(target, headers, ttl)
	if err != nil {
		return Link{}, err
	}
	u, err := m.RedeemableURL(c)
	if err != nil {
		return Link{}, err
	}
	return Link{URL: u, Capability: c}, nil
}

// SecondsTTL converts a ttl in seconds to a duration. It must be positive
// and no larger than the longest representable duration.
func SecondsTTL(seconds int64) (time.Duration, error) {
	if seconds <= 0 || seconds > math.MaxInt64/int64(time.Second) {
		return 0, fmt.Errorf("%w: %d", internal.ErrInvalidTTL, seconds)
	}
	return time.Duration(seconds) * time.Second, nil
}

// MintSeconds is Mint with the ttl given in seconds.
func (m *Minter) MintSeconds(target string, headers map[string]string, ttlSeconds int) (string, error) {
	ttl, err := SecondsTTL(int64(ttlSeconds))
	if err != nil {
		return "", err
	}
	link, err := m.Mint(target, headers, ttl)
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

// RedeemableURL encodes an existing capability into a URL on the minter's
// base URL.
func (m *Minter) RedeemableURL(c Capability) (string, error) {
	token, err := Encode(c)
	if err != nil {
		return "", err
	}
	path := ProxyPath + token
	if m.Signer != nil {
		path, err = m.Signer.Sign(path, c.ExpiresAt())
		if err != nil {
			return "", fmt.Errorf("signing redeemable url: %w", err)
		}
	}
	return internal.JoinBase(m.BaseURL, path), nil
}

func (m *Minter) now() time.Time {
	if m.Clock == nil {
		return internal.SystemClock.Now()
	}
	return m.Clock.Now()
}
