// Package capability mints and encodes capabilities: time-bounded
// descriptions of an HTTP fetch ("GET url with headers until exp") that
// grant access to whoever holds them.
package capability

import (
	"fmt"
	"net/textproto"
	"time"

	"github.com/leg100/tokenproxy/internal"
	"golang.org/x/net/http/httpguts"
)

// Capability is the payload embedded in every token.
type Capability struct {
	// URL is the protected resource.
	URL string `json:"url"`
	// Headers are attached to the outbound request when the capability is
	// redeemed.
	Headers map[string]string `json:"headers"`
	// Expiry is the instant, in milliseconds since the epoch, after which
	// the capability is void.
	Expiry int64 `json:"exp"`
}

// ExpiresAt returns the expiry as a time.
func (c Capability) ExpiresAt() time.Time {
	return time.UnixMilli(c.Expiry).UTC()
}

// Expired reports whether the capability is void at the given instant. A
// capability remains valid up to and including the millisecond of its
// expiry.
func (c Capability) Expired(now time.Time) bool {
	return now.UnixMilli() > c.Expiry
}

// validateHeaders checks that every header can be sent verbatim and that no
// two names differ only by case.
func validateHeaders(headers map[string]string) error {
	seen := make(map[string]struct{}, len(headers))
	for name, value := range headers {
		if !httpguts.ValidHeaderFieldName(name) {
			return fmt.Errorf("%w: name %q", internal.ErrInvalidHeader, name)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return fmt.Errorf("%w: value for %q", internal.ErrInvalidHeader, name)
		}
		canonical := textproto.CanonicalMIMEHeaderKey(name)
		if _, ok := seen[canonical]; ok {
			return fmt.Errorf("%w: duplicate name %q", internal.ErrInvalidHeader, name)
		}
		seen[canonical] = struct{}{}
	}
	return nil
}
