package internal

import (
	"bytes"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/leg100/surl/v2"
)

// SignedPrefix is the path prefix of signed redeemable URLs.
const SignedPrefix = "/signed"

// NewSigner constructs a signer for signing and verifying redeemable URLs.
// The query is left unsigned so that players may append segment parameters.
func NewSigner(secret []byte) *surl.Signer {
	return surl.New(secret,
		surl.PrefixPath(SignedPrefix),
		surl.WithPathFormatter(),
		surl.WithBase58Expiry(),
		surl.SkipQuery(),
	)
}

// Signer cryptographically signs URLs with a limited lifespan.
type Signer interface {
	Sign(string, time.Time) (string, error)
}

// Verifier verifies signed URLs
type Verifier interface {
	Verify(string) error
}

// VerifySignedURL is middleware that verifies signed URLs. A lapsed
// signature is reported as an expired link; any other failure is reported
// as an invalid token.
func VerifySignedURL(v Verifier) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := v.Verify(r.URL.String()); err != nil {
				if errors.Is(err, surl.ErrExpired) {
					Error(w, ErrExpired)
				} else {
					Error(w, ErrInvalidToken)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Secret is a hex-encoded key for signing redeemable URLs.
type Secret []byte

// UnmarshalText decodes a hex-encoded secret. Surrounding whitespace, such as
// the trailing newline of a secret file, is ignored.
func (s *Secret) UnmarshalText(text []byte) error {
	decoded, err := hex.DecodeString(string(bytes.TrimSpace(text)))
	if err != nil {
		return err
	}
	if len(decoded) < 16 {
		return ErrInvalidSecretLength
	}
	*s = decoded
	return nil
}

// Type implements pflag.Value
func (*Secret) Type() string { return "hex" }

// Set implements pflag.Value
func (s *Secret) Set(text string) error { return s.UnmarshalText([]byte(text)) }

func (s *Secret) String() string {
	if s == nil || len(*s) == 0 {
		return ""
	}
	return "<redacted>"
}
