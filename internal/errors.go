package internal

import (
	"errors"
	"fmt"
	"net/http"
)

// Redemption errors
var (
	// ErrMalformedRequest is returned when a redemption request carries no
	// token.
	ErrMalformedRequest = errors.New("malformed request: missing token")

	// ErrInvalidToken is returned when a token cannot be decoded, fails
	// signature verification, or names a target that is not permitted. The
	// reason is deliberately not reported to the caller.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpired is returned when a well-formed token is redeemed after its
	// expiry.
	ErrExpired = errors.New("link expired")

	// ErrUpstreamUnavailable is returned when the target could not be
	// reached: connection failure, timeout, or no outbound capacity.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Minting errors
var (
	// ErrInvalidTTL is returned when a non-positive time-to-live is
	// requested.
	ErrInvalidTTL = errors.New("ttl must be a positive number of seconds")

	// ErrInvalidTargetURL is returned when the target is not an absolute
	// http(s) URL.
	ErrInvalidTargetURL = errors.New("target must be an absolute http(s) url")

	// ErrInvalidHeader is returned when a header name or value cannot be
	// sent in an HTTP request.
	ErrInvalidHeader = errors.New("invalid header")
)

// ErrInvalidSecretLength is returned when a signing secret is too short.
var ErrInvalidSecretLength = errors.New("secret must be at least 16 bytes in size")

type (
	// MissingParameterError occurs when the caller has failed to provide a
	// required parameter
	MissingParameterError struct {
		Parameter string
	}

	// HTTPError is an error response from a remote tokenproxy service.
	HTTPError struct {
		Code    int
		Message string
	}
)

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("required parameter missing: %s", e.Parameter)
}

func (e *HTTPError) Error() string {
	return e.Message
}

var codes = map[error]int{
	ErrMalformedRequest:    http.StatusBadRequest,
	ErrInvalidToken:        http.StatusBadRequest,
	ErrExpired:             http.StatusGone,
	ErrUpstreamUnavailable: http.StatusBadGateway,
	ErrInvalidTTL:          http.StatusBadRequest,
	ErrInvalidTargetURL:    http.StatusBadRequest,
	ErrInvalidHeader:       http.StatusBadRequest,
}

// StatusCode maps an error to a http status code.
func StatusCode(err error) int {
	var missing *MissingParameterError
	if errors.As(err, &missing) {
		return http.StatusBadRequest
	}
	for sentinel, code := range codes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the text reported to a redeeming client. Only the
// taxonomy is reported, never the underlying detail, so that a forger
// learns nothing about which part of a token was rejected.
func PublicMessage(err error) string {
	for _, sentinel := range []error{
		ErrMalformedRequest,
		ErrInvalidToken,
		ErrExpired,
		ErrUpstreamUnavailable,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return http.StatusText(StatusCode(err))
}

// Error writes a plain text error response.
func Error(w http.ResponseWriter, err error) {
	http.Error(w, PublicMessage(err), StatusCode(err))
}
