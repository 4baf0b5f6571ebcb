package capability

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/leg100/tokenproxy/internal"
)

// DecodeError is returned when a token cannot be decoded into a valid
// capability. It wraps internal.ErrInvalidToken; Reason is for logs only.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", internal.ErrInvalidToken, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", internal.ErrInvalidToken, e.Reason)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{internal.ErrInvalidToken, e.Err}
	}
	return []error{internal.ErrInvalidToken}
}

func decodeError(reason string, err error) error {
	return &DecodeError{Reason: reason, Err: err}
}

// Encode serializes the capability to canonical JSON and encodes it as
// unpadded base64url, a string that can be placed in a URL path segment
// as-is. Encode is deterministic: map keys are sorted by encoding/json.
func Encode(c Capability) (string, error) {
	if c.Headers == nil {
		c.Headers = map[string]string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// Decode reverses Encode. Tokens in the standard base64 alphabet, padded or
// not, are also accepted. All failures wrap internal.ErrInvalidToken.
func Decode(token string) (Capability, error) {
	payload, err := decodeBase64(token)
	if err != nil {
		return Capability{}, decodeError("malformed encoding", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return Capability{}, decodeError("malformed payload", err)
	}
	if fields == nil {
		return Capability{}, decodeError("payload is not an object", nil)
	}

	var c Capability

	rawURL, ok := fields["url"]
	if !ok || !isJSONString(rawURL) {
		return Capability{}, decodeError("url missing or not a string", nil)
	}
	if err := json.Unmarshal(rawURL, &c.URL); err != nil {
		return Capability{}, decodeError("url", err)
	}
	if _, err := internal.NewWebURL(c.URL); err != nil {
		return Capability{}, decodeError("url", err)
	}

	rawExp, ok := fields["exp"]
	if !ok {
		return Capability{}, decodeError("exp missing", nil)
	}
	c.Expiry, err = strconv.ParseInt(string(bytes.TrimSpace(rawExp)), 10, 64)
	if err != nil {
		return Capability{}, decodeError("exp is not an integer", err)
	}
	if c.Expiry <= 0 {
		return Capability{}, decodeError("exp is not positive", nil)
	}

	c.Headers, err = decodeHeaders(fields["headers"])
	if err != nil {
		return Capability{}, err
	}
	return c, nil
}

func decodeBase64(token string) ([]byte, error) {
	token = strings.TrimRight(token, "=")
	if token == "" {
		return nil, errors.New("empty token")
	}
	if strings.ContainsAny(token, "+/") {
		return base64.RawStdEncoding.DecodeString(token)
	}
	return base64.RawURLEncoding.DecodeString(token)
}

// decodeHeaders decodes the headers field. An absent or null field is an
// empty mapping.
func decodeHeaders(raw json.RawMessage) (map[string]string, error) {
	headers := map[string]string{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return headers, nil
	}
	if raw[0] != '{' {
		return nil, decodeError("headers is not an object", nil)
	}
	var values map[string]json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, decodeError("headers", err)
	}
	for name, value := range values {
		if !isJSONString(value) {
			return nil, decodeError("header value is not a string", nil)
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, decodeError("header value", err)
		}
		headers[name] = s
	}
	if err := validateHeaders(headers); err != nil {
		return nil, decodeError("headers", err)
	}
	return headers, nil
}

func isJSONString(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '"'
}
