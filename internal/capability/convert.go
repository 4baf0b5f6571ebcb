package capability

import (
	"fmt"
	"maps"
	"time"
)

// Stream descriptor fields read or written by Convert.
const (
	fieldURL         = "url"
	fieldHeaders     = "headers"
	fieldProxied     = "proxied"
	fieldOriginalURL = "originalUrl"
)

// Convert rewrites a stream descriptor, as supplied by a media catalog, so
// that it can be played by a client that cannot send custom headers: the
// url is replaced by a redeemable URL carrying the descriptor's headers,
// and the headers are cleared. All other fields pass through untouched. A
// descriptor without a url is returned as-is. The input is never modified.
func Convert(stream map[string]any, m *Minter, ttl time.Duration) (map[string]any, error) {
	originalURL, _ := stream[fieldURL].(string)
	if originalURL == "" {
		return stream, nil
	}
	headers, err := descriptorHeaders(stream[fieldHeaders])
	if err != nil {
		return nil, err
	}
	link, err := m.Mint(originalURL, headers, ttl)
	if err != nil {
		return nil, err
	}
	converted := maps.Clone(stream)
	converted[fieldURL] = link.URL
	converted[fieldHeaders] = map[string]any{}
	converted[fieldProxied] = true
	converted[fieldOriginalURL] = originalURL
	return converted, nil
}

// descriptorHeaders accepts headers either as decoded JSON (values of type
// any) or as a string map.
func descriptorHeaders(v any) (map[string]string, error) {
	switch headers := v.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return headers, nil
	case map[string]any:
		m := make(map[string]string, len(headers))
		for k, v := range headers {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("header %q: value must be a string, got %T", k, v)
			}
			m[k] = s
		}
		return m, nil
	default:
		return nil, fmt.Errorf("headers must be an object, got %T", v)
	}
}
