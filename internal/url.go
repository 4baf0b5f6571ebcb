package internal

import (
	"fmt"
	"net/url"
	"strings"
)

// WebURL wraps the stdlib url.URL, restricting it to absolute web URLs (i.e.
// those that use the http(s) scheme and name a host).
type WebURL struct {
	*url.URL
}

// NewWebURL constructs a http(s) URL from a URL string. Unlike a base URL
// typed by an operator, a target URL is never given a default scheme: it
// must be absolute.
func NewWebURL(rawURL string) (*WebURL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTargetURL, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("%w: invalid scheme: %q", ErrInvalidTargetURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidTargetURL)
	}
	return &WebURL{URL: u}, nil
}

// Type implements pflag.Value
func (*WebURL) Type() string { return "url" }

// Set implements pflag.Value. A scheme-less value is taken to be https.
func (u *WebURL) Set(text string) error {
	if !strings.Contains(text, "://") {
		text = "https://" + text
	}
	newURL, err := NewWebURL(text)
	if err != nil {
		return err
	}
	*u = *newURL
	return nil
}

func (u *WebURL) String() string {
	if u == nil || u.URL == nil {
		return ""
	}
	return u.URL.String()
}

// JoinBase appends path to base, collapsing any trailing slashes on base.
func JoinBase(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
