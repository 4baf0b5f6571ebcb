package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/leg100/tokenproxy/internal"
)

// GeneratePath is the path of the link generation endpoint.
const GeneratePath = "/generate"

type (
	// Client generates links via a remote tokenproxy service.
	Client struct {
		baseURL *url.URL
		http    *retryablehttp.Client
	}

	// ClientConfig provides configuration details to the client.
	ClientConfig struct {
		// The URL of the tokenproxy service.
		URL string
		// Toggle retrying requests upon encountering transient errors.
		RetryRequests bool
		// Override default http transport
		Transport http.RoundTripper
		// Timeout for each request. Zero means 30 seconds.
		Timeout time.Duration
		// Logger for logging an error upon retry
		Logger logr.Logger
	}

	// GenerateRequest is the body of a link generation request.
	GenerateRequest struct {
		URL     string            `json:"url"`
		Headers map[string]string `json:"headers"`
		TTL     *int64            `json:"ttl,omitempty"`
	}

	// GenerateResponse is the body of a link generation response.
	GenerateResponse struct {
		Success   bool       `json:"success"`
		ProxyURL  string     `json:"proxyUrl,omitempty"`
		ExpiresAt *Timestamp `json:"expiresAt,omitempty"`
		Error     string     `json:"error,omitempty"`
	}

	// GeneratedLink is a link minted by a remote service.
	GeneratedLink struct {
		URL       string
		ExpiresAt time.Time
	}

	// Timestamp is an instant encoded as epoch milliseconds. Older services
	// encode it as an RFC3339 string, which is accepted when decoding.
	Timestamp time.Time
)

func NewClient(config ClientConfig) (*Client, error) {
	if config.URL == "" {
		return nil, &internal.MissingParameterError{Parameter: "service url"}
	}
	if config.Transport == nil {
		config.Transport = http.DefaultTransport
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	baseURL, err := url.Parse(strings.TrimRight(config.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid service url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid service url: %s", config.URL)
	}

	client := &Client{baseURL: baseURL}
	client.http = &retryablehttp.Client{
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
		HTTPClient:   &http.Client{Transport: config.Transport, Timeout: config.Timeout},
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
		RetryMax:     3,
	}
	if config.RetryRequests {
		client.http.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
			retry, retryErr := retryablehttp.ErrorPropagatedRetryPolicy(ctx, resp, err)
			if retry {
				if retryErr != nil {
					err = retryErr
				}
				config.Logger.Error(err, "retrying request")
			}
			return retry, retryErr
		}
	} else {
		// disable retries
		client.http.CheckRetry = func(_ context.Context, _ *http.Response, err error) (bool, error) {
			return false, err
		}
	}
	return client, nil
}

// Generate asks the service to mint a link to target. A non-positive
// ttlSeconds is sent as-is and rejected by the service. On failure the
// service's error message is returned verbatim.
func (c *Client) Generate(ctx context.Context, target string, headers map[string]string, ttlSeconds int64) (*GeneratedLink, error) {
	if headers == nil {
		headers = map[string]string{}
	}
	body, err := json.Marshal(GenerateRequest{URL: target, Headers: headers, TTL: &ttlSeconds})
	if err != nil {
		return nil, err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", c.baseURL.String()+GeneratePath, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var result GenerateResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, &internal.HTTPError{
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("unexpected response: %s: %s", resp.Status, bytes.TrimSpace(payload)),
		}
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = resp.Status
		}
		return nil, &internal.HTTPError{Code: resp.StatusCode, Message: msg}
	}
	if result.ProxyURL == "" {
		return nil, errors.New("service response missing proxyUrl")
	}
	link := &GeneratedLink{URL: result.ProxyURL}
	if result.ExpiresAt != nil {
		link.ExpiresAt = time.Time(*result.ExpiresAt)
	}
	return link, nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, time.Time(t).UnixMilli(), 10), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		*t = Timestamp(parsed.UTC())
		return nil
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %s", data)
	}
	*t = Timestamp(time.UnixMilli(ms).UTC())
	return nil
}
