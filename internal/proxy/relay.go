package proxy

import (
	"errors"
	"io"
	"net/http"
	"net/url"
)

// relayedHeaders are the only upstream response headers passed back to the
// caller. Anything else, notably Set-Cookie and Location, could leak the
// protected URL or its credentials.
var relayedHeaders = []string{
	"Accept-Ranges",
	"Age",
	"Cache-Control",
	"Content-Disposition",
	"Content-Encoding",
	"Content-Length",
	"Content-Range",
	"Content-Type",
	"ETag",
	"Expires",
	"Last-Modified",
	"Vary",
}

// passedHeaders are the incoming request headers passed through to the
// target: range requests are needed for seeking.
var passedHeaders = []string{
	"Range",
	"If-Range",
}

func copyResponseHeaders(dst, src http.Header) {
	for _, name := range relayedHeaders {
		if values := src.Values(name); len(values) > 0 {
			dst[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
		}
	}
}

func copyRequestHeaders(dst, src http.Header) {
	for _, name := range passedHeaders {
		if v := src.Get(name); v != "" {
			dst.Set(name, v)
		}
	}
}

// appendQuery appends the caller's query string to the target's, so that
// players requesting /proxy/{token}?segment=3 fetch target?segment=3.
func appendQuery(target *url.URL, rawQuery string) {
	if rawQuery == "" {
		return
	}
	if target.RawQuery == "" {
		target.RawQuery = rawQuery
	} else {
		target.RawQuery += "&" + rawQuery
	}
}

// errClientGone is returned by stream when the caller stops reading.
var errClientGone = errors.New("client disconnected")

// stream copies the body to w, flushing after each chunk so that the caller
// receives manifest and segment bytes as they arrive rather than once a
// buffer fills. Memory use is bounded by the chunk size.
func stream(w http.ResponseWriter, body io.Reader) (int64, error) {
	rc := http.NewResponseController(w)
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			m, err := w.Write(buf[:n])
			written += int64(m)
			if err != nil {
				return written, errClientGone
			}
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return written, errClientGone
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
