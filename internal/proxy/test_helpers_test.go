package proxy

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"github.com/leg100/tokenproxy/internal"
	"github.com/leg100/tokenproxy/internal/capability"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 20, 8, 0, 0, 0, time.UTC)

// testClock is a clock whose time can be moved.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// upstream is a fake origin recording the requests it receives.
type upstream struct {
	*httptest.Server

	mu       sync.Mutex
	requests []*http.Request
}

func newUpstream(t *testing.T, handler http.HandlerFunc) *upstream {
	t.Helper()

	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.requests = append(u.requests, r.Clone(r.Context()))
		u.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(u.Close)
	return u
}

func (u *upstream) last(t *testing.T) *http.Request {
	t.Helper()

	u.mu.Lock()
	defer u.mu.Unlock()
	require.NotEmpty(t, u.requests, "upstream received no requests")
	return u.requests[len(u.requests)-1]
}

func (u *upstream) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.requests)
}

func testConfig() Config {
	cfg := NewConfig()
	cfg.BaseURL = "https://proxy.example"
	return cfg
}

func newTestRouter(t *testing.T, opts Options) *mux.Router {
	t.Helper()

	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	if opts.Config.ConnectTimeout == 0 {
		opts.Config = testConfig()
	}
	h, err := NewHandlers(opts)
	require.NoError(t, err)

	r := mux.NewRouter()
	r.SkipClean(true)
	h.AddHandlers(r)
	return r
}

// mintPath mints a link and returns its path, i.e. the part after the base
// url.
func mintPath(t *testing.T, clock internal.Clock, target string, headers map[string]string, ttl time.Duration) string {
	t.Helper()

	m := capability.Minter{BaseURL: "https://proxy.example", Clock: clock}
	link, err := m.Mint(target, headers, ttl)
	require.NoError(t, err)
	path, ok := strings.CutPrefix(link.URL, "https://proxy.example")
	require.True(t, ok)
	return path
}
