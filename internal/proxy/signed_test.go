package proxy

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leg100/tokenproxy/internal"
	"github.com/leg100/tokenproxy/internal/capability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedLinks(t *testing.T) {
	origin := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("signed content"))
	})
	signer := internal.NewSigner([]byte("abcdefghijklmnopqrstuvwxyz012345"))
	router := newTestRouter(t, Options{Signer: signer})

	m := capability.Minter{BaseURL: "https://proxy.example", Clock: internal.SystemClock, Signer: signer}
	link, err := m.Mint(origin.URL+"/index.m3u8", nil, time.Hour)
	require.NoError(t, err)
	path := strings.TrimPrefix(link.URL, "https://proxy.example")
	require.True(t, strings.HasPrefix(path, "/signed/"), path)

	t.Run("valid", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, 200, w.Code, w.Body.String())
		assert.Equal(t, "signed content", w.Body.String())
	})

	t.Run("valid with appended query", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", path+"?segment=1", nil))
		assert.Equal(t, 200, w.Code, w.Body.String())
		assert.Equal(t, "segment=1", origin.last(t).URL.RawQuery)
	})

	t.Run("tampered token", func(t *testing.T) {
		// swap the token for one targeting somewhere else
		forged, err := capability.Encode(capability.Capability{
			URL:    "https://elsewhere.example/secret",
			Expiry: link.Capability.Expiry,
		})
		require.NoError(t, err)
		prefix, _, ok := strings.Cut(path, capability.ProxyPath)
		require.True(t, ok)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", prefix+capability.ProxyPath+forged, nil))
		assert.Equal(t, 400, w.Code)
		assert.Equal(t, "invalid token\n", w.Body.String())
	})

	t.Run("unsigned", func(t *testing.T) {
		unsigned := mintPath(t, internal.SystemClock, origin.URL, nil, time.Hour)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", unsigned, nil))
		assert.Equal(t, 400, w.Code)
		assert.Equal(t, "invalid token\n", w.Body.String())
	})
}
