package capability

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/leg100/tokenproxy/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 20, 8, 0, 0, 0, time.UTC)

type fakeSigner struct {
	expiry time.Time
}

func (f *fakeSigner) Sign(path string, expiry time.Time) (string, error) {
	f.expiry = expiry
	return "/signed/sig.exp" + path, nil
}

func TestMinter_MintCapability(t *testing.T) {
	m := &Minter{BaseURL: "https://proxy.example", Clock: internal.FixedClock(t0)}

	t.Run("expiry", func(t *testing.T) {
		got, err := m.MintCapability("https://cdn.example/video.mpd", nil, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, t0.UnixMilli()+3600*1000, got.Expiry)
		assert.Equal(t, t0.Add(time.Hour), got.ExpiresAt())
		assert.Equal(t, map[string]string{}, got.Headers)
	})

	t.Run("sub-second ttl is truncated", func(t *testing.T) {
		got, err := m.MintCapability("https://cdn.example/video.mpd", nil, 1500*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, t0.UnixMilli()+1000, got.Expiry)
	})

	t.Run("headers are copied", func(t *testing.T) {
		headers := map[string]string{"Cookie": "a=b"}
		got, err := m.MintCapability("https://cdn.example/video.mpd", headers, time.Hour)
		require.NoError(t, err)
		headers["Cookie"] = "changed"
		assert.Equal(t, "a=b", got.Headers["Cookie"])
	})

	t.Run("reject zero ttl", func(t *testing.T) {
		_, err := m.MintCapability("https://cdn.example/video.mpd", nil, 0)
		assert.True(t, errors.Is(err, internal.ErrInvalidTTL))
	})

	t.Run("reject negative ttl", func(t *testing.T) {
		_, err := m.MintCapability("https://cdn.example/video.mpd", nil, -time.Hour)
		assert.True(t, errors.Is(err, internal.ErrInvalidTTL))
	})

	t.Run("reject sub-second ttl", func(t *testing.T) {
		_, err := m.MintCapability("https://cdn.example/video.mpd", nil, 999*time.Millisecond)
		assert.True(t, errors.Is(err, internal.ErrInvalidTTL))
	})

	t.Run("reject missing url", func(t *testing.T) {
		_, err := m.MintCapability("", nil, time.Hour)
		var missing *internal.MissingParameterError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "url", missing.Parameter)
	})

	t.Run("reject relative url", func(t *testing.T) {
		_, err := m.MintCapability("video.mpd", nil, time.Hour)
		assert.True(t, errors.Is(err, internal.ErrInvalidTargetURL))
	})

	t.Run("reject invalid header", func(t *testing.T) {
		_, err := m.MintCapability("https://cdn.example/video.mpd", map[string]string{"X-A": "a\nb"}, time.Hour)
		assert.True(t, errors.Is(err, internal.ErrInvalidHeader))
	})

	t.Run("reject headers differing only by case", func(t *testing.T) {
		_, err := m.MintCapability("https://cdn.example/video.mpd", map[string]string{"referer": "a", "Referer": "b"}, time.Hour)
		assert.True(t, errors.Is(err, internal.ErrInvalidHeader))
	})
}

func TestMinter_Mint(t *testing.T) {
	headers := map[string]string{"Referer": "https://app.example", "Cookie": "a=b"}

	t.Run("redeemable url", func(t *testing.T) {
		m := &Minter{BaseURL: "https://proxy.example", Clock: internal.FixedClock(t0)}
		link, err := m.Mint("https://cdn.example/video.mpd", headers, time.Hour)
		require.NoError(t, err)

		token, ok := strings.CutPrefix(link.URL, "https://proxy.example/proxy/")
		require.True(t, ok, link.URL)
		got, err := Decode(token)
		require.NoError(t, err)
		assert.Equal(t, link.Capability, got)
		assert.Equal(t, "https://cdn.example/video.mpd", got.URL)
		assert.Equal(t, headers, got.Headers)
	})

	t.Run("strip trailing slash from base url", func(t *testing.T) {
		m := &Minter{BaseURL: "https://proxy.example/", Clock: internal.FixedClock(t0)}
		link, err := m.Mint("https://cdn.example/video.mpd", nil, time.Hour)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(link.URL, "https://proxy.example/proxy/"), link.URL)
	})

	t.Run("signed", func(t *testing.T) {
		signer := &fakeSigner{}
		m := &Minter{BaseURL: "https://proxy.example", Clock: internal.FixedClock(t0), Signer: signer}
		link, err := m.Mint("https://cdn.example/video.mpd", nil, time.Hour)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(link.URL, "https://proxy.example/signed/sig.exp/proxy/"), link.URL)
		assert.Equal(t, t0.Add(time.Hour), signer.expiry)
	})

	t.Run("same instant yields same url", func(t *testing.T) {
		m := &Minter{BaseURL: "https://proxy.example", Clock: internal.FixedClock(t0)}
		first, err := m.Mint("https://cdn.example/video.mpd", headers, time.Hour)
		require.NoError(t, err)
		second, err := m.Mint("https://cdn.example/video.mpd", headers, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, first.URL, second.URL)
	})
}

func TestMinter_MintSeconds(t *testing.T) {
	m := &Minter{BaseURL: "https://proxy.example", Clock: internal.FixedClock(t0)}

	u, err := m.MintSeconds("https://cdn.example/video.mpd", nil, 3600)
	require.NoError(t, err)
	got, err := Decode(strings.TrimPrefix(u, "https://proxy.example/proxy/"))
	require.NoError(t, err)
	assert.Equal(t, t0.UnixMilli()+3600*1000, got.Expiry)

	_, err = m.MintSeconds("https://cdn.example/video.mpd", nil, 0)
	assert.True(t, errors.Is(err, internal.ErrInvalidTTL))
	_, err = m.MintSeconds("https://cdn.example/video.mpd", nil, -1)
	assert.True(t, errors.Is(err, internal.ErrInvalidTTL))
	_, err = m.MintSeconds("https://cdn.example/video.mpd", nil, math.MaxInt64)
	assert.True(t, errors.Is(err, internal.ErrInvalidTTL))
}

func TestSecondsTTL(t *testing.T) {
	tests := []struct {
		name    string
		seconds int64
		want    time.Duration
		wantErr bool
	}{
		{"one second", 1, time.Second, false},
		{"one hour", 3600, time.Hour, false},
		{"longest", math.MaxInt64 / int64(time.Second), time.Duration(math.MaxInt64/int64(time.Second)) * time.Second, false},
		{"zero", 0, 0, true},
		{"negative", -1, 0, true},
		{"overflows to one second", 18446744075, 0, true},
		{"max int", math.MaxInt64, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SecondsTTL(tt.seconds)
			if tt.wantErr {
				assert.True(t, errors.Is(err, internal.ErrInvalidTTL), err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCapability_Expired(t *testing.T) {
	m := &Minter{Clock: internal.FixedClock(t0)}
	c, err := m.MintCapability("https://cdn.example/video.mpd", nil, time.Hour)
	require.NoError(t, err)

	assert.False(t, c.Expired(t0))
	assert.False(t, c.Expired(t0.Add(time.Hour-time.Second)))
	assert.False(t, c.Expired(t0.Add(time.Hour)))
	assert.True(t, c.Expired(t0.Add(time.Hour+time.Millisecond)))
	assert.True(t, c.Expired(t0.Add(time.Hour+time.Second)))
}
