package capability

import (
	"strings"
	"testing"
	"time"

	"github.com/leg100/tokenproxy/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	m := &Minter{BaseURL: "https://proxy.example", Clock: internal.FixedClock(t0)}

	stream := func() map[string]any {
		return map[string]any{
			"url":        "https://cdn.example/dash/index.mpd",
			"type":       "dash",
			"resolution": float64(1080),
			"headers": map[string]any{
				"Referer": "https://app.example",
				"Cookie":  "CloudFront-Policy=x;CloudFront-Signature=y",
			},
		}
	}

	t.Run("rewrite url and clear headers", func(t *testing.T) {
		got, err := Convert(stream(), m, 24*time.Hour)
		require.NoError(t, err)

		assert.Equal(t, "dash", got["type"])
		assert.Equal(t, float64(1080), got["resolution"])
		assert.Equal(t, true, got["proxied"])
		assert.Equal(t, "https://cdn.example/dash/index.mpd", got["originalUrl"])
		assert.Equal(t, map[string]any{}, got["headers"])

		u, ok := got["url"].(string)
		require.True(t, ok)
		token, ok := strings.CutPrefix(u, "https://proxy.example/proxy/")
		require.True(t, ok, u)
		c, err := Decode(token)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example/dash/index.mpd", c.URL)
		assert.Equal(t, map[string]string{
			"Referer": "https://app.example",
			"Cookie":  "CloudFront-Policy=x;CloudFront-Signature=y",
		}, c.Headers)
		assert.Equal(t, t0.Add(24*time.Hour).UnixMilli(), c.Expiry)
	})

	t.Run("input is not modified", func(t *testing.T) {
		in := stream()
		_, err := Convert(in, m, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, stream(), in)
	})

	t.Run("idempotent at the same instant", func(t *testing.T) {
		first, err := Convert(stream(), m, time.Hour)
		require.NoError(t, err)
		second, err := Convert(stream(), m, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("no url", func(t *testing.T) {
		in := map[string]any{"type": "dash", "headers": map[string]any{"Cookie": "a=b"}}
		got, err := Convert(in, m, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"type": "dash", "headers": map[string]any{"Cookie": "a=b"}}, got)
	})

	t.Run("empty url", func(t *testing.T) {
		in := map[string]any{"url": ""}
		got, err := Convert(in, m, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, in, got)
	})

	t.Run("string map headers", func(t *testing.T) {
		in := map[string]any{"url": "https://cdn.example/a.mp4", "headers": map[string]string{"Referer": "r"}}
		got, err := Convert(in, m, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, true, got["proxied"])
	})

	t.Run("no headers", func(t *testing.T) {
		in := map[string]any{"url": "https://cdn.example/a.mp4"}
		got, err := Convert(in, m, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{}, got["headers"])
	})

	t.Run("non-string header value", func(t *testing.T) {
		in := map[string]any{"url": "https://cdn.example/a.mp4", "headers": map[string]any{"X-A": 1}}
		_, err := Convert(in, m, time.Hour)
		assert.Error(t, err)
	})

	t.Run("invalid ttl", func(t *testing.T) {
		_, err := Convert(stream(), m, 0)
		assert.ErrorIs(t, err, internal.ErrInvalidTTL)
	})
}
