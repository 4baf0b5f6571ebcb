package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/leg100/tokenproxy/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	t.Run("help", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, parseFlags(context.Background(), []string{"-h"}, &out))
		assert.Contains(t, out.String(), "--max-upstream-conns")
		assert.Contains(t, out.String(), "--log-format")
	})

	t.Run("version", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, parseFlags(context.Background(), []string{"--version"}, &out))
		assert.Equal(t, internal.Version+"\n", out.String())
	})

	t.Run("invalid secret", func(t *testing.T) {
		var out bytes.Buffer
		err := parseFlags(context.Background(), []string{"--secret", "not-hex"}, &out)
		assert.Error(t, err)
	})

	t.Run("invalid secret from env var", func(t *testing.T) {
		t.Setenv("TOKENPROXY_SECRET", "abcd")
		var out bytes.Buffer
		err := parseFlags(context.Background(), nil, &out)
		assert.Error(t, err)
	})

	t.Run("invalid log format", func(t *testing.T) {
		var out bytes.Buffer
		err := parseFlags(context.Background(), []string{"--log-format", "xml", "--address", "127.0.0.1:0"}, &out)
		assert.Error(t, err)
	})
}
