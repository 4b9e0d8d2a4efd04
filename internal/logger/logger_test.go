package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	FromContext(ctx).Info().Str("kind", "payment").Msg("settled")
	FromContext(ctx).Warn().Msg("retrying")

	assert.Contains(t, buf.String(), "settled")
	assert.Contains(t, buf.String(), `"kind":"payment"`)
	assert.Contains(t, buf.String(), "retrying")
}

func TestFromContext_ScopedLoggerDoesNotLeak(t *testing.T) {
	buf := &bytes.Buffer{}
	base := NewWithWriter(buf)
	ctx := WithContext(context.Background(), base)

	scoped := FromContext(ctx).With().Str("request_id", "r-1").Logger()
	child := WithContext(ctx, scoped)

	FromContext(child).Info().Msg("child")
	FromContext(ctx).Info().Msg("parent")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if assert.Len(t, lines, 2) {
		assert.Contains(t, string(lines[0]), "r-1")
		assert.NotContains(t, string(lines[1]), "r-1")
	}
}

func TestFromContext_Default(t *testing.T) {
	l := FromContext(context.Background())
	assert.NotEqual(t, zerolog.Disabled, l.GetLevel())
}
