package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestZerologLogger_LevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", "two")
	log.Warn(ctx, "wrn")
	log.Error(ctx, "err", "dangling")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 4)

	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, "dbg", lines[0]["message"])
	assert.EqualValues(t, 1, lines[0]["a"])

	assert.Equal(t, "info", lines[1]["level"])
	assert.Equal(t, "two", lines[1]["b"])

	assert.Equal(t, "warn", lines[2]["level"])

	assert.Equal(t, "error", lines[3]["level"])
	_, hasDangling := lines[3]["dangling"]
	assert.False(t, hasDangling)
}

func TestZerologLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf)).With("module", "web")

	log.Info(context.Background(), "hello", "k", "v")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "web", lines[0]["module"])
	assert.Equal(t, "v", lines[0]["k"])
}

func TestNew_SelectsBackend(t *testing.T) {
	var buf bytes.Buffer

	_, ok := New(BackendZerolog, &buf).(*ZerologLogger)
	assert.True(t, ok)

	_, ok = New(BackendSlog, &buf).(*SlogLogger)
	assert.True(t, ok)

	_, ok = New("unknown", &buf).(*SlogLogger)
	assert.True(t, ok)
}
