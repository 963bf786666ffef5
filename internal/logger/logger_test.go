package logger_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/cftracker/internal/logger"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logger.DEBUG, logger.ParseLevel("debug"))
	assert.Equal(t, logger.WARN, logger.ParseLevel("WARNING"))
	assert.Equal(t, logger.ERROR, logger.ParseLevel("ERROR"))
	assert.Equal(t, logger.INFO, logger.ParseLevel("nonsense"))
}

func TestLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithJSON(true), logger.WithLevel(logger.WARN))

	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("shown %d", 1)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown 1", lines[0]["message"])
	assert.Equal(t, "warn", lines[0]["level"])
}

func TestLogger_PrefixAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithJSON(true)).
		WithPrefix("sync").
		WithField("handle", "tourist").
		WithFields(map[string]any{"student_id": 7})

	log.Info("synced")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "sync", lines[0]["component"])
	assert.Equal(t, "tourist", lines[0]["handle"])
	assert.EqualValues(t, 7, lines[0]["student_id"])
	assert.Contains(t, lines[0]["caller"], "logger_test.go")
}

func TestLogger_WithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := logger.New(logger.WithOutput(&buf), logger.WithJSON(true))
	_ = parent.WithField("child", true)

	parent.Info("parent")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	_, ok := lines[0]["child"]
	assert.False(t, ok)
}

func TestFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Same(t, logger.Default(), logger.FromContext(ctx))

	l := logger.New()
	ctx = logger.NewContext(ctx, l)
	assert.Same(t, l, logger.FromContext(ctx))
}
