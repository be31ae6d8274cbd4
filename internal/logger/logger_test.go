package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coxswain-app/shoreline/internal/logger"
)

func TestNewLogger_WritesToWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := logger.NewLogger(logger.WithQuiet(), logger.WithWriter(&buf))

	l.Info("queue drained", "processed", 3)

	out := buf.String()
	assert.Contains(t, out, "queue drained")
	assert.Contains(t, out, "processed=3")
}

func TestNewLogger_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := logger.NewLogger(logger.WithQuiet(), logger.WithWriter(&buf), logger.WithFormat("json"))

	l.Warn("mutation dropped", "mutation", 7)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "mutation dropped", record["msg"])
	assert.Equal(t, float64(7), record["mutation"])
}

func TestNewLogger_DebugLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := logger.NewLogger(logger.WithQuiet(), logger.WithWriter(&buf))
	l.Debug("hidden")
	assert.Empty(t, buf.String(), "expected debug to be filtered at the default level")

	l = logger.NewLogger(logger.WithQuiet(), logger.WithWriter(&buf), logger.WithDebug())
	l.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := logger.NewLogger(logger.WithQuiet(), logger.WithWriter(&buf))

	ctx := logger.WithLogger(context.Background(), l)
	logger.Info(ctx, "from context")

	assert.Contains(t, buf.String(), "from context")
}

func TestWithValues(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := logger.NewLogger(logger.WithQuiet(), logger.WithWriter(&buf))

	ctx := logger.WithLogger(context.Background(), l)
	ctx = logger.WithValues(ctx, "group", "team-1")
	logger.Info(ctx, "scoped")

	assert.Contains(t, buf.String(), "group=team-1")
}
