package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_WritesToRotatedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, closer, err := InitLogger(dir, true)
	require.NoError(t, err)

	logger.Debug("debug line", "k", "v")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "chatpanel.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"debug line"`)
	assert.Contains(t, string(data), `"service":"chatpanel"`)
}

func TestInitTelemetry(t *testing.T) {
	dir := t.TempDir()

	tracer, meter, cleanup, err := InitTelemetry(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, tracer)
	require.NotNil(t, meter)

	_, span := tracer.Start(context.Background(), "test_span")
	span.End()
	cleanup()

	data, err := os.ReadFile(filepath.Join(dir, "chatpanel_traces.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "test_span")
}

func TestNoop(t *testing.T) {
	tracer, meter := Noop()
	_, span := tracer.Start(context.Background(), "noop")
	span.End()
	assert.False(t, span.SpanContext().IsValid())

	_, err := meter.Int64Counter("c")
	assert.NoError(t, err)
}
