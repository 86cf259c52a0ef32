package telemetry

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/wippyai/opc-classic/config"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestInit_Disabled(t *testing.T) {
	before := otel.GetTracerProvider()
	shutdown, err := Init(context.Background(), config.Telemetry{Traces: "stdout"}, &syncBuffer{})
	require.NoError(t, err)
	assert.Equal(t, before, otel.GetTracerProvider())
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_Stdout(t *testing.T) {
	tp, mp := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	})

	var out syncBuffer
	cfg := config.Default().Telemetry
	cfg.Enabled = true
	shutdown, err := Init(context.Background(), cfg, &out)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "opcda.test")
	span.End()
	counter, err := otel.Meter("test").Int64Counter("opcda.test.count")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	// Shutdown flushes the batcher and the periodic reader.
	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, out.String(), "opcda.test")
	assert.Contains(t, out.String(), "opcda.test.count")
	assert.Contains(t, out.String(), ServiceName)
}

func TestInit_MetricsOnly(t *testing.T) {
	tp := otel.GetTracerProvider()
	mp := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(mp) })

	shutdown, err := Init(context.Background(), config.Telemetry{Enabled: true, Traces: "none", Metrics: "stdout"}, &syncBuffer{})
	require.NoError(t, err)
	assert.Equal(t, tp, otel.GetTracerProvider())
	assert.NoError(t, shutdown(context.Background()))
}
