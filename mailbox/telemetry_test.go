package mailbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// brokenMeterProvider hands out meters that cannot create instruments.
type brokenMeterProvider struct{ noop.MeterProvider }

func (brokenMeterProvider) Meter(string, ...metric.MeterOption) metric.Meter { return brokenMeter{} }

type brokenMeter struct{ noop.Meter }

func (brokenMeter) Int64UpDownCounter(string, ...metric.Int64UpDownCounterOption) (metric.Int64UpDownCounter, error) {
	return nil, errors.New("instrument rejected")
}

func TestStart_InstrumentFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	m, _ := startCounter(t, WithMeterProvider(brokenMeterProvider{}))

	warned := logs.FilterMessage("mailbox depth instrument unavailable").All()
	require.Len(t, warned, 1)
	assert.Equal(t, "counter", warned[0].ContextMap()["mailbox"])

	n, err := Call(context.Background(), m, func(c *counter) (int, error) {
		c.n++
		return c.n, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
