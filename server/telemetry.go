package server

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/opc-classic/errors"
)

const instrumentationName = "github.com/wippyai/opc-classic/server"

// telemetry holds the instruments shared by a server and its groups.
type telemetry struct {
	tracer        trace.Tracer
	requests      metric.Int64Counter
	notifications metric.Int64Counter
	duration      metric.Float64Histogram
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) *telemetry {
	t := &telemetry{tracer: tp.Tracer(instrumentationName)}
	meter := mp.Meter(instrumentationName)
	var err error
	if t.requests, err = meter.Int64Counter("opcda.server.requests",
		metric.WithUnit("{request}"),
		metric.WithDescription("Number of DA interface calls"),
	); err != nil {
		instrumentFailed("opcda.server.requests", err)
	}
	if t.notifications, err = meter.Int64Counter("opcda.server.notifications",
		metric.WithUnit("{notification}"),
		metric.WithDescription("Number of callbacks delivered to subscribers"),
	); err != nil {
		instrumentFailed("opcda.server.notifications", err)
	}
	if t.duration, err = meter.Float64Histogram("opcda.server.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of DA interface calls"),
	); err != nil {
		instrumentFailed("opcda.server.duration", err)
	}
	return t
}

// instrumentFailed logs an instrument the meter could not create. Calls
// keep working; a nil instrument is skipped when recording.
func instrumentFailed(name string, err error) {
	Logger().Warn("metric instrument unavailable",
		zap.String("instrument", name),
		zap.Error(err))
}

// call is one traced interface method invocation.
type call struct {
	t      *telemetry
	ctx    context.Context
	span   trace.Span
	method string
	start  time.Time
}

// start opens a server span for method. Use as
//
//	defer s.tel.start("IOPCServer.AddGroup").end(&err)
func (t *telemetry) start(method string, attrs ...attribute.KeyValue) *call {
	attrs = append(attrs,
		attribute.String("rpc.system", "opcda"),
		attribute.String("rpc.method", method),
	)
	ctx, span := t.tracer.Start(context.Background(), method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
	return &call{t: t, ctx: ctx, span: span, method: method, start: time.Now()}
}

// end records the outcome held in *err.
func (c *call) end(err *error) {
	var e error
	if err != nil {
		e = *err
	}
	hr := errors.HResult(e)

	status := "ok"
	if e != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("rpc.method", c.method),
		attribute.String("status", status),
	)
	if c.t.requests != nil {
		c.t.requests.Add(c.ctx, 1, attrs)
	}
	if c.t.duration != nil {
		c.t.duration.Record(c.ctx, time.Since(c.start).Seconds(), attrs)
	}

	if c.span.IsRecording() {
		c.span.SetAttributes(attribute.String("opcda.hresult", hr.String()))
		if e != nil {
			c.span.RecordError(e)
			c.span.SetStatus(codes.Error, e.Error())
		}
	}
	c.span.End()
}

// notified counts callbacks delivered for kind.
func (t *telemetry) notified(kind string, n int) {
	if t.notifications == nil || n == 0 {
		return
	}
	t.notifications.Add(context.Background(), int64(n),
		metric.WithAttributes(attribute.String("callback", kind)))
}
