// Package telemetry installs the OpenTelemetry providers the server and
// mailbox packages report to.
//
// Init builds a tracer and a meter provider with stdout exporters,
// installs them as the otel globals and returns a shutdown function that
// flushes both:
//
//	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	defer shutdown(context.Background())
//
// A disabled configuration installs nothing and returns a no-op shutdown.
package telemetry

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/wippyai/opc-classic/config"
	"github.com/wippyai/opc-classic/errors"
)

// ServiceName is the service.name resource attribute.
const ServiceName = "opcda"

// Shutdown flushes and stops the installed providers.
type Shutdown func(context.Context) error

// Init installs the providers cfg enables. Exporters write to w.
func Init(ctx context.Context, cfg config.Telemetry, w io.Writer) (Shutdown, error) {
	var stops []Shutdown
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(stops) - 1; i >= 0; i-- {
			errs = append(errs, stops[i](ctx))
		}
		return stderrors.Join(errs...)
	}
	if !cfg.Enabled {
		return shutdown, nil
	}

	res := resource.NewWithAttributes("", attribute.String("service.name", ServiceName))

	if cfg.Traces == "stdout" {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindForeign, err, "trace exporter")
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		stops = append(stops, tp.Shutdown)
	}

	if cfg.Metrics == "stdout" {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			_ = shutdown(ctx)
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindForeign, err, "metric exporter")
		}
		interval := cfg.Interval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		stops = append(stops, mp.Shutdown)
	}

	return shutdown, nil
}
