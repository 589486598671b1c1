/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package traces

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jerry-enebeli/tally/config"
)

// ShutdownFunc flushes and stops whatever SetupOTelSDK started.
type ShutdownFunc func(context.Context) error

// SetupOTelSDK installs the global propagator and, when tracing is enabled, a tracer
// provider that batches spans to an OTLP/HTTP collector.
// With tracing disabled the global no-op provider stays in place and the returned
// shutdown does nothing.
func SetupOTelSDK(ctx context.Context, cnf config.TracingConfig) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(newPropagator())

	if !cnf.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(ctx, cnf)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(cnf.ServiceName)),
	)
	otel.SetTracerProvider(tracerProvider)

	return func(ctx context.Context) error {
		return errors.Join(tracerProvider.ForceFlush(ctx), tracerProvider.Shutdown(ctx))
	}, nil
}

func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

func newExporter(ctx context.Context, cnf config.TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{}
	if cnf.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cnf.Endpoint))
	}
	if cnf.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

func newResource(serviceName string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	)
}
