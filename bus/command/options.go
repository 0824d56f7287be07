package command

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// config содержит неэкспортируемую конфигурацию для шины команд.
type config struct {
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator
	middlewares    []Middleware
}

// Option изменяет конфигурацию шины команд.
type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(c *config) { c.tracerProvider = provider }
}

func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(c *config) { c.meterProvider = provider }
}

func WithPropagator(propagator propagation.TextMapPropagator) Option {
	return func(c *config) { c.propagator = propagator }
}

// WithMiddleware добавляет middleware после стандартных (логирование, метрики, трассировка).
func WithMiddleware(mw ...Middleware) Option {
	return func(c *config) { c.middlewares = append(c.middlewares, mw...) }
}
