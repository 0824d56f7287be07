package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Dachi13/NetflixClone/bus/correlation"
	"github.com/Dachi13/NetflixClone/result"
)

const (
	instrumentationName    = "github.com/Dachi13/NetflixClone/bus"
	instrumentationVersion = "0.1.0"
	metricKeyPrefix        = "messaging."
)

// Middleware определяет интерфейс для middleware шины.
type Middleware interface {
	Wrap(next Invoker) Invoker
}

// MiddlewareFunc является адаптером, позволяющим использовать обычные функции как middleware.
type MiddlewareFunc func(next Invoker) Invoker

// Wrap реализует интерфейс Middleware.
func (f MiddlewareFunc) Wrap(next Invoker) Invoker {
	return f(next)
}

// loggingMiddleware реализует Middleware для логирования диспетчеризации.
type loggingMiddleware struct {
	logger *slog.Logger
	kind   Kind
}

// NewLoggingMiddleware создает новое middleware для логирования.
func NewLoggingMiddleware(logger *slog.Logger, kind Kind) Middleware {
	if logger == nil {
		return noopMiddleware{}
	}
	return &loggingMiddleware{
		logger: logger,
		kind:   kind,
	}
}

// Wrap оборачивает вызов обработчика логированием.
func (m *loggingMiddleware) Wrap(next Invoker) Invoker {
	return func(ctx context.Context, env Envelope) result.Status {
		msgType, msgID := TypeName(env.Type), MessageID(env.Payload)
		correlationID, _ := correlation.FromContext(ctx)

		m.logger.InfoContext(ctx, "отправка "+m.kind.Noun,
			slog.String(m.kind.Name+"_type", msgType),
			slog.String(m.kind.Name+"_id", msgID),
			slog.String("correlation_id", correlationID),
		)

		startTime := time.Now()
		status := next(ctx, env)

		if err := statusErr(status); err != nil {
			m.logger.ErrorContext(ctx, "ошибка отправки "+m.kind.Noun,
				slog.String(m.kind.Name+"_type", msgType),
				slog.String(m.kind.Name+"_id", msgID),
				slog.String("correlation_id", correlationID),
				slog.Any("error", err),
				slog.Duration("duration", time.Since(startTime)),
			)
		}

		return status
	}
}

// metricsMiddleware реализует Middleware для сбора метрик OpenTelemetry.
type metricsMiddleware struct {
	kind                Kind
	dispatchCounter     metric.Int64Counter
	processDurationHist metric.Float64Histogram
}

// NewMetricsMiddleware создает новое middleware для сбора метрик.
func NewMetricsMiddleware(provider metric.MeterProvider, kind Kind) Middleware {
	if provider == nil {
		return noopMiddleware{}
	}

	meter := provider.Meter(instrumentationName, metric.WithInstrumentationVersion(instrumentationVersion))

	dispatchCounter, err := meter.Int64Counter(
		metricKeyPrefix+"dispatch.count",
		metric.WithDescription("Количество отправленных сообщений"),
		metric.WithUnit("{messages}"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать счетчик dispatch.count: %v", err))
	}

	processDurationHist, err := meter.Float64Histogram(
		metricKeyPrefix+"process.duration",
		metric.WithDescription("Длительность обработки сообщения"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать гистограмму process.duration: %v", err))
	}

	return &metricsMiddleware{
		kind:                kind,
		dispatchCounter:     dispatchCounter,
		processDurationHist: processDurationHist,
	}
}

// Wrap оборачивает вызов обработчика сбором метрик.
func (m *metricsMiddleware) Wrap(next Invoker) Invoker {
	return func(ctx context.Context, env Envelope) result.Status {
		startTime := time.Now()
		status := next(ctx, env)
		duration := float64(time.Since(startTime).Microseconds()) / 1000

		outcome := "success"
		if statusErr(status) != nil {
			outcome = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("messaging.kind", m.kind.Name),
			attribute.String(m.kind.Name+".type", TypeName(env.Type)),
			attribute.String("status", outcome),
		)
		m.dispatchCounter.Add(ctx, 1, attrs)
		m.processDurationHist.Record(ctx, duration, attrs)

		return status
	}
}

// tracingMiddleware реализует Middleware для распределенной трассировки OpenTelemetry.
type tracingMiddleware struct {
	kind       Kind
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewTracingMiddleware создает новое middleware для трассировки.
func NewTracingMiddleware(tp trace.TracerProvider, p propagation.TextMapPropagator, kind Kind) Middleware {
	if tp == nil {
		return noopMiddleware{}
	}

	if p == nil {
		p = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	}

	return &tracingMiddleware{
		kind: kind,
		tracer: tp.Tracer(
			instrumentationName,
			trace.WithInstrumentationVersion(instrumentationVersion),
		),
		propagator: p,
	}
}

// Wrap создает спан обработки сообщения. Контекст трассировки извлекается
// из метаданных сообщения, если они есть.
func (m *tracingMiddleware) Wrap(next Invoker) Invoker {
	return func(ctx context.Context, env Envelope) result.Status {
		if md, ok := env.Payload.(Metadatable); ok {
			if carrier := md.Metadata(); carrier != nil {
				ctx = m.propagator.Extract(ctx, propagation.MapCarrier(carrier))
			}
		}

		msgType := TypeName(env.Type)
		correlationID, _ := correlation.FromContext(ctx)

		ctx, span := m.tracer.Start(ctx, fmt.Sprintf("%s process", msgType),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				attribute.String("messaging.kind", m.kind.Name),
				attribute.String(m.kind.Name+".type", msgType),
				attribute.String("messaging.correlation_id", correlationID),
			),
		)
		defer span.End()

		status := next(ctx, env)
		if err := statusErr(status); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		return status
	}
}

// noopMiddleware представляет собой пустое middleware.
type noopMiddleware struct{}

// Wrap просто возвращает следующий вызов без изменений.
func (noopMiddleware) Wrap(next Invoker) Invoker {
	return next
}

// defaultMiddlewares собирает цепочку: логирование, метрики, трассировка,
// затем пользовательские middleware.
func defaultMiddlewares(cfg Config) []Middleware {
	all := []Middleware{
		NewLoggingMiddleware(cfg.Logger, cfg.Kind),
		NewMetricsMiddleware(cfg.MeterProvider, cfg.Kind),
		NewTracingMiddleware(cfg.TracerProvider, cfg.Propagator, cfg.Kind),
	}
	return append(all, cfg.Middlewares...)
}

// applyMiddlewares применяет цепочку middleware к базовому вызову.
// Первое middleware в списке оказывается внешним.
func applyMiddlewares(invoker Invoker, middlewares ...Middleware) Invoker {
	inv := invoker
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] == nil {
			continue
		}
		inv = middlewares[i].Wrap(inv)
	}
	return inv
}

func statusErr(s result.Status) error {
	if s == nil {
		return result.ErrUninitialized
	}
	if s.IsSuccess() {
		return nil
	}
	if err := s.Err(); err != nil {
		return err
	}
	return result.ErrUninitialized
}
