package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-reflect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Dachi13/NetflixClone/bus/correlation"
	"github.com/Dachi13/NetflixClone/result"
)

var testKind = Kind{
	Name:         "query",
	Noun:         "запроса",
	Unregistered: result.Failure("query.unregistered", "обработчик не найден"),
}

type getUser struct {
	ID       int
	metadata map[string]string
}

func (q getUser) Metadata() map[string]string { return q.metadata }

type getOrder struct {
	ID int
}

var (
	getUserType  = reflect.TypeOf(getUser{})
	getOrderType = reflect.TypeOf(getOrder{})
)

func okHandler(calls *atomic.Int32) HandlerFunc {
	return func(ctx context.Context, payload any) result.Status {
		calls.Add(1)
		return result.Ok(payload.(getUser).ID)
	}
}

func failHandler(ctx context.Context, payload any) result.Status {
	return result.Fail[int](result.NotFound("user.not_found", "пользователь не найден"))
}

func TestTable_Add_Duplicate(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	table := NewTable(Config{Kind: testKind})

	require.NoError(t, table.Add(getUserType, okHandler(&calls), okHandler(&calls)))

	err := table.Add(getUserType, failHandler, failHandler)
	require.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "обработчик для запроса 'pipeline.getUser' уже зарегистрирован")
}

func TestTable_Add_AfterSeal(t *testing.T) {
	t.Parallel()

	table := NewTable(Config{Kind: testKind})
	table.Seal()

	err := table.Add(getUserType, failHandler, failHandler)
	require.ErrorIs(t, err, ErrSealed)
}

func TestTable_Add_NilHandler(t *testing.T) {
	t.Parallel()

	table := NewTable(Config{Kind: testKind})

	var fn HandlerFunc
	require.ErrorIs(t, table.Add(getUserType, fn, fn), ErrNilHandler)
}

func TestRouter_SealSnapshotsEntries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	table := NewTable(Config{Kind: testKind})
	require.NoError(t, table.Add(getUserType, okHandler(&calls), okHandler(&calls)))

	router := table.Seal()
	assert.True(t, router.Handles(getUserType))
	assert.False(t, router.Handles(getOrderType))
	assert.Equal(t, 1, router.Len())
}

func TestRouter_Dispatch(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	table := NewTable(Config{Kind: testKind})
	require.NoError(t, table.Add(getUserType, okHandler(&calls), okHandler(&calls)))
	router := table.Seal()

	status := router.Dispatch(context.Background(), getUserType, getUser{ID: 7})
	require.True(t, status.IsSuccess())
	assert.Equal(t, result.Ok(7), result.As[int](status))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRouter_Dispatch_Unregistered(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	table := NewTable(Config{Kind: testKind})
	require.NoError(t, table.Add(getUserType, okHandler(&calls), okHandler(&calls)))
	router := table.Seal()

	status := router.Dispatch(context.Background(), getOrderType, getOrder{ID: 99})

	require.False(t, status.IsSuccess())
	assert.ErrorIs(t, status.Err(), testKind.Unregistered)
	assert.Contains(t, status.Err().Error(), "обработчик для запроса 'pipeline.getOrder' не найден")
	assert.Zero(t, calls.Load(), "ни один обработчик не должен вызываться")
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	t.Parallel()

	var order []string
	record := func(name string) Middleware {
		return MiddlewareFunc(func(next Invoker) Invoker {
			return func(ctx context.Context, env Envelope) result.Status {
				order = append(order, name+":до")
				s := next(ctx, env)
				order = append(order, name+":после")
				return s
			}
		})
	}

	table := NewTable(Config{
		Kind:        testKind,
		Middlewares: []Middleware{record("первый"), nil, record("второй")},
	})
	require.NoError(t, table.Add(getUserType, failHandler, func(ctx context.Context, payload any) result.Status {
		order = append(order, "обработчик")
		return result.Ok(1)
	}))

	table.Seal().Dispatch(context.Background(), getUserType, getUser{})

	assert.Equal(t, []string{"первый:до", "второй:до", "обработчик", "второй:после", "первый:после"}, order)
}

func TestRouter_CorrelationID(t *testing.T) {
	t.Parallel()

	var seen string
	table := NewTable(Config{Kind: testKind})
	require.NoError(t, table.Add(getUserType, failHandler, func(ctx context.Context, payload any) result.Status {
		seen, _ = correlation.FromContext(ctx)
		return result.Ok(1)
	}))
	router := table.Seal()

	router.Dispatch(correlation.WithID(context.Background(), "req-42"), getUserType, getUser{})
	assert.Equal(t, "req-42", seen)

	router.Dispatch(context.Background(), getUserType, getUser{})
	assert.NotEmpty(t, seen, "идентификатор корреляции должен генерироваться")
	assert.NotEqual(t, "req-42", seen)
}

func TestLoggingMiddleware(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	table := NewTable(Config{Kind: testKind, Logger: logger})
	require.NoError(t, table.Add(getUserType, failHandler, failHandler))
	router := table.Seal()

	router.Dispatch(correlation.WithID(context.Background(), "req-1"), getUserType, getUser{ID: 5})

	out := buf.String()
	assert.Contains(t, out, "регистрация обработчика запроса")
	assert.Contains(t, out, "отправка запроса")
	assert.Contains(t, out, "ошибка отправки запроса")
	assert.Contains(t, out, `"query_type":"getUser"`)
	assert.Contains(t, out, `"query_id":"5"`)
	assert.Contains(t, out, `"correlation_id":"req-1"`)
	assert.Contains(t, out, "user.not_found")
}

func TestMetricsMiddleware(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	var calls atomic.Int32
	table := NewTable(Config{Kind: testKind, MeterProvider: mp})
	require.NoError(t, table.Add(getUserType, okHandler(&calls), okHandler(&calls)))
	router := table.Seal()

	ctx := context.Background()
	router.Dispatch(ctx, getUserType, getUser{ID: 1})
	router.Dispatch(ctx, getUserType, getUser{ID: 2})
	router.Dispatch(ctx, getOrderType, getOrder{ID: 3})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	counts := map[string]int64{}
	var histogramFound bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case "messaging.dispatch.count":
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				for _, dp := range sum.DataPoints {
					typ, _ := dp.Attributes.Value(attribute.Key("query.type"))
					status, _ := dp.Attributes.Value(attribute.Key("status"))
					counts[typ.AsString()+"/"+status.AsString()] += dp.Value
				}
			case "messaging.process.duration":
				histogramFound = true
			}
		}
	}

	assert.Equal(t, map[string]int64{"getUser/success": 2, "getOrder/error": 1}, counts)
	assert.True(t, histogramFound, "гистограмма длительности должна быть записана")
}

func TestTracingMiddleware(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	propagator := propagation.TraceContext{}

	// Родительский спан передается через метаданные запроса.
	parentCtx, parent := tp.Tracer("test").Start(context.Background(), "parent")
	md := map[string]string{}
	propagator.Inject(parentCtx, propagation.MapCarrier(md))
	parent.End()

	table := NewTable(Config{Kind: testKind, TracerProvider: tp, Propagator: propagator})
	require.NoError(t, table.Add(getUserType, failHandler, failHandler))
	router := table.Seal()

	router.Dispatch(context.Background(), getUserType, getUser{ID: 1, metadata: md})

	var processSpan sdktrace.ReadOnlySpan
	for _, s := range recorder.Ended() {
		if s.Name() == "getUser process" {
			processSpan = s
		}
	}
	require.NotNil(t, processSpan, "спан обработки должен быть записан")

	assert.Equal(t, codes.Error, processSpan.Status().Code)
	assert.Equal(t, parent.SpanContext().TraceID(), processSpan.Parent().TraceID())
	assert.Len(t, processSpan.Events(), 1, "ошибка должна быть записана в спан")
}

func TestNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "getUser", TypeName(reflect.TypeOf(&getUser{})))
	assert.Equal(t, "42", MessageID(getUser{ID: 42}))
	assert.Equal(t, "42", MessageID(&getUser{ID: 42}))
	assert.Equal(t, "unknown", MessageID("строка"))
	assert.Contains(t, HandlerName(failHandler), "failHandler")
}
