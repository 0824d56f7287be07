package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-reflect"

	"github.com/Dachi13/NetflixClone/bus/internal/pipeline"
	"github.com/Dachi13/NetflixClone/result"
)

var (
	// ErrUnregisteredQueryType возвращается в результате Dispatch, если для типа
	// запроса не зарегистрирован обработчик.
	ErrUnregisteredQueryType = result.Failure("query.unregistered", "обработчик для запроса не найден")

	// ErrDuplicateRegistration возвращается при повторной регистрации обработчика
	// для одного и того же типа запроса.
	ErrDuplicateRegistration = pipeline.ErrDuplicate

	// ErrSealed возвращается при регистрации после вызова Build.
	ErrSealed = pipeline.ErrSealed

	// ErrNilHandler возвращается при регистрации nil-обработчика.
	ErrNilHandler = pipeline.ErrNilHandler

	// ErrNoBuilder возвращается при регистрации в nil или нулевом Builder.
	ErrNoBuilder = pipeline.ErrNoBuilder
)

var kind = pipeline.Kind{
	Name:         "query",
	Noun:         "запроса",
	Unregistered: ErrUnregisteredQueryType,
}

// Builder собирает таблицу обработчиков запросов при старте приложения.
// После Build регистрация закрывается. Создается только через NewBuilder.
type Builder struct {
	table *pipeline.Table
}

// NewBuilder создает новый построитель диспетчера.
// По умолчанию используется slog.Default().
func NewBuilder(opts ...Option) *Builder {
	cfg := &config{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &Builder{
		table: pipeline.NewTable(pipeline.Config{
			Kind:           kind,
			Logger:         cfg.logger,
			TracerProvider: cfg.tracerProvider,
			MeterProvider:  cfg.meterProvider,
			Propagator:     cfg.propagator,
			Middlewares:    cfg.middlewares,
		}),
	}
}

// Register связывает тип запроса Q с его обработчиком.
// Для каждого типа допускается ровно один обработчик: повторная регистрация
// возвращает ошибку, оборачивающую ErrDuplicateRegistration.
func Register[Q Query[R], R any](b *Builder, handler Handler[Q, R]) error {
	if handler == nil {
		return fmt.Errorf("%w: тип запроса '%s'", ErrNilHandler, typeOf[Q]())
	}
	if b == nil || b.table == nil {
		return fmt.Errorf("%w: тип запроса '%s'", ErrNoBuilder, typeOf[Q]())
	}

	return b.table.Add(typeOf[Q](), handler, func(ctx context.Context, payload any) result.Status {
		q, _ := payload.(Q)
		return handler.Handle(ctx, q)
	})
}

// RegisterFunc регистрирует функцию как обработчик запроса Q.
func RegisterFunc[Q Query[R], R any](b *Builder, fn func(ctx context.Context, q Q) result.Result[R]) error {
	if fn == nil {
		return fmt.Errorf("%w: тип запроса '%s'", ErrNilHandler, typeOf[Q]())
	}
	return Register[Q, R](b, HandlerFunc[Q, R](fn))
}

// MustRegister работает как Register, но паникует при ошибке.
// Предназначен для корня композиции, где неоднозначная маршрутизация
// должна останавливать запуск.
func MustRegister[Q Query[R], R any](b *Builder, handler Handler[Q, R]) {
	if err := Register[Q, R](b, handler); err != nil {
		panic(err)
	}
}

// Build завершает регистрацию и возвращает диспетчер.
// Для неинициализированного построителя диспетчер не содержит обработчиков.
func (b *Builder) Build() *Dispatcher {
	if b == nil || b.table == nil {
		return &Dispatcher{}
	}
	return &Dispatcher{router: b.table.Seal()}
}

// Dispatcher направляет запрос единственному обработчику, зарегистрированному
// для его типа. Таблица обработчиков неизменяема, поэтому Dispatcher можно
// использовать из любого количества горутин.
type Dispatcher struct {
	router *pipeline.Router
}

// Dispatch находит и выполняет обработчик для запроса q и возвращает его
// результат без изменений.
// Если обработчик для типа Q не зарегистрирован, возвращается неуспешный
// результат с ErrUnregisteredQueryType; ни один обработчик не вызывается.
//
// Обработчик ищется по статическому типу Q, а не по динамическому типу
// значения q. Если Q является интерфейсом, поиск идет по этому интерфейсу.
func Dispatch[Q Query[R], R any](ctx context.Context, d *Dispatcher, q Q) result.Result[R] {
	if d == nil || d.router == nil {
		return result.Fail[R](ErrUnregisteredQueryType.WithMessage(
			"обработчик для запроса '%s' не найден", typeOf[Q]()))
	}

	return result.As[R](d.router.Dispatch(ctx, typeOf[Q](), q))
}

// Handles сообщает, зарегистрирован ли обработчик для типа запроса Q.
func Handles[Q Query[R], R any](d *Dispatcher) bool {
	return d != nil && d.router != nil && d.router.Handles(typeOf[Q]())
}

// Len возвращает количество зарегистрированных обработчиков.
func (d *Dispatcher) Len() int {
	if d == nil || d.router == nil {
		return 0
	}
	return d.router.Len()
}

func typeOf[Q any]() reflect.Type {
	return reflect.TypeOf((*Q)(nil)).Elem()
}
