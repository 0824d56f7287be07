package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-reflect"

	"github.com/Dachi13/NetflixClone/bus/internal/pipeline"
	"github.com/Dachi13/NetflixClone/result"
)

var (
	// ErrUnregisteredCommandType возвращается в результате Dispatch, если для
	// типа команды не зарегистрирован обработчик.
	ErrUnregisteredCommandType = result.Failure("command.unregistered", "обработчик для команды не найден")

	// ErrDuplicateRegistration возвращается при повторной регистрации обработчика
	// для одного и того же типа команды.
	ErrDuplicateRegistration = pipeline.ErrDuplicate

	// ErrSealed возвращается при регистрации после вызова Build.
	ErrSealed = pipeline.ErrSealed

	// ErrNilHandler возвращается при регистрации nil-обработчика.
	ErrNilHandler = pipeline.ErrNilHandler

	// ErrNoBuilder возвращается при регистрации в nil или нулевом Builder.
	ErrNoBuilder = pipeline.ErrNoBuilder
)

var kind = pipeline.Kind{
	Name:         "command",
	Noun:         "команды",
	Unregistered: ErrUnregisteredCommandType,
}

// Builder собирает таблицу обработчиков команд. Создается только через NewBuilder.
type Builder struct {
	table *pipeline.Table
}

// NewBuilder создает новый построитель диспетчера команд.
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

// Register регистрирует обработчик для конкретного типа команды.
// Возвращает ошибку, если обработчик для данной команды уже зарегистрирован.
func Register[C Command[R], R any](b *Builder, handler Handler[C, R]) error {
	if handler == nil {
		return fmt.Errorf("%w: тип команды '%s'", ErrNilHandler, typeOf[C]())
	}
	if b == nil || b.table == nil {
		return fmt.Errorf("%w: тип команды '%s'", ErrNoBuilder, typeOf[C]())
	}

	return b.table.Add(typeOf[C](), handler, func(ctx context.Context, payload any) result.Status {
		cmd, _ := payload.(C)
		return handler.Handle(ctx, cmd)
	})
}

// RegisterFunc регистрирует функцию как обработчик команды C.
func RegisterFunc[C Command[R], R any](b *Builder, fn func(ctx context.Context, cmd C) result.Result[R]) error {
	if fn == nil {
		return fmt.Errorf("%w: тип команды '%s'", ErrNilHandler, typeOf[C]())
	}
	return Register[C, R](b, HandlerFunc[C, R](fn))
}

// MustRegister работает как Register, но паникует при ошибке.
func MustRegister[C Command[R], R any](b *Builder, handler Handler[C, R]) {
	if err := Register[C, R](b, handler); err != nil {
		panic(err)
	}
}

// Build завершает регистрацию и возвращает диспетчер.
func (b *Builder) Build() *Dispatcher {
	if b == nil || b.table == nil {
		return &Dispatcher{}
	}
	return &Dispatcher{router: b.table.Seal()}
}

// Dispatcher направляет команду ее единственному обработчику.
type Dispatcher struct {
	router *pipeline.Router
}

// Dispatch находит и выполняет обработчик для указанной команды.
// Обработчик ищется по статическому типу C, поэтому для интерфейсного C
// поиск идет по интерфейсу, а не по конкретному типу cmd.
func Dispatch[C Command[R], R any](ctx context.Context, d *Dispatcher, cmd C) result.Result[R] {
	if d == nil || d.router == nil {
		return result.Fail[R](ErrUnregisteredCommandType.WithMessage(
			"обработчик для команды '%s' не найден", typeOf[C]()))
	}

	return result.As[R](d.router.Dispatch(ctx, typeOf[C](), cmd))
}

// Handles сообщает, зарегистрирован ли обработчик для типа команды C.
func Handles[C Command[R], R any](d *Dispatcher) bool {
	return d != nil && d.router != nil && d.router.Handles(typeOf[C]())
}

// Len возвращает количество зарегистрированных обработчиков.
func (d *Dispatcher) Len() int {
	if d == nil || d.router == nil {
		return 0
	}
	return d.router.Len()
}

func typeOf[C any]() reflect.Type {
	return reflect.TypeOf((*C)(nil)).Elem()
}
