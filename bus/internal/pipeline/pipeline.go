// Package pipeline содержит общую для шин запросов и команд маршрутизацию:
// таблицу обработчиков, индексированную типом сообщения, и цепочку middleware.
// Типизированный API предоставляют пакеты bus/query и bus/command.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goccy/go-reflect"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Dachi13/NetflixClone/bus/correlation"
	"github.com/Dachi13/NetflixClone/result"
)

var (
	// ErrDuplicate возвращается при повторной регистрации обработчика для типа.
	ErrDuplicate = errors.New("обработчик уже зарегистрирован")
	// ErrSealed возвращается при регистрации после построения маршрутизатора.
	ErrSealed = errors.New("регистрация обработчиков завершена")
	// ErrNilHandler возвращается при попытке зарегистрировать nil.
	ErrNilHandler = errors.New("обработчик не может быть nil")
	// ErrNoBuilder возвращается при регистрации в построителе, созданном не через NewBuilder.
	ErrNoBuilder = errors.New("построитель не инициализирован")
)

// Kind описывает вид сообщений, которые обслуживает таблица.
type Kind struct {
	// Name используется в логах, метриках и трассировке: query или command.
	Name string
	// Noun задает существительное в родительном падеже для сообщений: "запроса".
	Noun string
	// Unregistered задает ошибку результата для сообщения без обработчика.
	Unregistered result.Error
}

// Envelope содержит сообщение вместе с типом, по которому ищется обработчик.
type Envelope struct {
	Type    reflect.Type
	Payload any
}

// Invoker описывает стертый по типу вызов обработчика.
type Invoker func(ctx context.Context, env Envelope) result.Status

// HandlerFunc описывает стертый по типу обработчик одного типа сообщений.
type HandlerFunc func(ctx context.Context, payload any) result.Status

// Metadatable определяет интерфейс для сообщений, которые могут нести метаданные.
type Metadatable interface {
	Metadata() map[string]string
}

// Config содержит конфигурацию таблицы и ее middleware.
type Config struct {
	Kind           Kind
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Propagator     propagation.TextMapPropagator
	Middlewares    []Middleware
}

type entry struct {
	name   string
	handle HandlerFunc
}

// Table накапливает регистрации на этапе сборки приложения.
// Методы потокобезопасны, но после Seal таблица только читается.
type Table struct {
	cfg     Config
	mu      sync.Mutex
	entries map[reflect.Type]entry
	sealed  bool
}

// NewTable создает пустую таблицу.
func NewTable(cfg Config) *Table {
	return &Table{
		cfg:     cfg,
		entries: make(map[reflect.Type]entry),
	}
}

// Add связывает тип сообщения typ с обработчиком.
// handler используется только для получения имени в логах.
func (t *Table) Add(typ reflect.Type, handler any, fn HandlerFunc) error {
	if fn == nil || isNilHandler(handler) {
		return fmt.Errorf("%w: тип %s '%s'", ErrNilHandler, t.cfg.Kind.Noun, typ)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed {
		return fmt.Errorf("%w: обработчик для %s '%s' не может быть добавлен", ErrSealed, t.cfg.Kind.Noun, typ)
	}

	name := HandlerName(handler)
	if existing, ok := t.entries[typ]; ok {
		err := fmt.Errorf("%w: обработчик для %s '%s' уже зарегистрирован (%s)", ErrDuplicate, t.cfg.Kind.Noun, typ, existing.name)
		if t.cfg.Logger != nil {
			t.cfg.Logger.Error("ошибка регистрации обработчика",
				slog.String("handler_name", name),
				slog.Any("error", err),
			)
		}
		return err
	}

	t.entries[typ] = entry{name: name, handle: fn}
	if t.cfg.Logger != nil {
		t.cfg.Logger.Info("регистрация обработчика "+t.cfg.Kind.Noun,
			slog.String(t.cfg.Kind.Name+"_type", TypeName(typ)),
			slog.String("handler_name", name),
		)
	}

	return nil
}

// Seal завершает регистрацию и возвращает неизменяемый маршрутизатор.
// Повторный вызов возвращает новый маршрутизатор с тем же содержимым.
func (t *Table) Seal() *Router {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sealed = true
	entries := make(map[reflect.Type]entry, len(t.entries))
	for k, v := range t.entries {
		entries[k] = v
	}

	r := &Router{
		kind:    t.cfg.Kind,
		entries: entries,
	}
	r.chain = applyMiddlewares(r.route, defaultMiddlewares(t.cfg)...)

	return r
}

// Router представляет неизменяемую таблицу маршрутизации. Поиск обработчика не
// требует блокировок.
type Router struct {
	kind    Kind
	entries map[reflect.Type]entry
	chain   Invoker
}

// Dispatch передает сообщение обработчику, зарегистрированному для typ,
// и возвращает его результат без изменений.
func (r *Router) Dispatch(ctx context.Context, typ reflect.Type, payload any) result.Status {
	ctx, _ = correlation.Ensure(ctx)
	return r.chain(ctx, Envelope{Type: typ, Payload: payload})
}

// Handles сообщает, зарегистрирован ли обработчик для типа.
func (r *Router) Handles(typ reflect.Type) bool {
	_, ok := r.entries[typ]
	return ok
}

// Len возвращает количество зарегистрированных обработчиков.
func (r *Router) Len() int {
	return len(r.entries)
}

func (r *Router) route(ctx context.Context, env Envelope) result.Status {
	e, ok := r.entries[env.Type]
	if !ok {
		return result.Fail[struct{}](r.kind.Unregistered.WithMessage(
			"обработчик для %s '%s' не найден", r.kind.Noun, env.Type))
	}

	return e.handle(ctx, env.Payload)
}
