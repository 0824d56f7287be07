package query

import (
	"context"

	"github.com/Dachi13/NetflixClone/bus/internal/pipeline"
	"github.com/Dachi13/NetflixClone/result"
)

// Query представляет собой интерфейс-маркер для запроса, параметризованный
// типом возвращаемого значения R.
// Каждый запрос - это неизменяемый запрос на получение данных. Тип запроса
// объявляет тип ответа, встраивая Returns[R]:
//
//	type GetUserByID struct {
//		query.Returns[User]
//		ID int
//	}
type Query[R any] interface {
	queryResponse(R)
}

// Returns встраивается в тип запроса и связывает его с типом ответа R.
type Returns[R any] struct{}

func (Returns[R]) queryResponse(R) {}

// Handler обрабатывает запросы типа Q и возвращает результат с ответом R.
// Обработчик должен быть потокобезопасным: диспетчер не сериализует вызовы.
type Handler[Q Query[R], R any] interface {
	Handle(ctx context.Context, q Q) result.Result[R]
}

// HandlerFunc является адаптером, позволяющим использовать обычные функции
// как обработчики запросов.
type HandlerFunc[Q Query[R], R any] func(ctx context.Context, q Q) result.Result[R]

// Handle вызывает f(ctx, q).
func (f HandlerFunc[Q, R]) Handle(ctx context.Context, q Q) result.Result[R] {
	return f(ctx, q)
}

// Metadatable определяет интерфейс для запросов, которые могут нести метаданные.
// Из метаданных извлекается контекст трассировки.
type Metadatable = pipeline.Metadatable

type (
	// Envelope содержит запрос вместе с типом, по которому ищется обработчик.
	Envelope = pipeline.Envelope
	// Invoker описывает стертый по типу вызов обработчика, который оборачивают middleware.
	Invoker = pipeline.Invoker
	// Middleware определяет интерфейс для middleware шины запросов.
	Middleware = pipeline.Middleware
	// MiddlewareFunc является адаптером, позволяющим использовать обычные функции как middleware.
	MiddlewareFunc = pipeline.MiddlewareFunc
)
