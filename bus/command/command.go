package command

import (
	"context"

	"github.com/Dachi13/NetflixClone/bus/internal/pipeline"
	"github.com/Dachi13/NetflixClone/result"
)

// Command представляет собой интерфейс-маркер для команды, параметризованный
// типом возвращаемого значения R.
// Каждая команда - это уникальный запрос на выполнение операции. Тип ответа
// объявляется встраиванием Returns[R].
type Command[R any] interface {
	commandResponse(R)
}

// Returns встраивается в тип команды и связывает его с типом ответа R.
type Returns[R any] struct{}

func (Returns[R]) commandResponse(R) {}

// Handler выполняет команды типа C.
type Handler[C Command[R], R any] interface {
	Handle(ctx context.Context, cmd C) result.Result[R]
}

// HandlerFunc является адаптером, позволяющим использовать обычные функции
// как обработчики команд.
type HandlerFunc[C Command[R], R any] func(ctx context.Context, cmd C) result.Result[R]

// Handle вызывает f(ctx, cmd).
func (f HandlerFunc[C, R]) Handle(ctx context.Context, cmd C) result.Result[R] {
	return f(ctx, cmd)
}

// Metadatable определяет интерфейс для команд, которые могут нести метаданные.
type Metadatable = pipeline.Metadatable

type (
	// Envelope содержит команду вместе с типом, по которому ищется обработчик.
	Envelope = pipeline.Envelope
	// Invoker описывает стертый по типу вызов обработчика, который оборачивают middleware.
	Invoker = pipeline.Invoker
	// Middleware определяет интерфейс для middleware шины команд.
	Middleware = pipeline.Middleware
	// MiddlewareFunc является адаптером, позволяющим использовать обычные функции как middleware.
	MiddlewareFunc = pipeline.MiddlewareFunc
)
