// Package correlation переносит идентификатор корреляции сообщений шины
// через context.Context.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// WithID возвращает контекст с заданным идентификатором корреляции.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext извлекает идентификатор корреляции из контекста.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Ensure возвращает идентификатор корреляции из контекста, а если его нет,
// генерирует новый UUID и кладет его в возвращаемый контекст.
func Ensure(ctx context.Context) (context.Context, string) {
	if id, ok := FromContext(ctx); ok {
		return ctx, id
	}

	id := uuid.NewString()
	return WithID(ctx, id), id
}
