// Package result определяет Result, размеченное объединение успешного
// значения и типизированной ошибки, которое возвращают обработчики запросов
// и команд.
package result

import (
	"github.com/goccy/go-reflect"
)

// Status задает стертое по типу представление Result.
// Позволяет middleware и маршрутизатору работать с результатами любых
// обработчиков, не зная типа значения.
type Status interface {
	IsSuccess() bool
	Err() error
}

// Result содержит либо значение типа T, либо Error. Никогда оба сразу.
// Нулевое значение Result является неуспешным результатом с ErrUninitialized.
type Result[T any] struct {
	value T
	err   Error
	ok    bool
	set   bool
}

// Ok создает успешный результат.
// Nil-указатель, интерфейс, функция или канал не считаются значением:
// в этом случае возвращается неуспешный результат с ErrNilValue.
func Ok[T any](value T) Result[T] {
	if isNil(value) {
		return Fail[T](ErrNilValue)
	}
	return Result[T]{value: value, ok: true, set: true}
}

// Fail создает неуспешный результат.
func Fail[T any](err Error) Result[T] {
	return Result[T]{err: err, set: true}
}

// FailErr создает неуспешный результат из произвольной ошибки.
func FailErr[T any](err error) Result[T] {
	return Fail[T](FromError(err))
}

// IsSuccess сообщает, содержит ли результат значение.
func (r Result[T]) IsSuccess() bool {
	return r.ok
}

// IsFailure сообщает, содержит ли результат ошибку.
func (r Result[T]) IsFailure() bool {
	return !r.ok
}

// Value возвращает значение результата. Для неуспешного результата
// возвращается нулевое значение T.
func (r Result[T]) Value() T {
	return r.value
}

// Error возвращает ошибку результата и признак ее наличия.
func (r Result[T]) Error() (Error, bool) {
	if r.ok {
		return Error{}, false
	}
	if !r.set {
		return ErrUninitialized, true
	}
	return r.err, true
}

// Err возвращает ошибку результата как error или nil для успешного результата.
func (r Result[T]) Err() error {
	if e, failed := r.Error(); failed {
		return e
	}
	return nil
}

// Unwrap возвращает пару (значение, ошибка) в привычном для Go виде.
func (r Result[T]) Unwrap() (T, error) {
	return r.value, r.Err()
}

// Match вызывает onOk или onFail в зависимости от исхода.
func Match[T, U any](r Result[T], onOk func(T) U, onFail func(Error) U) U {
	if e, failed := r.Error(); failed {
		return onFail(e)
	}
	return onOk(r.value)
}

// Map преобразует значение успешного результата, ошибка переносится как есть.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if e, failed := r.Error(); failed {
		return Fail[U](e)
	}
	return Ok(fn(r.value))
}

// As восстанавливает типизированный результат из Status.
// Result[T] возвращается без изменений, чужая ошибка переносится,
// а успешный результат другого типа превращается в ErrTypeMismatch.
func As[T any](s Status) Result[T] {
	if s == nil {
		return Fail[T](ErrUninitialized)
	}
	if r, ok := s.(Result[T]); ok {
		return r
	}
	if !s.IsSuccess() {
		return Fail[T](FromError(s.Err()))
	}

	return Fail[T](ErrTypeMismatch.WithMessage(
		"ожидался результат типа '%s', получен '%s'", reflect.TypeOf((*Result[T])(nil)).Elem(), reflect.TypeOf(s)))
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
