package result

import (
	"errors"
	"fmt"
)

// ErrorType классифицирует ошибку результата.
type ErrorType int

const (
	TypeFailure ErrorType = iota
	TypeValidation
	TypeNotFound
	TypeConflict
	TypeUnauthorized
	TypeUnexpected
)

// String возвращает имя типа ошибки.
func (t ErrorType) String() string {
	switch t {
	case TypeFailure:
		return "failure"
	case TypeValidation:
		return "validation"
	case TypeNotFound:
		return "not_found"
	case TypeConflict:
		return "conflict"
	case TypeUnauthorized:
		return "unauthorized"
	case TypeUnexpected:
		return "unexpected"
	default:
		return fmt.Sprintf("error_type(%d)", int(t))
	}
}

// Error описывает неуспешный исход операции.
// Две ошибки считаются одинаковыми для errors.Is, если совпадают их коды.
type Error struct {
	Type    ErrorType
	Code    string
	Message string
}

var (
	// ErrNilValue возвращается, когда успешный результат пытаются создать из nil.
	ErrNilValue = Unexpected("result.nil_value", "значение успешного результата не может быть nil")

	// ErrUninitialized описывает нулевое значение Result, созданное без конструктора.
	ErrUninitialized = Unexpected("result.uninitialized", "результат не был инициализирован")

	// ErrTypeMismatch означает, что успешный результат имеет не тот тип значения.
	ErrTypeMismatch = Unexpected("result.type_mismatch", "тип значения результата не совпадает с ожидаемым")
)

// NewError создает ошибку результата.
func NewError(t ErrorType, code, message string) Error {
	return Error{Type: t, Code: code, Message: message}
}

func Failure(code, message string) Error      { return NewError(TypeFailure, code, message) }
func Validation(code, message string) Error   { return NewError(TypeValidation, code, message) }
func NotFound(code, message string) Error     { return NewError(TypeNotFound, code, message) }
func Conflict(code, message string) Error     { return NewError(TypeConflict, code, message) }
func Unauthorized(code, message string) Error { return NewError(TypeUnauthorized, code, message) }
func Unexpected(code, message string) Error   { return NewError(TypeUnexpected, code, message) }

// Error реализует интерфейс error.
func (e Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is сравнивает ошибки по коду.
func (e Error) Is(target error) bool {
	var t Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMessage возвращает копию ошибки с уточненным сообщением.
// Код и тип сохраняются, поэтому errors.Is продолжает работать.
func (e Error) WithMessage(format string, args ...any) Error {
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// FromError приводит произвольную ошибку к Error.
// Если в цепочке уже есть Error, возвращается она, иначе ошибка
// считается непредвиденной.
func FromError(err error) Error {
	if err == nil {
		return ErrUninitialized
	}

	var e Error
	if errors.As(err, &e) {
		return e
	}
	return Unexpected("unexpected", err.Error())
}
