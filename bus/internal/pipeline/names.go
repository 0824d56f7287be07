package pipeline

import (
	"fmt"
	"runtime"

	"github.com/goccy/go-reflect"
)

// TypeName возвращает короткое имя типа сообщения для логов и метрик.
// Для указателей используется имя базового типа.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}

// MessageID извлекает значение поля ID сообщения, если оно есть.
func MessageID(payload any) string {
	val := reflect.ValueOf(payload)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return "unknown"
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return "unknown"
	}

	if idField := val.FieldByName("ID"); idField.IsValid() && idField.CanInterface() {
		return fmt.Sprintf("%v", idField.Interface())
	}
	return "unknown"
}

// HandlerName извлекает имя обработчика.
func HandlerName(handler any) string {
	v := reflect.ValueOf(handler)
	if v.Kind() == reflect.Func {
		if pc := v.Pointer(); pc != 0 {
			if f := runtime.FuncForPC(pc); f != nil {
				return f.Name()
			}
		}
	}
	if t := reflect.TypeOf(handler); t != nil {
		return t.String()
	}
	return "<nil>"
}

func isNilHandler(handler any) bool {
	v := reflect.ValueOf(handler)
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Interface, reflect.Map, reflect.Chan, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
