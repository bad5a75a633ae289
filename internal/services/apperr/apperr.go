// Package apperr is the error taxonomy shared by the services and the HTTP
// layer. Services wrap these with fmt.Errorf("...: %w", err); handlers map
// them to status codes with errors.Is / errors.As.
package apperr

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// NotFound wraps ErrNotFound with a user-facing message.
func NotFound(msg string) error { return &messageError{msg: msg, kind: ErrNotFound} }

// Conflict wraps ErrConflict with a user-facing message.
func Conflict(msg string) error { return &messageError{msg: msg, kind: ErrConflict} }

// Unauthorized wraps ErrUnauthorized with a user-facing message.
func Unauthorized(msg string) error { return &messageError{msg: msg, kind: ErrUnauthorized} }

type messageError struct {
	msg  string
	kind error
}

func (e *messageError) Error() string { return e.msg }
func (e *messageError) Unwrap() error { return e.kind }

// Message returns the innermost user-facing text of err.
func Message(err error) string {
	var m *messageError
	if errors.As(err, &m) {
		return m.msg
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Error()
	}
	var s *InsufficientStockError
	if errors.As(err, &s) {
		return s.Error()
	}
	return err.Error()
}

type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func Invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// Shortage describes one mix entry that exceeds the stock on hand.
type Shortage struct {
	TobaccoID uint    `json:"tobaccoId"`
	Name      string  `json:"name"`
	Requested float64 `json:"requested"`
	Available float64 `json:"available"`
	Shortfall float64 `json:"shortfall"`
}

type InsufficientStockError struct {
	Items []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		parts = append(parts, fmt.Sprintf("%s: нужно %gг, в наличии %gг", it.Name, it.Requested, it.Available))
	}
	return "Недостаточно табака на складе (" + strings.Join(parts, "; ") + ")"
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate runs the struct's `validate` tags and converts the first failure
// into a *ValidationError.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Msg: err.Error()}
	}
	fe := verrs[0]
	return &ValidationError{Field: fe.Field(), Msg: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "gt":
		return "должно быть больше " + fe.Param()
	case "gte":
		return "должно быть не меньше " + fe.Param()
	case "lte":
		return "должно быть не больше " + fe.Param()
	case "min":
		return "минимум " + fe.Param()
	case "max":
		return "максимум " + fe.Param()
	case "len":
		return "длина должна быть " + fe.Param()
	case "number", "numeric":
		return "допустимы только цифры"
	case "oneof":
		return "допустимые значения: " + fe.Param()
	default:
		return "недопустимое значение"
	}
}
