// Package apperr is the error model shared by the asset lifecycle services.
//
// Services return *Error; the HTTP layer maps Kind to a status code and never
// exposes the wrapped storage error.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"AMS-backend/internal/platform/db"
)

type Kind string

const (
	KindValidation  Kind = "VALIDATION_ERROR"
	KindNotFound    Kind = "NOT_FOUND"
	KindConflict    Kind = "CONFLICT"
	KindTransaction Kind = "TRANSACTION_ERROR"
	KindInternal    Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }
func NotFound(msg string) *Error   { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error   { return &Error{Kind: KindConflict, Message: msg} }
func Internal(err error) *Error    { return &Error{Kind: KindInternal, Message: "internal error", Err: err} }
func Transaction(err error) *Error {
	return &Error{Kind: KindTransaction, Message: "transaction failed and was rolled back", Err: err}
}

// FieldErrors は項目別のバリデーション結果を貯める。
type FieldErrors map[string]string

func (f FieldErrors) Add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f FieldErrors) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		f.Add(field, "is required")
	}
}

// Err returns nil when nothing was recorded.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+f[k])
	}
	return &Error{Kind: KindValidation, Message: strings.Join(parts, "; "), Fields: map[string]string(f)}
}

func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func Is(err error, k Kind) bool { return err != nil && KindOf(err) == k }

// FromStorage classifies an error coming out of a transactional unit.
// Domain errors pass through; constraint violations become Conflict/Validation;
// anything else is a Transaction failure.
func FromStorage(err error, conflictMsg string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case db.IsDuplicateKey(err):
		return &Error{Kind: KindConflict, Message: conflictMsg, Err: err}
	case db.IsForeignKeyViolation(err):
		return &Error{Kind: KindValidation, Message: "referenced record does not exist", Err: err}
	default:
		return Transaction(err)
	}
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
