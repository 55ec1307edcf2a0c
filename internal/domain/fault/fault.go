package fault

import (
	"errors"
	"net/http"
)

// Kind classifies a failure for display and policy decisions.
type Kind string

const (
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindNetwork    Kind = "network"
	KindServer     Kind = "server"
)

// Error is the uniform error shape surfaced by the API client and draft validation.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, 0 when the request never completed
	Message string // user-facing message
	Fields  map[string]string
	Err     error // underlying cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error of the given kind.
func New(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

// Network wraps a transport failure.
func Network(err error) *Error {
	return &Error{Kind: KindNetwork, Message: "Erreur réseau : le serveur est injoignable", Err: err}
}

// Validation builds a validation error carrying per-field messages.
// PRE: fields maps a form field name to a message
// POST: returns a KindValidation error with Status 0 (caught before any request)
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "Tous les champs sont requis.", Fields: fields}
}

// KindFromStatus maps a backend HTTP status to a Kind.
func KindFromStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindAuth
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	default:
		return KindServer
	}
}

// KindOf extracts the Kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	return KindOf(err) == KindAuth
}

// FieldsOf returns per-field validation messages carried by err, if any.
func FieldsOf(err error) map[string]string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Fields
	}
	return nil
}
