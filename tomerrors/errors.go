// Package tomerrors defines the error kinds the dispatcher maps onto HTTP
// status codes. It generalizes the teacher's flat sentinel-error package
// into a constructible typed error, since every endpoint needs its own
// message while still being switchable by kind.
package tomerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the exhaustive error kinds from the error handling design.
type Kind int

const (
	BadRequest Kind = iota
	Unauthorized
	Forbidden
	NotFound
	Conflict
	Internal
)

// StatusCode returns the HTTP status code a Kind maps to.
func (k Kind) StatusCode() int {
	switch k {
	case BadRequest:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a typed error carrying a Kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New constructs an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind, wrapping an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// As reports whether err is (or wraps) a *Error, returning it if so.
func As(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// Sentinel errors used internally by tombola/registry for conditions that
// always map to the same kind; the dispatcher wraps these with New/Wrap
// when it needs a caller-specific message.
var (
	ErrGameNotFound        = New(NotFound, "game not found")
	ErrGameStarted         = New(Conflict, "game has already started")
	ErrPouchEmpty          = New(Conflict, "pouch is empty")
	ErrBoardAlreadyPresent = New(Conflict, "a board client is already registered for this game")
	ErrClientNotFound      = New(Unauthorized, "client is not registered")
	ErrNotJoined           = New(Forbidden, "client has not joined this game")
	ErrNotBoardClient      = New(Forbidden, "endpoint requires the game's board client")
	ErrCardNotOwned        = New(Forbidden, "card is not owned by this client")
	ErrCardNotFound        = New(NotFound, "card not found")
	ErrAlreadyHasCards     = New(Conflict, "client already has cards assigned in this game")
)
