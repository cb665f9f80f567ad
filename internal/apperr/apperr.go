// Package apperr defines the code-tagged error kinds shared across the
// core. Background workers log these at the tick boundary; the HTTP
// layer translates them into {success:false, error, code} payloads.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a stable error category.
type Kind string

const (
	KindNotConfigured Kind = "NOT_CONFIGURED"
	KindNotFound      Kind = "NOT_FOUND"
	KindValidation    Kind = "VALIDATION"
	KindConflict      Kind = "CONFLICT"
	KindIntegration   Kind = "INTEGRATION"
	KindPathTraversal Kind = "PATH_TRAVERSAL"
	KindDatabase      Kind = "DATABASE"
	KindFileSystem    Kind = "FILESYSTEM"
)

// Error is a kind-tagged error. Service carries the upstream name for
// integration errors ("prowlarr", "qbittorrent", "igdb").
type Error struct {
	Kind    Kind
	Service string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Service != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Service, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Service != "":
		return fmt.Sprintf("%s: %s", e.Service, e.Message)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the kind to the boundary status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotConfigured, KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindPathTraversal:
		return http.StatusForbidden
	case KindIntegration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func NotConfigured(service, message string) error {
	return &Error{Kind: KindNotConfigured, Service: service, Message: message}
}

func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Validation(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func Conflict(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

func Integration(service, message string, err error) error {
	return &Error{Kind: KindIntegration, Service: service, Message: message, Err: err}
}

func PathTraversal(path string) error {
	return &Error{Kind: KindPathTraversal, Message: fmt.Sprintf("path %q resolves outside allowed roots", path)}
}

func Database(message string, err error) error {
	return &Error{Kind: KindDatabase, Message: message, Err: err}
}

func FileSystem(message string, err error) error {
	return &Error{Kind: KindFileSystem, Message: message, Err: err}
}

// KindOf returns the kind of err, or "" if err is not an apperr.Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsNotConfigured reports whether err is a configuration-missing error.
func IsNotConfigured(err error) bool { return Is(err, KindNotConfigured) }

// IsNotFound reports whether err is an entity-missing error.
func IsNotFound(err error) bool { return Is(err, KindNotFound) }

// HTTPStatus returns the boundary status code for any error.
// Unrecognized errors map to 500.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}
