// Package apierror provides the error envelope shared with the weighbridge
// server and the error taxonomy the client surfaces to the operator.
// Every failure the console shows goes through this package so that the
// message an operator reads is consistent across tables, tickets and the
// dashboard.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// APIError is the canonical error envelope for 4xx/5xx HTTP responses.
// The server uses the same {"detail": "..."} shape.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

func (e *APIError) Error() string { return e.Detail }

// ErrUnauthenticated is returned before any network call when no token is
// stored or the stored token has expired.
var ErrUnauthenticated = errors.New("Debe iniciar sesión para continuar.")

// ErrBusy is returned by a save attempted while another save holds the gate.
var ErrBusy = errors.New("hay un guardado en curso")

// ValidationError wraps field errors detected locally, before any request.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	detail := "Error de validacion"
	if len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for f := range fields {
			names = append(names, f)
		}
		sort.Strings(names)
		detail = fields[names[0]]
	}
	return &ValidationError{Detail: detail, Fields: fields}
}

func (e *ValidationError) Error() string { return e.Detail }

// HTTPError is a non-2xx response from the remote API.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Error del servidor (%d)", e.Status)
}

// FromResponse builds an HTTPError from a status and the raw body. The
// server's "detail" wins, then the status text, then a generic message.
func FromResponse(status int, detail string) *HTTPError {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &HTTPError{Status: status, Detail: detail}
}

// IsAuth reports whether err should send the operator back to the login form.
func IsAuth(err error) bool {
	if errors.Is(err, ErrUnauthenticated) {
		return true
	}
	var he *HTTPError
	return errors.As(err, &he) && he.Status == http.StatusUnauthorized
}

// IsValidation reports whether err was raised locally by field validation.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
