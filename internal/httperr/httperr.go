// Package httperr defines the pipeline's error taxonomy and the
// normalizer that turns any stage failure into the single
// {"error":<message>} response shape.
package httperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/owenvale/shopfront/internal/log"
	"github.com/owenvale/shopfront/internal/xerrors"
)

// Kind classifies pipeline failures for metrics and logs.
type Kind string

const (
	KindPayload   Kind = "payload"
	KindRateLimit Kind = "rate_limit"
	KindNotFound  Kind = "not_found"
	KindHandler   Kind = "handler"
	KindInternal  Kind = "internal"
)

// Error is a pipeline failure with an HTTP status. Typed errors keep
// their message in every mode; only untyped failures are masked in
// production.
type Error struct {
	Status  int
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// Payload marks an oversized or malformed request body.
func Payload(status int, msg string, err error) *Error {
	return &Error{Status: status, Kind: KindPayload, Message: msg, Err: err}
}

// NotFoundAPI is the fixed 404 for unmatched API paths.
func NotFoundAPI() *Error {
	return &Error{Status: http.StatusNotFound, Kind: KindNotFound, Message: "API endpoint not found"}
}

// NotFound is a scoped 404 raised by route-group handlers.
func NotFound(msg string) *Error {
	return &Error{Status: http.StatusNotFound, Kind: KindNotFound, Message: msg}
}

// Handler wraps an opaque failure from a delegated route group.
func Handler(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Kind: KindHandler, Err: err}
}

// BadRequest is a 400 with a caller-facing message.
func BadRequest(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Kind: KindHandler, Message: msg}
}

// Unauthorized is a 401 with a caller-facing message.
func Unauthorized(msg string) *Error {
	return &Error{Status: http.StatusUnauthorized, Kind: KindHandler, Message: msg}
}

type errBody struct {
	Error string `json:"error"`
}

// WriteJSON writes {"error": msg} with the given status.
func WriteJSON(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errBody{Error: msg})
}

// Normalizer is the pipeline's terminal error stage. It logs every
// failure, maps it to a status and message, and writes the uniform
// JSON error shape. It never re-raises: a request that reaches it
// always gets a response.
type Normalizer struct {
	Logger     log.Logger
	Production bool

	// OnError, if set, receives the error kind (metrics counter).
	OnError func(kind string)
}

func NewNormalizer(l log.Logger, production bool, onError func(kind string)) *Normalizer {
	if l == nil {
		l = log.Nop()
	}
	return &Normalizer{Logger: l, Production: production, OnError: onError}
}

// Write normalizes err onto w. Status defaults to 500 unless the
// originating stage assigned one via *Error.
func (n *Normalizer) Write(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	kind := KindInternal
	msg := ""

	var pe *Error
	if errors.As(err, &pe) {
		if pe.Status != 0 {
			status = pe.Status
		}
		kind = pe.Kind
		msg = pe.Message
	}

	logErr := err
	if pe == nil || pe.Err != nil {
		logErr = xerrors.EnsureTrace(err)
	}
	n.Logger.Error(r.Context(), logErr, "request failed",
		"http.response.status_code", status,
		"error_kind", string(kind),
		"url.path", r.URL.Path,
	)
	if n.OnError != nil {
		n.OnError(string(kind))
	}

	// Untyped failures and handler wrap errors without a message fall
	// back to the raw detail in development, masked in production.
	if msg == "" {
		if n.Production {
			msg = "Internal server error"
		} else {
			msg = err.Error()
		}
	}

	WriteJSON(w, status, msg)
}
