// Package http exposes the subscription service as a JSON API.
package http

import (
	"encoding/json"
	"net/http"

	"subtrack/internal/core"
)

// ResponseBuilder assembles the JSON envelope. Success responses carry
// "success": true next to their payload fields; errors carry "error" and
// "code".
type ResponseBuilder struct {
	statusCode int
	fields     map[string]any
	headers    map[string]string
	err        error
}

func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		fields:     map[string]any{"success": true},
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Field sets one top-level envelope key.
func (b *ResponseBuilder) Field(key string, value any) *ResponseBuilder {
	b.fields[key] = value
	return b
}

// Data merges the JSON object form of v into the envelope.
func (b *ResponseBuilder) Data(v any) *ResponseBuilder {
	raw, err := json.Marshal(v)
	if err != nil {
		b.err = err
		return b
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		b.err = err
		return b
	}
	for k, val := range obj {
		b.fields[k] = val
	}
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.err != nil {
		ErrorResponse(core.WrapError(core.ErrorCodeInternal, "encode response", b.err)).Write(w)
		return
	}
	writeJSON(w, b.statusCode, b.fields)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// StatusForError maps a domain error code to its HTTP status.
func StatusForError(err error) int {
	switch core.GetErrorCode(err) {
	case core.ErrorCodeNotFound:
		return http.StatusNotFound
	case core.ErrorCodeValidationFailed, core.ErrorCodeSourceInvalid:
		return http.StatusBadRequest
	case core.ErrorCodeSourceUnavailable:
		return http.StatusServiceUnavailable
	case ErrorCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse renders err as a failure envelope. Internal failures get a
// generic message so storage details never leak.
func ErrorResponse(err error) *ResponseBuilder {
	status := StatusForError(err)
	code := core.GetErrorCode(err)
	message := core.GetMessage(err)
	if status == http.StatusInternalServerError {
		code = core.ErrorCodeInternal
		message = "internal error"
	}
	return &ResponseBuilder{
		statusCode: status,
		fields:     map[string]any{"success": false, "error": message, "code": code},
		headers:    make(map[string]string),
	}
}

// BadRequest is shorthand for a VALIDATION_FAILED response.
func BadRequest(message string) *ResponseBuilder {
	return ErrorResponse(core.NewDomainError(core.ErrorCodeValidationFailed, message))
}
