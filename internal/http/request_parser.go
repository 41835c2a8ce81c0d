package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"subtrack/internal/core"
)

// MaxBodyBytes bounds every JSON request body.
const MaxBodyBytes = 1 << 20

// DecodeJSON reads exactly one JSON value into dst. Unknown fields,
// trailing data and oversized bodies are validation errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return core.NewDomainError(core.ErrorCodeValidationFailed, "request body is empty")
		case errors.As(err, &maxErr):
			return core.NewDomainError(core.ErrorCodeValidationFailed,
				fmt.Sprintf("request body exceeds %d bytes", MaxBodyBytes))
		default:
			return core.WrapError(core.ErrorCodeValidationFailed, "invalid JSON body: "+err.Error(), err)
		}
	}
	if dec.More() {
		return core.NewDomainError(core.ErrorCodeValidationFailed, "request body must hold a single JSON value")
	}
	return nil
}

// QueryBool parses a boolean query parameter, returning def when absent.
func QueryBool(r *http.Request, key string, def bool) (bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, core.NewDomainError(core.ErrorCodeValidationFailed,
			fmt.Sprintf("query parameter %s must be a boolean", key))
	}
	return b, nil
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, s))
}
