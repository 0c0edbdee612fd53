// Package httpapi is the thin chi front door translating the wire envelope
// (spec §6) to/from execution.Service calls. It is a peripheral consumer of
// the core subsystems, not one of the four core subsystems itself.
//
// Grounded on wisbric-nightowl's internal/httpserver package: the same
// Respond/RespondError/Decode/Validate helper shape, and on gomind's
// orchestration/hitl_api.go for handlers written against a narrow
// interface over the concrete service.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Respond writes v as a JSON response with the given status code.
func Respond(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the shape of a non-execution HTTP error (malformed body,
// policy YAML import/export failure) — distinct from the execution failure
// envelope in spec §6, which always carries run_id/duration_ms.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RespondError writes a plain JSON error response for requests that did not
// produce an execution result (malformed body, policy YAML import/export
// failure). Unknown routes and methods get chi's default responses.
func RespondError(w http.ResponseWriter, status int, code, message string) {
	Respond(w, status, errorBody{Error: code, Message: message})
}

type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type validationErrorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details []validationError `json:"details"`
}

// decode reads a JSON request body into dst, capping size and rejecting
// unknown fields and trailing data.
func decode(r *http.Request, dst interface{}) error {
	const maxBody = 1 << 20 // 1 MiB

	body := http.MaxBytesReader(nil, r.Body, maxBody)
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			return fmt.Errorf("request body too large (max 1 MiB)")
		case errors.Is(err, io.EOF):
			return fmt.Errorf("request body is empty")
		default:
			return fmt.Errorf("invalid JSON: %w", err)
		}
	}
	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}

func fieldErrors(v interface{}) []validationError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []validationError{{Field: "", Message: err.Error()}}
	}
	out := make([]validationError, 0, len(ve))
	for _, fe := range ve {
		out = append(out, validationError{Field: jsonFieldName(fe), Message: fieldErrorMessage(fe)})
	}
	return out
}

// decodeAndValidate decodes a JSON body into dst and runs struct-tag
// validation, writing a response and returning false on either failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := decode(r, dst); err != nil {
		RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return false
	}
	if errs := fieldErrors(dst); len(errs) > 0 {
		Respond(w, http.StatusUnprocessableEntity, validationErrorBody{
			Error:   "validation_error",
			Message: "one or more fields failed validation",
			Details: errs,
		})
		return false
	}
	return true
}

func jsonFieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		ns = ns[idx+1:]
	}
	return toSnakeCase(ns)
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed on %q validation", fe.Tag())
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + 32)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
