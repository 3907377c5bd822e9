package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
)

const (
	contentTypeHeader  = "Content-Type"
	applicationJSON    = "application/json"
	applicationProblem = "application/problem+json"

	problemTypeDefault = "about:blank"
)

type (
	fieldError struct {
		Field   string `json:"field"`
		Message string `json:"message"`
		Code    string `json:"code,omitempty"`
	}

	// problem is an RFC 7807 problem document.
	problem struct {
		Type        string       `json:"type"`
		Title       string       `json:"title"`
		Status      int          `json:"status"`
		Detail      string       `json:"detail,omitempty"`
		Instance    string       `json:"instance,omitempty"`
		RequestID   string       `json:"requestId,omitempty"`
		FieldErrors []fieldError `json:"fieldErrors,omitempty"`
	}
)

func writeJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set(contentTypeHeader, applicationJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string, fields []fieldError) {
	w.Header().Set(contentTypeHeader, applicationProblem)
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(problem{
		Type:        problemTypeDefault,
		Title:       http.StatusText(status),
		Status:      status,
		Detail:      detail,
		Instance:    r.URL.Path,
		RequestID:   logger.RequestID(r.Context()),
		FieldErrors: fields,
	})
}

// statusFor maps a domain error onto its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrPostNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrIdentityConflict),
		errors.Is(err, model.ErrDuplicatePost):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidFilterKind),
		errors.Is(err, model.ErrMalformedFilter),
		errors.Is(err, model.ErrInvalidSort),
		errors.Is(err, model.ErrInvalidPost),
		errors.Is(err, model.ErrCategoryNotFound),
		errors.Is(err, model.ErrResultWindowTooLarge),
		errors.Is(err, errInvalidPaging):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrSearchQuery):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as a problem. Internal failures never leak their
// message to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	detail := err.Error()
	if status >= http.StatusInternalServerError {
		detail = http.StatusText(status)
	}

	var fields []fieldError

	var validation *model.ValidationErrors
	if errors.As(err, &validation) {
		for _, e := range validation.Errors {
			fields = append(fields, fieldError{Field: e.Field, Message: e.Message, Code: e.Code})
		}
	}

	var filterErr *model.FilterError
	if errors.As(err, &filterErr) {
		fields = append(fields, fieldError{Field: filterErr.Field, Message: filterErr.Err.Error()})
	}

	writeProblem(w, r, status, detail, fields)
}
