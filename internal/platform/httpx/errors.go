// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ecoserv/ecoserv/internal/shared"
)

// RespondError maps domain errors to HTTP responses. Unexpected errors are
// logged with attrs (typically the resource id) and reported as 500.
func RespondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, attrs ...any) {
	var fields *shared.FieldErrors
	switch {
	case errors.As(err, &fields):
		JSON(w, http.StatusBadRequest, ErrorBody{Error: fields.Error(), Fields: fields.Fields})
	case errors.Is(err, shared.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrValidation):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrDuplicate), errors.Is(err, shared.ErrInvalidStatus):
		Error(w, http.StatusConflict, err.Error())
	default:
		if logger != nil {
			attrs = append(attrs,
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.Any("error", err),
			)
			logger.ErrorContext(r.Context(), "request failed", attrs...)
		}
		Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}
