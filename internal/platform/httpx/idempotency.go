package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ecoserv/ecoserv/internal/shared"
)

// IdempotencyStore records processed Idempotency-Key values.
type IdempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Idempotent rejects a POST whose Idempotency-Key was already used on the same
// path. The key is released when the handler fails so the client may retry.
func Idempotent(store IdempotencyStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(shared.IdempotencyHeader)
			if store == nil || key == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			module := r.URL.Path
			if err := store.CheckAndInsert(r.Context(), key, module); err != nil {
				if errors.Is(err, shared.ErrDuplicate) {
					Error(w, http.StatusConflict, err.Error())
					return
				}
				RespondError(w, r, logger, err, slog.String("idempotency_key", key))
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if ww.Status() >= http.StatusBadRequest {
				if err := store.Delete(context.WithoutCancel(r.Context()), key, module); err != nil && logger != nil {
					logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", err))
				}
			}
		})
	}
}
