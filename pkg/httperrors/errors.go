// Package httperrors переводит классы ошибок загрузки в HTTP-статусы.
package httperrors

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/yourname/chunk_upload/internal/logger"
	"github.com/yourname/chunk_upload/internal/models"
)

// Status возвращает HTTP-статус для ошибки.
func Status(err error) int {
	switch {
	case errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrIncompleteUpload):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Write отвечает клиенту текстом ошибки. Серверные ошибки логируются и уходят в Sentry
// (без DSN отправка ничего не делает).
func Write(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	if status >= http.StatusInternalServerError {
		logger.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")

		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		hub.CaptureException(err)
	}

	http.Error(w, err.Error(), status)
}
