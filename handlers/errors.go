package handlers

import (
	"errors"
	"net/http"

	"folio/models"
	"folio/services/ordering"
	"folio/services/storage"
	"folio/utils"

	"github.com/gin-gonic/gin"
)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, storage.ErrUploadNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrPermissionDenied), errors.Is(err, models.ErrReadOnly):
		return http.StatusForbidden
	case errors.Is(err, models.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidPath):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrInvalidCategory):
		return http.StatusBadRequest
	case errors.Is(err, ordering.ErrSaveInFlight),
		errors.Is(err, storage.ErrUploadExists),
		errors.Is(err, storage.ErrNotRetriable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, message string, err error) {
	utils.JSONError(c, statusFor(err), message, err.Error())
}
