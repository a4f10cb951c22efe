package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-reader/internal/api/shared"
	"github.com/phrazzld/scry-reader/internal/auth"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/extract"
	"github.com/phrazzld/scry-reader/internal/platform/blob"
	"github.com/phrazzld/scry-reader/internal/service"
	"github.com/phrazzld/scry-reader/internal/store"
	"github.com/phrazzld/scry-reader/internal/task"
)

var (
	// ErrUnauthenticated is returned when a protected handler runs without a
	// learner in the request context.
	ErrUnauthenticated = errors.New("no authenticated learner")

	// ErrMissingFile is returned for an upload without a "file" part.
	ErrMissingFile = errors.New("multipart field \"file\" is required")

	// ErrUploadTooLarge is returned when an upload exceeds the configured limit.
	ErrUploadTooLarge = errors.New("uploaded document is too large")
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing the error itself.
func MapErrorToStatusCode(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized

	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrIngestionInProgress),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, ErrUploadTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, extract.ErrUnsupportedFormat),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, blob.ErrInvalidKey),
		errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, ErrMissingFile):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrRunnerStopped),
		errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrQueueClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err. Unknown errors
// get a generic message; details stay in the logs.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"
	case errors.Is(err, ErrUnauthenticated):
		return "Authentication required"

	case errors.Is(err, store.ErrTrackedItemNotFound):
		return "Tracked item not found"
	case errors.Is(err, store.ErrNotFound), errors.Is(err, blob.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, service.ErrIngestionInProgress):
		return "A document is already being processed for this item"
	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"

	case errors.Is(err, ErrUploadTooLarge), errors.As(err, &maxBytes):
		return "Uploaded document is too large"
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return "Unsupported document format"
	case errors.Is(err, ErrMissingFile):
		return "A document file is required"

	case errors.Is(err, domain.ErrEmptyContent):
		return "Title is required"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, blob.ErrInvalidKey):
		return "Invalid request data"

	case errors.Is(err, task.ErrRunnerStopped),
		errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrQueueClosed):
		return "Document processing is temporarily unavailable"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err. A non-empty
// message overrides the safe message for 4xx responses.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	userMessage := GetSafeErrorMessage(err)
	if message != "" && status < http.StatusInternalServerError {
		userMessage = message
	}
	shared.RespondWithErrorAndLog(w, r, status, userMessage, err)
}

// HandleValidationError writes a 400 describing the first invalid field.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
}

// SanitizeValidationError turns a validator error into a short message
// naming the field and the failed rule.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
