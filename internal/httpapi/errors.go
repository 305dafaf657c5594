package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	goQuiz "github.com/MrEthical07/goQuiz"
	"github.com/MrEthical07/goQuiz/internal/httpapi/apierror"
	"github.com/MrEthical07/goQuiz/middleware"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// toAPIError maps engine errors onto response bodies. Credential and token
// failures all collapse into the same 401.
func toAPIError(err error) *apierror.APIError {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var verr *goQuiz.ValidationError
	switch {
	case errors.As(err, &verr):
		return apierror.NewValidationError(verr.Field, verr.Reason)
	case errors.Is(err, goQuiz.ErrUnauthorized),
		errors.Is(err, goQuiz.ErrInvalidCredentials),
		errors.Is(err, goQuiz.ErrRefreshMissing),
		errors.Is(err, goQuiz.ErrRefreshInvalid),
		errors.Is(err, goQuiz.ErrRefreshRevoked):
		return apierror.ErrUnauthorized
	case errors.Is(err, goQuiz.ErrLoginRateLimited):
		return apierror.ErrRateLimited
	case errors.Is(err, goQuiz.ErrPermissionDenied):
		return apierror.ErrForbidden
	case errors.Is(err, goQuiz.ErrUserNotFound):
		return apierror.NewNotFoundError("User")
	case errors.Is(err, goQuiz.ErrCategoryNotFound):
		return apierror.NewNotFoundError("Category")
	case errors.Is(err, goQuiz.ErrQuizNotFound):
		return apierror.NewNotFoundError("Quiz")
	case errors.Is(err, goQuiz.ErrSessionNotFound):
		return apierror.NewNotFoundError("Quiz session")
	case errors.Is(err, goQuiz.ErrEmailTaken):
		return apierror.NewConflictError("Email already registered")
	case errors.Is(err, goQuiz.ErrCategoryExists):
		return apierror.NewConflictError("Category already exists")
	case errors.Is(err, goQuiz.ErrInvalidSession):
		return apierror.ErrInvalidSession
	case errors.Is(err, goQuiz.ErrNotFinished):
		return apierror.ErrNotFinished
	case errors.Is(err, goQuiz.ErrEmptyCategory):
		return apierror.ErrEmptyCategory
	case errors.Is(err, context.DeadlineExceeded):
		return apierror.ErrServiceUnavailable
	default:
		return apierror.ErrInternal
	}
}

// fail writes err and logs it when it maps to a server error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", chimiddleware.GetReqID(r.Context())),
			slog.Any("error", err),
		)
	}
	writeError(w, apiErr)
}

// reject renders guard failures in the API envelope.
func reject(w http.ResponseWriter, _ *http.Request, status int) {
	if status == http.StatusForbidden {
		writeError(w, apierror.ErrForbidden)
		return
	}
	writeError(w, apierror.ErrUnauthorized)
}

var _ middleware.RejectFunc = reject
