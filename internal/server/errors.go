package server

import (
	"errors"
	"net/http"

	apikeydomain "github.com/ZanzibarNuclear/won-service-sub000/internal/apikey/domain"
	authdomain "github.com/ZanzibarNuclear/won-service-sub000/internal/auth/domain"
	fluxdomain "github.com/ZanzibarNuclear/won-service-sub000/internal/flux/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v *ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not_found")
	ErrRateLimited  = errors.New("rate_limited")
)

// ErrorHandlingMiddleware renders the last recorded error once the
// handler chain finishes, if nothing has been written yet.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{{Field: field, Code: code, Message: message}},
	}
}

// credentialFailure reports whether err belongs to the credential verify
// failure set. These map to one generic 401 so a caller cannot probe
// which check rejected them.
func credentialFailure(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, authdomain.ErrInvalidSignature) ||
		errors.Is(err, authdomain.ErrSessionExpired) ||
		errors.Is(err, authdomain.ErrMalformedToken) ||
		errors.Is(err, authdomain.ErrSubjectNotFound) ||
		errors.Is(err, apikeydomain.ErrMalformedKey) ||
		errors.Is(err, apikeydomain.ErrInvalidKey)
}

func mapError(err error) (int, errorPayload) {
	var vErrs *ValidationErrors
	if errors.As(err, &vErrs) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErrs.Errors,
		}
	}

	switch {
	case credentialFailure(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden) || errors.Is(err, authdomain.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, fluxdomain.ErrFluxNotFound),
		errors.Is(err, apikeydomain.ErrKeyNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, authdomain.ErrUserExists) || errors.Is(err, authdomain.ErrRoleAlreadyGranted):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, authdomain.ErrInvalidEmail):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: "email", Code: "invalid", Message: "invalid email address"},
			},
		}
	case errors.Is(err, fluxdomain.ErrEmptyBody), errors.Is(err, fluxdomain.ErrBodyTooLong):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: "body", Code: "invalid", Message: err.Error()},
			},
		}
	case errors.Is(err, fluxdomain.ErrBadReplyTo):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: "reply_to_id", Code: "invalid", Message: err.Error()},
			},
		}
	case errors.Is(err, authdomain.ErrEmailSend):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "email delivery failed",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
