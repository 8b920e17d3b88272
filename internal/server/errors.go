package server

import (
	"errors"
	"net/http"
	"strings"

	accountdomain "github.com/smallbiznis/tandem/internal/account/domain"
	goaldomain "github.com/smallbiznis/tandem/internal/goal/domain"
	invitationdomain "github.com/smallbiznis/tandem/internal/invitation/domain"
	pairingdomain "github.com/smallbiznis/tandem/internal/pairing/domain"

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

func (v ValidationErrors) Error() string {
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
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
	ErrInternal       = errors.New("internal_error")
)

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
		c.Header("Content-Type", "application/json")
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
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// mapError translates every domain failure into a distinct type string so the
// client can render a specific message; nothing collapses into a raw store
// error.
func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case errors.Is(err, pairingdomain.ErrSelfInvite):
		return http.StatusBadRequest, errorPayload{
			Type:    "self_invite",
			Message: "you cannot redeem your own invitation",
		}
	case errors.Is(err, pairingdomain.ErrAlreadyPartnered),
		errors.Is(err, invitationdomain.ErrAlreadyPartnered):
		return http.StatusConflict, errorPayload{
			Type:    "already_partnered",
			Message: "a partner is already linked",
		}
	case errors.Is(err, invitationdomain.ErrInvalidOrExpiredToken):
		return http.StatusNotFound, errorPayload{
			Type:    "invalid_or_expired_token",
			Message: "this invitation is invalid or has expired",
		}
	case errors.Is(err, invitationdomain.ErrNoActiveInvitation):
		return http.StatusNotFound, errorPayload{
			Type:    "no_active_invitation",
			Message: "no active invitation",
		}
	case errors.Is(err, accountdomain.ErrProfileCreation):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "profile_creation_failure",
			Message: "could not prepare the account, try again later",
		}
	case errors.Is(err, pairingdomain.ErrAtomicLink):
		return http.StatusInternalServerError, errorPayload{
			Type:    "atomic_link_failure",
			Message: "linking failed, it is safe to retry",
		}
	case errors.Is(err, goaldomain.ErrNoPartner):
		return http.StatusConflict, errorPayload{
			Type:    "no_partner",
			Message: "sharing requires a linked partner",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many attempts, slow down",
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, goaldomain.ErrNotOwner):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isValidationError(err):
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, accountdomain.ErrInvalidUserID),
		errors.Is(err, accountdomain.ErrInvalidDisplayName),
		errors.Is(err, goaldomain.ErrInvalidTitle),
		errors.Is(err, goaldomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, accountdomain.ErrNotFound),
		errors.Is(err, goaldomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	return strings.TrimPrefix(code, "invalid_")
}

// classifyErrorForLog labels request-log entries with the taxonomy type so
// log-based alerting can tell an expected 404 from an atomic-link failure.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error", payload.Type
	case status >= http.StatusBadRequest:
		return "client_error", payload.Type
	default:
		return "", payload.Type
	}
}
