package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	cotisationdomain "github.com/santemut/vigie/internal/cotisation/domain"
	directorydomain "github.com/santemut/vigie/internal/directory/domain"
	scoringdomain "github.com/santemut/vigie/internal/scoring/domain"
	voucherdomain "github.com/santemut/vigie/internal/voucher/domain"
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

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal error"}
	}

	var validationErrs *ValidationErrors
	if errors.As(err, &validationErrs) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  validationErrs.Errors,
		}
	}

	switch {
	case errors.Is(err, voucherdomain.ErrQuotaExceeded):
		return http.StatusTooManyRequests, errorPayload{Type: "quota_exceeded", Message: "daily voucher quota exceeded"}
	case errors.Is(err, voucherdomain.ErrInsufficientBalance):
		return http.StatusConflict, errorPayload{Type: "insufficient_balance", Message: "voucher balance cannot cover the requested amount"}
	case errors.Is(err, voucherdomain.ErrExpired):
		return http.StatusConflict, errorPayload{Type: "voucher_expired", Message: "voucher is expired"}
	case errors.Is(err, voucherdomain.ErrNotRedeemable):
		return http.StatusConflict, errorPayload{Type: "voucher_not_redeemable", Message: "voucher is not in a redeemable state"}
	case errors.Is(err, voucherdomain.ErrInvalidTransition):
		return http.StatusConflict, errorPayload{Type: "invalid_status_transition", Message: "requested status transition is not allowed"}
	case errors.Is(err, voucherdomain.ErrAgentInactive):
		return http.StatusConflict, errorPayload{Type: "agent_inactive", Message: "agent is deactivated"}
	case errors.Is(err, directorydomain.ErrDuplicateReference):
		return http.StatusConflict, errorPayload{Type: "duplicate_reference", Message: "generated reference already exists, retry the request"}
	case errors.Is(err, scoringdomain.ErrNoActiveRules):
		return http.StatusPreconditionFailed, errorPayload{Type: "no_active_rules", Message: "no active scoring rules are configured"}
	case errors.Is(err, directorydomain.ErrMemberNotFound),
		errors.Is(err, directorydomain.ErrAgentNotFound),
		errors.Is(err, cotisationdomain.ErrNotFound),
		errors.Is(err, scoringdomain.ErrRuleNotFound),
		errors.Is(err, scoringdomain.ErrScoreNotFound),
		errors.Is(err, voucherdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: err.Error()}
	case errors.Is(err, voucherdomain.ErrInvalidAmount),
		errors.Is(err, voucherdomain.ErrInvalidMember),
		errors.Is(err, voucherdomain.ErrInvalidAgent),
		errors.Is(err, cotisationdomain.ErrInvalidMember),
		errors.Is(err, cotisationdomain.ErrInvalidAgent),
		errors.Is(err, cotisationdomain.ErrInvalidDueDate),
		errors.Is(err, cotisationdomain.ErrNegativeAmount),
		errors.Is(err, scoringdomain.ErrInvalidMember),
		errors.Is(err, scoringdomain.ErrInvalidWeight),
		errors.Is(err, scoringdomain.ErrInvalidRule),
		errors.Is(err, directorydomain.ErrInvalidInsurer),
		errors.Is(err, directorydomain.ErrInvalidName),
		errors.Is(err, directorydomain.ErrInvalidID),
		errors.Is(err, directorydomain.ErrInvalidVoucherLimit):
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal error"}
	}
}
