package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/dinein/internal/catalog/domain"
	kdsdomain "github.com/smallbiznis/dinein/internal/kds/domain"
	orderdomain "github.com/smallbiznis/dinein/internal/order/domain"
	"github.com/smallbiznis/dinein/internal/orderlock"
	scheduledomain "github.com/smallbiznis/dinein/internal/schedule/domain"
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
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

var validationErrs = []error{
	ErrInvalidRequest,
	orderdomain.ErrInvalidQuantity,
	orderdomain.ErrInvalidDiscountType,
	orderdomain.ErrInvalidDiscountValue,
	orderdomain.ErrInvalidAmount,
	orderdomain.ErrInvalidTip,
	orderdomain.ErrInvalidPaymentMethod,
	orderdomain.ErrInvalidSplit,
	orderdomain.ErrInvalidActor,
	orderdomain.ErrInvalidTable,
	orderdomain.ErrApprovalRequired,
	kdsdomain.ErrInvalidStation,
	kdsdomain.ErrInvalidRule,
	kdsdomain.ErrInvalidTicketStatus,
	kdsdomain.ErrInvalidTicketItem,
	kdsdomain.ErrEmptyTicket,
	scheduledomain.ErrInvalidShift,
}

var notFoundErrs = []error{
	ErrNotFound,
	orderdomain.ErrOrderNotFound,
	orderdomain.ErrItemNotFound,
	orderdomain.ErrSplitBillNotFound,
	catalogdomain.ErrOutletNotFound,
	catalogdomain.ErrMenuItemNotFound,
	kdsdomain.ErrStationNotFound,
	kdsdomain.ErrTicketNotFound,
	kdsdomain.ErrTicketItemNotFound,
	kdsdomain.ErrOrderItemNotFound,
	scheduledomain.ErrShiftNotFound,
	gorm.ErrRecordNotFound,
}

// Conflicts are well-formed requests the current state refuses.
var conflictErrs = []error{
	ErrConflict,
	orderdomain.ErrOrderClosed,
	orderdomain.ErrAlreadySettled,
	orderdomain.ErrDiscountExceedsSubtotal,
	orderdomain.ErrOrderNotSettled,
	orderdomain.ErrOrderHasPayments,
	kdsdomain.ErrInactiveStation,
	kdsdomain.ErrNothingToSend,
	scheduledomain.ErrShiftConflict,
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

	if code, ok := matchSentinel(err, validationErrs); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    code,
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	if code, ok := matchSentinel(err, notFoundErrs); ok {
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Code:    code,
			Message: "not found",
		}
	}

	if code, ok := matchSentinel(err, conflictErrs); ok {
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    code,
			Message: "conflict",
		}
	}

	switch {
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, orderlock.ErrLockTimeout):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same buckets the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Code
	if code == "" && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if code == "" {
		code = payload.Type
	}
	return payload.Type, code
}

func matchSentinel(err error, sentinels []error) (string, bool) {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error(), true
		}
	}
	return "", false
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}
