package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/invoicemonk/invoicemonk/internal/audit/domain"
	businessdomain "github.com/invoicemonk/invoicemonk/internal/business/domain"
	clientdomain "github.com/invoicemonk/invoicemonk/internal/client/domain"
	invoicedomain "github.com/invoicemonk/invoicemonk/internal/invoice/domain"
	subscriptiondomain "github.com/invoicemonk/invoicemonk/internal/subscription/domain"
	taxdomain "github.com/invoicemonk/invoicemonk/internal/tax/domain"
	templatedomain "github.com/invoicemonk/invoicemonk/internal/template/domain"
	verificationdomain "github.com/invoicemonk/invoicemonk/internal/verification/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid_request")
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

// mapError translates domain errors into HTTP responses. Lifecycle
// precondition violations are conflicts, not validation failures: the
// request was well formed, the record's state disallowed it.
func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, payload("internal_error", "internal server error")

	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, payload("unauthorized", "unauthorized")
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, payload("forbidden", "forbidden")

	case errors.Is(err, invoicedomain.ErrEmailUnverified):
		return http.StatusForbidden, payload("email_unverified", "verify your email before issuing invoices")
	case errors.Is(err, invoicedomain.ErrQuotaExceeded):
		return http.StatusForbidden, payload("quota_exceeded", "monthly invoice limit reached for the free tier")

	case errors.Is(err, invoicedomain.ErrNotDraft):
		return http.StatusConflict, payload("invoice_not_draft", "invoice is no longer a draft")
	case errors.Is(err, invoicedomain.ErrNotPayable):
		return http.StatusConflict, payload("invoice_not_payable", "invoice cannot take payments in its current status")
	case errors.Is(err, invoicedomain.ErrNotVoidable):
		return http.StatusConflict, payload("invoice_not_voidable", "invoice cannot be voided in its current status")
	case errors.Is(err, invoicedomain.ErrNotDeletable):
		return http.StatusConflict, payload("invoice_not_deletable", "only drafts can be deleted; void the invoice instead")
	case errors.Is(err, invoicedomain.ErrNotSendable):
		return http.StatusConflict, payload("invoice_not_sendable", "invoice must be issued before sending")
	case errors.Is(err, invoicedomain.ErrConflictingTransition):
		return http.StatusConflict, payload("conflicting_transition", "a concurrent change won; re-read the invoice")
	case errors.Is(err, invoicedomain.ErrCurrencyLocked),
		errors.Is(err, businessdomain.ErrCurrencyLocked):
		return http.StatusConflict, payload("currency_locked", "business currency is locked by a prior issuance")

	case errors.Is(err, invoicedomain.ErrPartialVoidFailure):
		return http.StatusInternalServerError, payload("partial_void_failure", "void did not complete; do not retry, the record is flagged for reconciliation")

	case errors.Is(err, invoicedomain.ErrReasonTooShort):
		return http.StatusBadRequest, payload("void_reason_too_short", "void reason must be at least 10 characters")
	case errors.Is(err, invoicedomain.ErrNoLineItems),
		errors.Is(err, invoicedomain.ErrInvalidPageToken),
		errors.Is(err, invoicedomain.ErrInvalidLineItem),
		errors.Is(err, invoicedomain.ErrInvalidCurrency),
		errors.Is(err, invoicedomain.ErrInvalidAmount),
		errors.Is(err, businessdomain.ErrInvalidCurrency),
		errors.Is(err, businessdomain.ErrLegalNameMissing),
		errors.Is(err, businessdomain.ErrEmailMissing),
		errors.Is(err, clientdomain.ErrNameMissing),
		errors.Is(err, templatedomain.ErrNameMissing),
		errors.Is(err, taxdomain.ErrJurisdictionMissing),
		errors.Is(err, subscriptiondomain.ErrInvalidTier),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, payload("validation_error", err.Error())

	case errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, invoicedomain.ErrClientNotFound),
		errors.Is(err, invoicedomain.ErrInvalidBusiness),
		errors.Is(err, businessdomain.ErrBusinessNotFound),
		errors.Is(err, clientdomain.ErrClientNotFound),
		errors.Is(err, templatedomain.ErrTemplateNotFound),
		errors.Is(err, verificationdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, payload("not_found", "not found")

	default:
		return http.StatusInternalServerError, payload("internal_error", "internal server error")
	}
}

func payload(kind, message string) errorPayload {
	return errorPayload{Type: kind, Message: message}
}
