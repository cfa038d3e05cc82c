package domain

import "errors"

var (
	ErrInvalidBusiness = errors.New("invalid_business")
	ErrInvoiceNotFound = errors.New("invoice_not_found")
	ErrClientNotFound  = errors.New("client_not_found")

	ErrNoLineItems     = errors.New("line_items_required")
	ErrInvalidLineItem = errors.New("invalid_line_item")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrCurrencyLocked  = errors.New("currency_locked")
	ErrInvalidAmount   = errors.New("invalid_amount")

	ErrInvalidPageToken = errors.New("invalid_page_token")

	ErrNotDraft        = errors.New("invoice_not_draft")
	ErrNotPayable      = errors.New("invoice_not_payable")
	ErrNotVoidable     = errors.New("invoice_not_voidable")
	ErrNotDeletable    = errors.New("invoice_not_deletable")
	ErrNotSendable     = errors.New("invoice_not_sendable")
	ErrEmailUnverified = errors.New("email_unverified")
	ErrQuotaExceeded   = errors.New("quota_exceeded")

	ErrConflictingTransition = errors.New("conflicting_transition")

	// ErrPartialVoidFailure marks the compensating-transaction window where
	// a credit note exists but the status flip did not apply. It is never
	// retried automatically and must be escalated for reconciliation.
	ErrPartialVoidFailure = errors.New("partial_void_failure")

	ErrReasonTooShort = errors.New("void_reason_too_short")
)
