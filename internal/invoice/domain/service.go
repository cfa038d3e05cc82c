package domain

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/invoicemonk/invoicemonk/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

// MinVoidReasonLength is the shortest accepted void reason.
const MinVoidReasonLength = 10

// LineItemInput is one line of a draft create/update request.
type LineItemInput struct {
	Description string
	Quantity    int64
	UnitPrice   int64
	TaxRate     decimal.Decimal
}

type DraftRequest struct {
	ClientID         snowflake.ID
	Currency         string
	LineItems        []LineItemInput
	DueAt            *time.Time
	Notes            string
	Terms            string
	TemplateID       *snowflake.ID
	PaymentMethodRef string
}

type RecordPaymentRequest struct {
	Amount    int64
	Method    string
	Reference string
	Notes     string
	PaidAt    *time.Time
}

type RecordPaymentResponse struct {
	Invoice Invoice
	Payment Payment
	Receipt Receipt
}

type ListFilter struct {
	Status    *InvoiceStatus
	ClientID  *snowflake.ID
	PageToken string
	PageSize  int
}

type ListResponse struct {
	Invoices []Invoice
	PageInfo pagination.PageInfo
}

// Service is the invoice lifecycle engine. Every operation takes an
// explicit business id; the engine holds no ambient tenant state.
type Service interface {
	CreateDraft(ctx context.Context, businessID snowflake.ID, req DraftRequest) (Invoice, error)
	UpdateDraft(ctx context.Context, businessID, invoiceID snowflake.ID, req DraftRequest) (Invoice, error)
	GetByID(ctx context.Context, businessID, invoiceID snowflake.ID) (Invoice, []LineItem, error)
	List(ctx context.Context, businessID snowflake.ID, filter ListFilter) (ListResponse, error)

	Issue(ctx context.Context, businessID, invoiceID snowflake.ID) (Invoice, error)
	MarkSent(ctx context.Context, businessID, invoiceID snowflake.ID) error
	MarkViewed(ctx context.Context, businessID, invoiceID snowflake.ID) error
	RecordPayment(ctx context.Context, businessID, invoiceID snowflake.ID, req RecordPaymentRequest) (RecordPaymentResponse, error)
	Void(ctx context.Context, businessID, invoiceID snowflake.ID, reason string) (CreditNote, error)
	Delete(ctx context.Context, businessID, invoiceID snowflake.ID) error
}

// Totals holds the deterministic amounts computed from line items.
type Totals struct {
	Subtotal int64
	Tax      int64
	Total    int64
}

var oneHundred = decimal.NewFromInt(100)

// ComputeTotals computes subtotal, tax and total from line inputs.
// Tax is rounded half away from zero to whole cents per line.
func ComputeTotals(items []LineItemInput) Totals {
	var totals Totals
	for _, item := range items {
		line := item.Quantity * item.UnitPrice
		tax := decimal.NewFromInt(line).
			Mul(item.TaxRate).
			Div(oneHundred).
			Round(0).
			IntPart()
		totals.Subtotal += line
		totals.Tax += tax
	}
	totals.Total = totals.Subtotal + totals.Tax
	return totals
}

// ValidateLineItems rejects empty or non-positive line inputs.
func ValidateLineItems(items []LineItemInput) error {
	if len(items) == 0 {
		return ErrNoLineItems
	}
	for _, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return ErrInvalidLineItem
		}
		if item.Quantity <= 0 || item.UnitPrice <= 0 {
			return ErrInvalidLineItem
		}
		if item.TaxRate.IsNegative() {
			return ErrInvalidLineItem
		}
	}
	return nil
}
