// Package domain contains persistence models for the invoice lifecycle.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft    InvoiceStatus = "DRAFT"
	InvoiceStatusIssued   InvoiceStatus = "ISSUED"
	InvoiceStatusSent     InvoiceStatus = "SENT"
	InvoiceStatusViewed   InvoiceStatus = "VIEWED"
	InvoiceStatusPaid     InvoiceStatus = "PAID"
	InvoiceStatusVoided   InvoiceStatus = "VOIDED"
	InvoiceStatusCredited InvoiceStatus = "CREDITED"
)

// Payable reports whether payments may still be recorded in this status.
func (s InvoiceStatus) Payable() bool {
	switch s {
	case InvoiceStatusIssued, InvoiceStatusSent, InvoiceStatusViewed:
		return true
	default:
		return false
	}
}

// Voidable reports whether the invoice may be voided from this status.
// Drafts are deleted, not voided; paid and voided invoices are terminal.
func (s InvoiceStatus) Voidable() bool {
	switch s {
	case InvoiceStatusIssued, InvoiceStatusSent, InvoiceStatusViewed:
		return true
	default:
		return false
	}
}

// Invoice is the lifecycle aggregate. Everything except status-transition
// metadata and amount_paid becomes immutable once status leaves DRAFT.
type Invoice struct {
	ID         snowflake.ID  `gorm:"primaryKey"`
	BusinessID snowflake.ID  `gorm:"not null;index;uniqueIndex:ux_invoices_business_number,priority:1"`
	ClientID   snowflake.ID  `gorm:"not null;index"`
	Number     *string       `gorm:"type:text;uniqueIndex:ux_invoices_business_number,priority:2,where:number IS NOT NULL"`
	NumberSeq  *int64        `gorm:""`
	Status     InvoiceStatus `gorm:"type:text;not null;default:'DRAFT'"`

	Currency       string `gorm:"type:text;not null"`
	SubtotalAmount int64  `gorm:"not null;default:0"`
	TaxAmount      int64  `gorm:"not null;default:0"`
	TotalAmount    int64  `gorm:"not null;default:0"`
	AmountPaid     int64  `gorm:"not null;default:0"`

	DueAt            *time.Time    `gorm:""`
	Notes            string        `gorm:"type:text"`
	Terms            string        `gorm:"type:text"`
	TemplateID       *snowflake.ID `gorm:"index"`
	PaymentMethodRef string        `gorm:"type:text"`

	IssuedAt *time.Time `gorm:""`
	IssuedBy *string    `gorm:"type:text"`

	IssuerSnapshot    datatypes.JSONMap `gorm:"type:jsonb"`
	RecipientSnapshot datatypes.JSONMap `gorm:"type:jsonb"`
	TemplateSnapshot  datatypes.JSONMap `gorm:"type:jsonb"`
	TaxSchemaSnapshot datatypes.JSONMap `gorm:"type:jsonb"`

	InvoiceHash    *string `gorm:"type:text"`
	VerificationID *string `gorm:"type:text;uniqueIndex:ux_invoices_verification_id,where:verification_id IS NOT NULL"`

	SentAt   *time.Time `gorm:""`
	ViewedAt *time.Time `gorm:""`
	PaidAt   *time.Time `gorm:""`

	VoidedAt   *time.Time `gorm:""`
	VoidedBy   *string    `gorm:"type:text"`
	VoidReason *string    `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// LineItem is a line on a draft or issued invoice.
type LineItem struct {
	ID          snowflake.ID    `gorm:"primaryKey"`
	BusinessID  snowflake.ID    `gorm:"not null;index"`
	InvoiceID   snowflake.ID    `gorm:"not null;index"`
	Position    int             `gorm:"not null"`
	Description string          `gorm:"type:text;not null"`
	Quantity    int64           `gorm:"not null"`
	UnitPrice   int64           `gorm:"not null"`
	TaxRate     decimal.Decimal `gorm:"type:numeric(6,3);not null;default:0"`
	LineTotal   int64           `gorm:"not null"`
	TaxAmount   int64           `gorm:"not null"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "invoice_line_items" }

// CreditNote compensates a voided invoice. The unique index on invoice_id
// enforces at most one credit note per invoice.
type CreditNote struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	BusinessID     snowflake.ID `gorm:"not null;index"`
	InvoiceID      snowflake.ID `gorm:"not null;uniqueIndex:ux_credit_notes_invoice"`
	Number         string       `gorm:"type:text;not null"`
	Amount         int64        `gorm:"not null"`
	Currency       string       `gorm:"type:text;not null"`
	Reason         string       `gorm:"type:text;not null"`
	Hash           string       `gorm:"type:text;not null"`
	VerificationID string       `gorm:"type:text;uniqueIndex:ux_credit_notes_verification_id"`
	IssuedAt       time.Time    `gorm:"not null"`
	CreatedAt      time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (CreditNote) TableName() string { return "credit_notes" }

// Payment is an append-only record of money received against an invoice.
// Payments are never edited or deleted, only added.
type Payment struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	BusinessID snowflake.ID `gorm:"not null;index"`
	InvoiceID  snowflake.ID `gorm:"not null;index"`
	Amount     int64        `gorm:"not null"`
	Method     string       `gorm:"type:text"`
	Reference  string       `gorm:"type:text"`
	Notes      string       `gorm:"type:text"`
	PaidAt     time.Time    `gorm:"not null"`
	CreatedAt  time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// Receipt snapshots issuer, payer, invoice and payment details at the
// moment a payment is recorded. Immutable once written.
type Receipt struct {
	ID             snowflake.ID      `gorm:"primaryKey"`
	BusinessID     snowflake.ID      `gorm:"not null;index"`
	InvoiceID      snowflake.ID      `gorm:"not null;index"`
	PaymentID      snowflake.ID      `gorm:"not null;uniqueIndex:ux_receipts_payment"`
	Number         string            `gorm:"type:text;not null"`
	Amount         int64             `gorm:"not null"`
	Snapshot       datatypes.JSONMap `gorm:"type:jsonb"`
	Hash           string            `gorm:"type:text;not null"`
	VerificationID string            `gorm:"type:text;uniqueIndex:ux_receipts_verification_id"`
	IssuedAt       time.Time         `gorm:"not null"`
	CreatedAt      time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (Receipt) TableName() string { return "receipts" }
