package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Snapshot payloads are versioned so later format changes can be detected
// and migrated explicitly instead of assumed compatible.
const (
	IssuerSnapshotVersion    = 1
	RecipientSnapshotVersion = 1
	TemplateSnapshotVersion  = 1
	TaxSchemaSnapshotVersion = 1
	ReceiptSnapshotVersion   = 1
)

// IssuerSnapshot freezes the issuing business's legal identity at issuance.
type IssuerSnapshot struct {
	SchemaVersion int       `json:"schema_version"`
	Kind          string    `json:"kind"`
	LegalName     string    `json:"legal_name"`
	TaxID         string    `json:"tax_id"`
	Address       string    `json:"address"`
	Jurisdiction  string    `json:"jurisdiction"`
	Email         string    `json:"email"`
	Currency      string    `json:"currency"`
	CapturedAt    time.Time `json:"captured_at"`
}

// RecipientSnapshot freezes the client identity at issuance.
type RecipientSnapshot struct {
	SchemaVersion int       `json:"schema_version"`
	Kind          string    `json:"kind"`
	Name          string    `json:"name"`
	TaxID         string    `json:"tax_id"`
	Address       string    `json:"address"`
	Email         string    `json:"email"`
	CapturedAt    time.Time `json:"captured_at"`
}

// TemplateSnapshot freezes the formatting rules used for the document.
type TemplateSnapshot struct {
	SchemaVersion int               `json:"schema_version"`
	Kind          string            `json:"kind"`
	TemplateName  string            `json:"template_name"`
	Layout        string            `json:"layout"`
	Options       datatypes.JSONMap `json:"options"`
	CapturedAt    time.Time         `json:"captured_at"`
}

// TaxSchemaSnapshot freezes the active tax rules for the business's
// jurisdiction at issuance.
type TaxSchemaSnapshot struct {
	SchemaVersion int               `json:"schema_version"`
	Kind          string            `json:"kind"`
	Jurisdiction  string            `json:"jurisdiction"`
	Version       int               `json:"version"`
	Rates         datatypes.JSONMap `json:"rates"`
	CapturedAt    time.Time         `json:"captured_at"`
}

// ReceiptSnapshot freezes issuer, payer, invoice and payment details at the
// moment a payment is recorded.
type ReceiptSnapshot struct {
	SchemaVersion int               `json:"schema_version"`
	Kind          string            `json:"kind"`
	Issuer        datatypes.JSONMap `json:"issuer"`
	Payer         datatypes.JSONMap `json:"payer"`
	InvoiceNumber string            `json:"invoice_number"`
	InvoiceTotal  int64             `json:"invoice_total"`
	AmountPaid    int64             `json:"amount_paid"`
	Method        string            `json:"method"`
	Reference     string            `json:"reference"`
	CapturedAt    time.Time         `json:"captured_at"`
}

// Snapshotter reads current reference data inside the caller's transaction
// and returns it as frozen structured payloads. Later edits to the source
// rows never alter what was captured.
type Snapshotter interface {
	CaptureIssuer(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, at time.Time) (datatypes.JSONMap, error)
	CaptureRecipient(ctx context.Context, tx *gorm.DB, businessID, clientID snowflake.ID, at time.Time) (datatypes.JSONMap, error)
	CaptureTemplate(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, templateID *snowflake.ID, at time.Time) (datatypes.JSONMap, error)
	CaptureTaxSchema(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, at time.Time) (datatypes.JSONMap, error)
}

var (
	ErrBusinessNotFound = errors.New("business_not_found")
	ErrClientNotFound   = errors.New("client_not_found")
)

// ToJSONMap serializes a snapshot payload into the JSONMap stored on the record.
func ToJSONMap(v any) (datatypes.JSONMap, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := datatypes.JSONMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
