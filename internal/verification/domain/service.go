// Package domain defines the public hash verification lookup.
package domain

import (
	"context"
	"errors"
	"time"
)

// RecordKind identifies which table a verification id resolved to.
type RecordKind string

const (
	KindInvoice    RecordKind = "invoice"
	KindCreditNote RecordKind = "credit_note"
	KindReceipt    RecordKind = "receipt"
)

// Result is what an anonymous verifier sees. It deliberately exposes only
// the fields covered by the hash plus the validity verdict; line items,
// parties and notes stay private.
type Result struct {
	Kind      RecordKind `json:"kind"`
	Number    string     `json:"number"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	IssuedAt  time.Time  `json:"issued_at"`
	HashValid bool       `json:"hash_valid"`
}

// Service resolves verification ids for unauthenticated callers. The check
// recomputes the digest from stored fields and compares; a mismatch means
// the stored record no longer matches what was hashed at issuance.
type Service interface {
	Lookup(ctx context.Context, verificationID string) (Result, error)
}

var ErrNotFound = errors.New("verification_not_found")
