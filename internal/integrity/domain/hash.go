// Package domain holds the tamper-evidence primitives for issued records.
package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Hash computes the tamper-evidence digest for an issued record. The digest
// covers the record's public number, its total amount in cents and the
// issuance timestamp; any post-hoc edit to one of the three changes the hash.
func Hash(number string, amountCents int64, issuedAt time.Time) string {
	canonical := fmt.Sprintf("%s|%d|%s", number, amountCents, issuedAt.UTC().Format(time.RFC3339))
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the digest from the stored fields and compares it with
// the stored hash. Verification is recompute-and-compare, never decryption.
func Verify(number string, amountCents int64, issuedAt time.Time, storedHash string) bool {
	return Hash(number, amountCents, issuedAt) == storedHash
}

// NewVerificationID returns a globally unique identifier for public lookups.
func NewVerificationID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t.UTC()), rand.Reader).String()
}
