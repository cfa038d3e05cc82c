package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/invoicemonk/invoicemonk/internal/actorcontext"
	auditdomain "github.com/invoicemonk/invoicemonk/internal/audit/domain"
	integritydomain "github.com/invoicemonk/invoicemonk/internal/integrity/domain"
	invoicedomain "github.com/invoicemonk/invoicemonk/internal/invoice/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Void cancels an issued invoice by writing a compensating credit note and
// flipping the status, in one transaction. The issued document itself is
// never mutated beyond the status fields; the credit note is the financial
// reversal.
func (s *Service) Void(ctx context.Context, businessID, invoiceID snowflake.ID, reason string) (invoicedomain.CreditNote, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) < invoicedomain.MinVoidReasonLength {
		s.observe("void", invoicedomain.ErrReasonTooShort)
		return invoicedomain.CreditNote{}, invoicedomain.ErrReasonTooShort
	}

	var note invoicedomain.CreditNote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadInvoiceForUpdate(ctx, tx, businessID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if !invoice.Status.Voidable() {
			return invoicedomain.ErrNotVoidable
		}

		now := s.clock.Now()
		number := ""
		if invoice.Number != nil {
			number = *invoice.Number
		}
		noteNumber := "CN-" + number

		note = invoicedomain.CreditNote{
			ID:             s.genID.Generate(),
			BusinessID:     businessID,
			InvoiceID:      invoiceID,
			Number:         noteNumber,
			Amount:         invoice.TotalAmount,
			Currency:       invoice.Currency,
			Reason:         reason,
			Hash:           integritydomain.Hash(noteNumber, invoice.TotalAmount, now),
			VerificationID: integritydomain.NewVerificationID(now),
			IssuedAt:       now,
			CreatedAt:      now,
		}
		if err := tx.Create(&note).Error; err != nil {
			return err
		}

		prev := invoiceState(*invoice)
		var voidedBy *string
		if actor, ok := actorcontext.ActorFromContext(ctx); ok {
			voidedBy = &actor.ID
		}

		result := tx.Exec(
			`UPDATE invoices SET status = ?, voided_at = ?, voided_by = ?, void_reason = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			invoicedomain.InvoiceStatusVoided,
			now,
			voidedBy,
			reason,
			now,
			invoiceID,
			invoice.Status,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// The credit note insert above rolls back with us, so no orphan
			// is left behind. Surfaced as its own error because the caller
			// must not retry blindly.
			return invoicedomain.ErrPartialVoidFailure
		}

		invoice.Status = invoicedomain.InvoiceStatusVoided
		invoice.VoidedAt = &now
		invoice.VoidedBy = voidedBy
		invoice.VoidReason = &reason
		return s.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventInvoiceVoided,
			EntityType: "invoice",
			EntityID:   invoiceID.String(),
			BusinessID: &businessID,
			PrevState:  prev,
			NewState:   invoiceState(*invoice),
			Metadata: map[string]any{
				"credit_note_id":     note.ID.String(),
				"credit_note_number": note.Number,
				"reason":             reason,
			},
		})
	})
	s.observe("void", err)
	if err != nil {
		if err == invoicedomain.ErrPartialVoidFailure {
			s.log.Error("void status flip failed after credit note insert",
				zap.String("invoice_id", invoiceID.String()),
				zap.String("business_id", businessID.String()),
			)
		}
		return invoicedomain.CreditNote{}, err
	}

	s.log.Info("invoice voided",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("credit_note_number", note.Number),
	)
	return note, nil
}
