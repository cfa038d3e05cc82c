package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/invoicemonk/invoicemonk/internal/actorcontext"
	auditdomain "github.com/invoicemonk/invoicemonk/internal/audit/domain"
	integritydomain "github.com/invoicemonk/invoicemonk/internal/integrity/domain"
	invoicedomain "github.com/invoicemonk/invoicemonk/internal/invoice/domain"
	subscriptiondomain "github.com/invoicemonk/invoicemonk/internal/subscription/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Issue promotes a draft to an issued, immutable document. The whole
// promotion runs in one transaction under the business row lock: quota
// check, number assignment, snapshot capture, hash, currency lock and
// audit append all commit or roll back together.
func (s *Service) Issue(ctx context.Context, businessID, invoiceID snowflake.ID) (invoicedomain.Invoice, error) {
	actor, ok := actorcontext.ActorFromContext(ctx)
	if !ok || !actor.EmailVerified {
		s.observe("issue", invoicedomain.ErrEmailUnverified)
		return invoicedomain.Invoice{}, invoicedomain.ErrEmailUnverified
	}

	var issued invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		business, err := s.loadBusinessForUpdate(ctx, tx, businessID)
		if err != nil {
			return err
		}

		invoice, err := s.loadInvoiceForUpdate(ctx, tx, businessID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if invoice.Status != invoicedomain.InvoiceStatusDraft {
			return invoicedomain.ErrNotDraft
		}
		if business.CurrencyLocked && invoice.Currency != business.Currency {
			return invoicedomain.ErrCurrencyLocked
		}

		now := s.clock.Now()
		if err := s.checkQuota(ctx, tx, businessID, now); err != nil {
			return err
		}

		seq, number, err := s.nextInvoiceNumber(ctx, tx, businessID)
		if err != nil {
			return err
		}

		issuerSnap, err := s.snapshotter.CaptureIssuer(ctx, tx, businessID, now)
		if err != nil {
			return err
		}
		recipientSnap, err := s.snapshotter.CaptureRecipient(ctx, tx, businessID, invoice.ClientID, now)
		if err != nil {
			return err
		}
		templateSnap, err := s.snapshotter.CaptureTemplate(ctx, tx, businessID, invoice.TemplateID, now)
		if err != nil {
			return err
		}
		taxSnap, err := s.snapshotter.CaptureTaxSchema(ctx, tx, businessID, now)
		if err != nil {
			return err
		}

		hash := integritydomain.Hash(number, invoice.TotalAmount, now)
		verificationID := integritydomain.NewVerificationID(now)

		prev := invoiceState(*invoice)

		// Status guard repeated in the WHERE clause: a concurrent issue that
		// slipped past the row lock loses here instead of double-numbering.
		result := tx.Exec(
			`UPDATE invoices
			 SET status = ?, number = ?, number_seq = ?, issued_at = ?, issued_by = ?,
			     issuer_snapshot = ?, recipient_snapshot = ?, template_snapshot = ?,
			     tax_schema_snapshot = ?, invoice_hash = ?, verification_id = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			invoicedomain.InvoiceStatusIssued,
			number,
			seq,
			now,
			actor.ID,
			issuerSnap,
			recipientSnap,
			templateSnap,
			taxSnap,
			hash,
			verificationID,
			now,
			invoiceID,
			invoicedomain.InvoiceStatusDraft,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invoicedomain.ErrConflictingTransition
		}

		if !business.CurrencyLocked {
			if err := tx.Exec(
				`UPDATE businesses SET currency = ?, currency_locked = ?, updated_at = ? WHERE id = ?`,
				invoice.Currency, true, now, businessID,
			).Error; err != nil {
				return err
			}
		}

		invoice.Status = invoicedomain.InvoiceStatusIssued
		invoice.Number = &number
		invoice.NumberSeq = &seq
		invoice.IssuedAt = &now
		invoice.IssuedBy = &actor.ID
		invoice.IssuerSnapshot = issuerSnap
		invoice.RecipientSnapshot = recipientSnap
		invoice.TemplateSnapshot = templateSnap
		invoice.TaxSchemaSnapshot = taxSnap
		invoice.InvoiceHash = &hash
		invoice.VerificationID = &verificationID
		invoice.UpdatedAt = now
		issued = *invoice

		return s.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventInvoiceIssued,
			EntityType: "invoice",
			EntityID:   invoiceID.String(),
			BusinessID: &businessID,
			PrevState:  prev,
			NewState:   invoiceState(*invoice),
			Metadata: map[string]any{
				"number":          number,
				"invoice_hash":    hash,
				"verification_id": verificationID,
			},
		})
	})
	s.observe("issue", err)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.log.Info("invoice issued",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("business_id", businessID.String()),
		zap.Stringp("number", issued.Number),
	)
	return issued, nil
}

// checkQuota enforces the tier's monthly issuance limit. It runs inside the
// issuance transaction with the business row locked, so the count cannot be
// raced past the limit by concurrent issues.
func (s *Service) checkQuota(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, now time.Time) error {
	limit := s.cfg.FreeTierMonthlyInvoiceLimit
	if limit <= 0 {
		return nil
	}
	tier, err := s.subscriptionTier(ctx, tx, businessID)
	if err != nil {
		return err
	}
	if tier == subscriptiondomain.TierPro {
		return nil
	}

	utc := now.UTC()
	monthStart := time.Date(utc.Year(), utc.Month(), 1, 0, 0, 0, 0, time.UTC)
	var issuedCount int64
	err = tx.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM invoices
		 WHERE business_id = ? AND issued_at IS NOT NULL AND issued_at >= ?`,
		businessID,
		monthStart,
	).Scan(&issuedCount).Error
	if err != nil {
		return err
	}
	if issuedCount >= int64(limit) {
		return invoicedomain.ErrQuotaExceeded
	}
	return nil
}

// subscriptionTier reads the business's plan. A missing or non-active
// subscription falls back to the free tier.
func (s *Service) subscriptionTier(ctx context.Context, tx *gorm.DB, businessID snowflake.ID) (subscriptiondomain.Tier, error) {
	var row struct {
		Tier   subscriptiondomain.Tier
		Status subscriptiondomain.Status
	}
	err := tx.WithContext(ctx).Raw(
		`SELECT tier, status FROM subscriptions WHERE business_id = ?`,
		businessID,
	).Scan(&row).Error
	if err != nil {
		return "", err
	}
	if row.Tier == "" || row.Status != subscriptiondomain.StatusActive {
		return subscriptiondomain.TierFree, nil
	}
	return row.Tier, nil
}
