package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/invoicemonk/invoicemonk/internal/audit/domain"
	invoicedomain "github.com/invoicemonk/invoicemonk/internal/invoice/domain"
	"gorm.io/gorm"
)

// MarkSent records that the issued document went out to the client.
func (s *Service) MarkSent(ctx context.Context, businessID, invoiceID snowflake.ID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadInvoiceForUpdate(ctx, tx, businessID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		switch invoice.Status {
		case invoicedomain.InvoiceStatusSent, invoicedomain.InvoiceStatusViewed:
			// Resending is a no-op; a viewed invoice never moves back to sent.
			return nil
		case invoicedomain.InvoiceStatusIssued:
		default:
			return invoicedomain.ErrNotSendable
		}

		now := s.clock.Now()
		prev := invoiceState(*invoice)

		result := tx.Exec(
			`UPDATE invoices SET status = ?, sent_at = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			invoicedomain.InvoiceStatusSent,
			now,
			now,
			invoiceID,
			invoice.Status,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invoicedomain.ErrConflictingTransition
		}

		invoice.Status = invoicedomain.InvoiceStatusSent
		invoice.SentAt = &now
		return s.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventInvoiceSent,
			EntityType: "invoice",
			EntityID:   invoiceID.String(),
			BusinessID: &businessID,
			PrevState:  prev,
			NewState:   invoiceState(*invoice),
		})
	})
	s.observe("mark_sent", err)
	return err
}

// MarkViewed records the first time the client opened the document.
// Subsequent views are no-ops.
func (s *Service) MarkViewed(ctx context.Context, businessID, invoiceID snowflake.ID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadInvoiceForUpdate(ctx, tx, businessID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		switch invoice.Status {
		case invoicedomain.InvoiceStatusViewed:
			return nil
		case invoicedomain.InvoiceStatusIssued, invoicedomain.InvoiceStatusSent:
		default:
			// Views on paid or voided invoices are recorded nowhere; the
			// lifecycle already passed the point where viewing matters.
			return nil
		}

		now := s.clock.Now()
		prev := invoiceState(*invoice)

		result := tx.Exec(
			`UPDATE invoices SET status = ?, viewed_at = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			invoicedomain.InvoiceStatusViewed,
			now,
			now,
			invoiceID,
			invoice.Status,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invoicedomain.ErrConflictingTransition
		}

		invoice.Status = invoicedomain.InvoiceStatusViewed
		invoice.ViewedAt = &now
		return s.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventInvoiceViewed,
			EntityType: "invoice",
			EntityID:   invoiceID.String(),
			BusinessID: &businessID,
			PrevState:  prev,
			NewState:   invoiceState(*invoice),
		})
	})
	s.observe("mark_viewed", err)
	return err
}
