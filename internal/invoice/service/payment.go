package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/invoicemonk/invoicemonk/internal/audit/domain"
	integritydomain "github.com/invoicemonk/invoicemonk/internal/integrity/domain"
	invoicedomain "github.com/invoicemonk/invoicemonk/internal/invoice/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecordPayment appends a payment against a payable invoice, recomputes the
// amount paid from the payments table, flips the invoice to PAID once fully
// covered, and writes an immutable receipt for the payment.
func (s *Service) RecordPayment(ctx context.Context, businessID, invoiceID snowflake.ID, req invoicedomain.RecordPaymentRequest) (invoicedomain.RecordPaymentResponse, error) {
	if req.Amount <= 0 {
		s.observe("record_payment", invoicedomain.ErrInvalidAmount)
		return invoicedomain.RecordPaymentResponse{}, invoicedomain.ErrInvalidAmount
	}

	var resp invoicedomain.RecordPaymentResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadInvoiceForUpdate(ctx, tx, businessID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if !invoice.Status.Payable() {
			return invoicedomain.ErrNotPayable
		}

		now := s.clock.Now()
		paidAt := now
		if req.PaidAt != nil {
			paidAt = *req.PaidAt
		}

		payment := invoicedomain.Payment{
			ID:         s.genID.Generate(),
			BusinessID: businessID,
			InvoiceID:  invoiceID,
			Amount:     req.Amount,
			Method:     req.Method,
			Reference:  req.Reference,
			Notes:      req.Notes,
			PaidAt:     paidAt,
			CreatedAt:  now,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		// Amount paid is derived from the payments table, never incremented
		// in place, so a replayed request cannot drift the stored total.
		var totals struct {
			AmountPaid   int64
			PaymentCount int64
		}
		err = tx.WithContext(ctx).Raw(
			`SELECT COALESCE(SUM(amount), 0) AS amount_paid, COUNT(*) AS payment_count
			 FROM payments WHERE invoice_id = ?`,
			invoiceID,
		).Scan(&totals).Error
		if err != nil {
			return err
		}

		prev := invoiceState(*invoice)
		newStatus := invoice.Status
		if totals.AmountPaid >= invoice.TotalAmount {
			newStatus = invoicedomain.InvoiceStatusPaid
		}

		result := tx.Exec(
			`UPDATE invoices SET status = ?, amount_paid = ?, paid_at = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			newStatus,
			totals.AmountPaid,
			paidAtOrNil(newStatus, now, invoice.PaidAt),
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

		invoice.Status = newStatus
		invoice.AmountPaid = totals.AmountPaid
		if newStatus == invoicedomain.InvoiceStatusPaid && invoice.PaidAt == nil {
			invoice.PaidAt = &now
		}
		invoice.UpdatedAt = now

		receipt, err := s.writeReceipt(ctx, tx, invoice, payment, totals.PaymentCount, now)
		if err != nil {
			return err
		}

		resp = invoicedomain.RecordPaymentResponse{
			Invoice: *invoice,
			Payment: payment,
			Receipt: receipt,
		}
		return s.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventPaymentRecorded,
			EntityType: "invoice",
			EntityID:   invoiceID.String(),
			BusinessID: &businessID,
			PrevState:  prev,
			NewState:   invoiceState(*invoice),
			Metadata: map[string]any{
				"payment_id":     payment.ID.String(),
				"receipt_number": receipt.Number,
				"amount":         req.Amount,
			},
		})
	})
	s.observe("record_payment", err)
	if err != nil {
		return invoicedomain.RecordPaymentResponse{}, err
	}

	if resp.Invoice.Status == invoicedomain.InvoiceStatusPaid {
		s.log.Info("invoice fully paid",
			zap.String("invoice_id", invoiceID.String()),
			zap.String("business_id", businessID.String()),
			zap.Int64("amount_paid", resp.Invoice.AmountPaid),
		)
	}
	return resp, nil
}

func (s *Service) writeReceipt(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, payment invoicedomain.Payment, paymentCount int64, now time.Time) (invoicedomain.Receipt, error) {
	number := ""
	if invoice.Number != nil {
		number = *invoice.Number
	}
	receiptNumber := fmt.Sprintf("RCT-%s-%d", number, paymentCount)

	snap, err := integritydomain.ToJSONMap(integritydomain.ReceiptSnapshot{
		SchemaVersion: integritydomain.ReceiptSnapshotVersion,
		Kind:          "receipt",
		Issuer:        invoice.IssuerSnapshot,
		Payer:         invoice.RecipientSnapshot,
		InvoiceNumber: number,
		InvoiceTotal:  invoice.TotalAmount,
		AmountPaid:    payment.Amount,
		Method:        payment.Method,
		Reference:     payment.Reference,
		CapturedAt:    now,
	})
	if err != nil {
		return invoicedomain.Receipt{}, err
	}

	receipt := invoicedomain.Receipt{
		ID:             s.genID.Generate(),
		BusinessID:     invoice.BusinessID,
		InvoiceID:      invoice.ID,
		PaymentID:      payment.ID,
		Number:         receiptNumber,
		Amount:         payment.Amount,
		Snapshot:       snap,
		Hash:           integritydomain.Hash(receiptNumber, payment.Amount, now),
		VerificationID: integritydomain.NewVerificationID(now),
		IssuedAt:       now,
		CreatedAt:      now,
	}
	if err := tx.Create(&receipt).Error; err != nil {
		return invoicedomain.Receipt{}, err
	}
	return receipt, nil
}

func paidAtOrNil(status invoicedomain.InvoiceStatus, now time.Time, existing *time.Time) any {
	if status != invoicedomain.InvoiceStatusPaid {
		return nil
	}
	if existing != nil {
		return *existing
	}
	return now
}
