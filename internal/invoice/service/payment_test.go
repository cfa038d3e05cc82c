package service

import (
	"testing"

	integritydomain "github.com/invoicemonk/invoicemonk/internal/integrity/domain"
	invoicedomain "github.com/invoicemonk/invoicemonk/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPayment(t *testing.T) {
	h := newHarness(t)
	businessID := h.seedBusiness()
	clientID := h.seedClient(businessID)
	ctx := verifiedCtx()

	draft, err := h.svc.CreateDraft(ctx, businessID, dollarsDraft(clientID, "7.5"))
	require.NoError(t, err)
	issued, err := h.svc.Issue(ctx, businessID, draft.ID)
	require.NoError(t, err)
	total := issued.TotalAmount

	t.Run("non-positive amounts are rejected", func(t *testing.T) {
		_, err := h.svc.RecordPayment(ctx, businessID, draft.ID, invoicedomain.RecordPaymentRequest{Amount: 0})
		assert.ErrorIs(t, err, invoicedomain.ErrInvalidAmount)
		_, err = h.svc.RecordPayment(ctx, businessID, draft.ID, invoicedomain.RecordPaymentRequest{Amount: -500})
		assert.ErrorIs(t, err, invoicedomain.ErrInvalidAmount)
	})

	t.Run("partial payment keeps the invoice open", func(t *testing.T) {
		resp, err := h.svc.RecordPayment(ctx, businessID, draft.ID, invoicedomain.RecordPaymentRequest{
			Amount: total / 2,
			Method: "bank_transfer",
		})
		require.NoError(t, err)

		assert.Equal(t, invoicedomain.InvoiceStatusIssued, resp.Invoice.Status)
		assert.Equal(t, total/2, resp.Invoice.AmountPaid)
		assert.Nil(t, resp.Invoice.PaidAt)
		assert.Equal(t, "RCT-INV-0001-1", resp.Receipt.Number)
	})

	t.Run("covering the balance flips to paid", func(t *testing.T) {
		remaining := total - total/2
		resp, err := h.svc.RecordPayment(ctx, businessID, draft.ID, invoicedomain.RecordPaymentRequest{
			Amount: remaining,
			Method: "bank_transfer",
		})
		require.NoError(t, err)

		assert.Equal(t, invoicedomain.InvoiceStatusPaid, resp.Invoice.Status)
		assert.Equal(t, total, resp.Invoice.AmountPaid)
		require.NotNil(t, resp.Invoice.PaidAt)
		assert.Equal(t, "RCT-INV-0001-2", resp.Receipt.Number)
	})

	t.Run("paid invoice takes no further payments", func(t *testing.T) {
		_, err := h.svc.RecordPayment(ctx, businessID, draft.ID, invoicedomain.RecordPaymentRequest{Amount: 100})
		assert.ErrorIs(t, err, invoicedomain.ErrNotPayable)
	})

	t.Run("draft takes no payments", func(t *testing.T) {
		other, err := h.svc.CreateDraft(ctx, businessID, dollarsDraft(clientID, "0"))
		require.NoError(t, err)
		_, err = h.svc.RecordPayment(ctx, businessID, other.ID, invoicedomain.RecordPaymentRequest{Amount: 100})
		assert.ErrorIs(t, err, invoicedomain.ErrNotPayable)
	})
}

func TestReceipts(t *testing.T) {
	h := newHarness(t)
	businessID := h.seedBusiness()
	clientID := h.seedClient(businessID)
	ctx := verifiedCtx()

	draft, err := h.svc.CreateDraft(ctx, businessID, dollarsDraft(clientID, "0"))
	require.NoError(t, err)
	issued, err := h.svc.Issue(ctx, businessID, draft.ID)
	require.NoError(t, err)

	resp, err := h.svc.RecordPayment(ctx, businessID, draft.ID, invoicedomain.RecordPaymentRequest{
		Amount:    issued.TotalAmount,
		Method:    "card",
		Reference: "ch_123",
	})
	require.NoError(t, err)

	t.Run("receipt freezes payment context", func(t *testing.T) {
		receipt := resp.Receipt
		assert.Equal(t, resp.Payment.ID, receipt.PaymentID)
		assert.Equal(t, issued.TotalAmount, receipt.Amount)
		assert.Equal(t, "INV-0001", receipt.Snapshot["invoice_number"])
		assert.Equal(t, "card", receipt.Snapshot["method"])
		assert.NotEmpty(t, receipt.Snapshot["issuer"])
		assert.NotEmpty(t, receipt.Snapshot["payer"])
	})

	t.Run("receipt hash recomputes", func(t *testing.T) {
		receipt := resp.Receipt
		assert.True(t, integritydomain.Verify(receipt.Number, receipt.Amount, receipt.IssuedAt, receipt.Hash))
		assert.NotEmpty(t, receipt.VerificationID)
	})

	t.Run("payments are append-only rows", func(t *testing.T) {
		var count int64
		require.NoError(t, h.db.Table("payments").Where("invoice_id = ?", draft.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}
