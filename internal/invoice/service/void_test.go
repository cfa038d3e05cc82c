package service

import (
	"testing"

	integritydomain "github.com/invoicemonk/invoicemonk/internal/integrity/domain"
	invoicedomain "github.com/invoicemonk/invoicemonk/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoid(t *testing.T) {
	h := newHarness(t)
	businessID := h.seedBusiness()
	clientID := h.seedClient(businessID)
	ctx := verifiedCtx()

	draft, err := h.svc.CreateDraft(ctx, businessID, dollarsDraft(clientID, "7.5"))
	require.NoError(t, err)
	issued, err := h.svc.Issue(ctx, businessID, draft.ID)
	require.NoError(t, err)

	t.Run("reason shorter than ten characters is rejected", func(t *testing.T) {
		_, err := h.svc.Void(ctx, businessID, draft.ID, "oops")
		assert.ErrorIs(t, err, invoicedomain.ErrReasonTooShort)

		// Padding with whitespace does not help.
		_, err = h.svc.Void(ctx, businessID, draft.ID, "  oops    \t  ")
		assert.ErrorIs(t, err, invoicedomain.ErrReasonTooShort)
	})

	t.Run("void writes a credit note and flips status", func(t *testing.T) {
		note, err := h.svc.Void(ctx, businessID, draft.ID, "duplicate of INV-0002")
		require.NoError(t, err)

		assert.Equal(t, "CN-INV-0001", note.Number)
		assert.Equal(t, issued.TotalAmount, note.Amount)
		assert.Equal(t, "USD", note.Currency)
		assert.True(t, integritydomain.Verify(note.Number, note.Amount, note.IssuedAt, note.Hash))

		invoice, _, err := h.svc.GetByID(ctx, businessID, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, invoicedomain.InvoiceStatusVoided, invoice.Status)
		require.NotNil(t, invoice.VoidReason)
		assert.Equal(t, "duplicate of INV-0002", *invoice.VoidReason)
		require.NotNil(t, invoice.VoidedBy)
		assert.Equal(t, "user_42", *invoice.VoidedBy)

		// The issued document itself keeps its number, hash and snapshots.
		assert.Equal(t, issued.Number, invoice.Number)
		assert.Equal(t, issued.InvoiceHash, invoice.InvoiceHash)
	})

	t.Run("voided invoice cannot be voided again", func(t *testing.T) {
		_, err := h.svc.Void(ctx, businessID, draft.ID, "changed my mind twice")
		assert.ErrorIs(t, err, invoicedomain.ErrNotVoidable)
	})

	t.Run("voided invoice cannot take payments", func(t *testing.T) {
		_, err := h.svc.RecordPayment(ctx, businessID, draft.ID, invoicedomain.RecordPaymentRequest{Amount: 100})
		assert.ErrorIs(t, err, invoicedomain.ErrNotPayable)
	})

	t.Run("draft cannot be voided", func(t *testing.T) {
		other, err := h.svc.CreateDraft(ctx, businessID, dollarsDraft(clientID, "0"))
		require.NoError(t, err)
		_, err = h.svc.Void(ctx, businessID, other.ID, "never issued anyway")
		assert.ErrorIs(t, err, invoicedomain.ErrNotVoidable)
	})

	t.Run("paid invoice cannot be voided", func(t *testing.T) {
		other, err := h.svc.CreateDraft(ctx, businessID, dollarsDraft(clientID, "0"))
		require.NoError(t, err)
		issuedOther, err := h.svc.Issue(ctx, businessID, other.ID)
		require.NoError(t, err)
		_, err = h.svc.RecordPayment(ctx, businessID, other.ID, invoicedomain.RecordPaymentRequest{Amount: issuedOther.TotalAmount})
		require.NoError(t, err)

		_, err = h.svc.Void(ctx, businessID, other.ID, "too late, already settled")
		assert.ErrorIs(t, err, invoicedomain.ErrNotVoidable)
	})
}

func TestVoidLeavesNoOrphanOnRollback(t *testing.T) {
	h := newHarness(t)
	businessID := h.seedBusiness()
	clientID := h.seedClient(businessID)
	ctx := verifiedCtx()

	draft, err := h.svc.CreateDraft(ctx, businessID, dollarsDraft(clientID, "0"))
	require.NoError(t, err)
	_, err = h.svc.Issue(ctx, businessID, draft.ID)
	require.NoError(t, err)

	note, err := h.svc.Void(ctx, businessID, draft.ID, "cancelled by the client")
	require.NoError(t, err)

	// Exactly one credit note per invoice, even after a failed second void.
	_, err = h.svc.Void(ctx, businessID, draft.ID, "cancelled by the client")
	assert.ErrorIs(t, err, invoicedomain.ErrNotVoidable)

	var count int64
	require.NoError(t, h.db.Table("credit_notes").Where("invoice_id = ?", draft.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var stored invoicedomain.CreditNote
	require.NoError(t, h.db.Where("invoice_id = ?", draft.ID).First(&stored).Error)
	assert.Equal(t, note.ID, stored.ID)
}
