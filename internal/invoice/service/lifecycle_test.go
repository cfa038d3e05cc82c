package service

import (
	"testing"
	"time"

	invoicedomain "github.com/invoicemonk/invoicemonk/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftLifecycle(t *testing.T) {
	h := newHarness(t)
	businessID := h.seedBusiness()
	clientID := h.seedClient(businessID)
	ctx := verifiedCtx()

	t.Run("create draft computes totals", func(t *testing.T) {
		invoice, err := h.svc.CreateDraft(ctx, businessID, dollarsDraft(clientID, "7.5"))
		require.NoError(t, err)

		assert.Equal(t, invoicedomain.InvoiceStatusDraft, invoice.Status)
		assert.Equal(t, int64(100000), invoice.SubtotalAmount)
		assert.Equal(t, int64(7500), invoice.TaxAmount)
		assert.Equal(t, int64(107500), invoice.TotalAmount)
		assert.Nil(t, invoice.Number)
		assert.Nil(t, invoice.InvoiceHash)
	})

	t.Run("create draft rejects empty line items", func(t *testing.T) {
		req := dollarsDraft(clientID, "0")
		req.LineItems = nil
		_, err := h.svc.CreateDraft(ctx, businessID, req)
		assert.ErrorIs(t, err, invoicedomain.ErrNoLineItems)
	})

	t.Run("create draft rejects unknown client", func(t *testing.T) {
		req := dollarsDraft(h.node.Generate(), "0")
		_, err := h.svc.CreateDraft(ctx, businessID, req)
		assert.ErrorIs(t, err, invoicedomain.ErrClientNotFound)
	})

	t.Run("update draft replaces line items and retotals", func(t *testing.T) {
		invoice, err := h.svc.CreateDraft(ctx, businessID, dollarsDraft(clientID, "7.5"))
		require.NoError(t, err)

		req := invoicedomain.DraftRequest{
			ClientID: clientID,
			Currency: "USD",
			LineItems: []invoicedomain.LineItemInput{
				{Description: "Consulting", Quantity: 2, UnitPrice: 25000, TaxRate: mustDecimal("10")},
				{Description: "Hosting", Quantity: 1, UnitPrice: 5000, TaxRate: mustDecimal("0")},
			},
			Notes: "Net 30",
		}
		updated, err := h.svc.UpdateDraft(ctx, businessID, invoice.ID, req)
		require.NoError(t, err)

		assert.Equal(t, int64(55000), updated.SubtotalAmount)
		assert.Equal(t, int64(5000), updated.TaxAmount)
		assert.Equal(t, int64(60000), updated.TotalAmount)
		assert.Equal(t, "Net 30", updated.Notes)

		_, items, err := h.svc.GetByID(ctx, businessID, invoice.ID)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Consulting", items[0].Description)
		assert.Equal(t, int64(5000), items[0].TaxAmount)
	})

	t.Run("list scopes to business", func(t *testing.T) {
		otherBusiness := h.seedBusiness()
		otherClient := h.seedClient(otherBusiness)
		_, err := h.svc.CreateDraft(ctx, otherBusiness, invoicedomain.DraftRequest{
			ClientID:  otherClient,
			Currency:  "USD",
			LineItems: []invoicedomain.LineItemInput{{Description: "One-off", Quantity: 1, UnitPrice: 100, TaxRate: mustDecimal("0")}},
		})
		require.NoError(t, err)

		resp, err := h.svc.List(ctx, otherBusiness, invoicedomain.ListFilter{})
		require.NoError(t, err)
		assert.Len(t, resp.Invoices, 1)
		assert.False(t, resp.PageInfo.HasMore)
	})

	t.Run("list pages by cursor", func(t *testing.T) {
		pagedBusiness := h.seedBusiness()
		pagedClient := h.seedClient(pagedBusiness)
		for i := 0; i < 3; i++ {
			_, err := h.svc.CreateDraft(ctx, pagedBusiness, dollarsDraft(pagedClient, "0"))
			require.NoError(t, err)
			h.clk.Advance(time.Second)
		}

		first, err := h.svc.List(ctx, pagedBusiness, invoicedomain.ListFilter{PageSize: 2})
		require.NoError(t, err)
		require.Len(t, first.Invoices, 2)
		assert.True(t, first.PageInfo.HasMore)
		require.NotEmpty(t, first.PageInfo.NextPageToken)

		second, err := h.svc.List(ctx, pagedBusiness, invoicedomain.ListFilter{
			PageSize:  2,
			PageToken: first.PageInfo.NextPageToken,
		})
		require.NoError(t, err)
		require.Len(t, second.Invoices, 1)
		assert.False(t, second.PageInfo.HasMore)
		assert.NotEqual(t, first.Invoices[0].ID, second.Invoices[0].ID)

		_, err = h.svc.List(ctx, pagedBusiness, invoicedomain.ListFilter{PageToken: "not-a-cursor"})
		assert.ErrorIs(t, err, invoicedomain.ErrInvalidPageToken)
	})

	t.Run("delete draft removes invoice and lines", func(t *testing.T) {
		invoice, err := h.svc.CreateDraft(ctx, businessID, dollarsDraft(clientID, "0"))
		require.NoError(t, err)

		require.NoError(t, h.svc.Delete(ctx, businessID, invoice.ID))

		_, _, err = h.svc.GetByID(ctx, businessID, invoice.ID)
		assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

		var lines int64
		require.NoError(t, h.db.Table("invoice_line_items").Where("invoice_id = ?", invoice.ID).Count(&lines).Error)
		assert.Zero(t, lines)
	})

	t.Run("get unknown invoice", func(t *testing.T) {
		_, _, err := h.svc.GetByID(ctx, businessID, h.node.Generate())
		assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
	})
}

func TestDraftGuardsAfterIssue(t *testing.T) {
	h := newHarness(t)
	businessID := h.seedBusiness()
	clientID := h.seedClient(businessID)
	ctx := verifiedCtx()

	invoice, err := h.svc.CreateDraft(ctx, businessID, dollarsDraft(clientID, "7.5"))
	require.NoError(t, err)
	_, err = h.svc.Issue(ctx, businessID, invoice.ID)
	require.NoError(t, err)

	t.Run("update issued invoice", func(t *testing.T) {
		_, err := h.svc.UpdateDraft(ctx, businessID, invoice.ID, dollarsDraft(clientID, "7.5"))
		assert.ErrorIs(t, err, invoicedomain.ErrNotDraft)
	})

	t.Run("delete issued invoice", func(t *testing.T) {
		err := h.svc.Delete(ctx, businessID, invoice.ID)
		assert.ErrorIs(t, err, invoicedomain.ErrNotDeletable)
	})

	t.Run("issue twice", func(t *testing.T) {
		_, err := h.svc.Issue(ctx, businessID, invoice.ID)
		assert.ErrorIs(t, err, invoicedomain.ErrNotDraft)
	})
}

func TestSendViewTransitions(t *testing.T) {
	h := newHarness(t)
	businessID := h.seedBusiness()
	clientID := h.seedClient(businessID)
	ctx := verifiedCtx()

	draft, err := h.svc.CreateDraft(ctx, businessID, dollarsDraft(clientID, "0"))
	require.NoError(t, err)

	t.Run("draft is not sendable", func(t *testing.T) {
		err := h.svc.MarkSent(ctx, businessID, draft.ID)
		assert.ErrorIs(t, err, invoicedomain.ErrNotSendable)
	})

	_, err = h.svc.Issue(ctx, businessID, draft.ID)
	require.NoError(t, err)

	t.Run("issued to sent to viewed", func(t *testing.T) {
		require.NoError(t, h.svc.MarkSent(ctx, businessID, draft.ID))
		require.NoError(t, h.svc.MarkViewed(ctx, businessID, draft.ID))

		invoice, _, err := h.svc.GetByID(ctx, businessID, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, invoicedomain.InvoiceStatusViewed, invoice.Status)
		assert.NotNil(t, invoice.SentAt)
		assert.NotNil(t, invoice.ViewedAt)
	})

	t.Run("repeat view is a no-op", func(t *testing.T) {
		require.NoError(t, h.svc.MarkViewed(ctx, businessID, draft.ID))
	})

	t.Run("resend after view keeps status viewed", func(t *testing.T) {
		require.NoError(t, h.svc.MarkSent(ctx, businessID, draft.ID))

		invoice, _, err := h.svc.GetByID(ctx, businessID, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, invoicedomain.InvoiceStatusViewed, invoice.Status)
		assert.NotNil(t, invoice.ViewedAt)
	})
}
