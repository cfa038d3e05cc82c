package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	invoicedomain "github.com/invoicemonk/invoicemonk/internal/invoice/domain"
	"github.com/invoicemonk/invoicemonk/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type lineItemPayload struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	TaxRate     string `json:"tax_rate"`
}

type draftInvoicePayload struct {
	ClientID         string            `json:"client_id"`
	Currency         string            `json:"currency"`
	LineItems        []lineItemPayload `json:"line_items"`
	DueAt            *time.Time        `json:"due_at"`
	Notes            string            `json:"notes"`
	Terms            string            `json:"terms"`
	TemplateID       *string           `json:"template_id"`
	PaymentMethodRef string            `json:"payment_method_ref"`
}

func (p draftInvoicePayload) toRequest() (invoicedomain.DraftRequest, error) {
	clientID, err := snowflake.ParseString(p.ClientID)
	if err != nil {
		return invoicedomain.DraftRequest{}, ErrInvalidRequest
	}

	items := make([]invoicedomain.LineItemInput, 0, len(p.LineItems))
	for _, item := range p.LineItems {
		rate := decimal.Zero
		if item.TaxRate != "" {
			rate, err = decimal.NewFromString(item.TaxRate)
			if err != nil {
				return invoicedomain.DraftRequest{}, ErrInvalidRequest
			}
		}
		items = append(items, invoicedomain.LineItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxRate:     rate,
		})
	}

	req := invoicedomain.DraftRequest{
		ClientID:         clientID,
		Currency:         p.Currency,
		LineItems:        items,
		DueAt:            p.DueAt,
		Notes:            p.Notes,
		Terms:            p.Terms,
		PaymentMethodRef: p.PaymentMethodRef,
	}
	if p.TemplateID != nil {
		templateID, err := snowflake.ParseString(*p.TemplateID)
		if err != nil {
			return invoicedomain.DraftRequest{}, ErrInvalidRequest
		}
		req.TemplateID = &templateID
	}
	return req, nil
}

func (s *Server) CreateDraftInvoice(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}

	var payload draftInvoicePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoice, err := s.invoiceSvc.CreateDraft(c.Request.Context(), businessID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": invoice})
}

func (s *Server) UpdateDraftInvoice(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}
	invoiceID, ok := parseID(c, "invoice_id")
	if !ok {
		return
	}

	var payload draftInvoicePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoice, err := s.invoiceSvc.UpdateDraft(c.Request.Context(), businessID, invoiceID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) GetInvoice(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}
	invoiceID, ok := parseID(c, "invoice_id")
	if !ok {
		return
	}

	invoice, items, err := s.invoiceSvc.GetByID(c.Request.Context(), businessID, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoice, "line_items": items})
}

func (s *Server) ListInvoices(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}

	var query struct {
		pagination.Pagination
		Status   string `form:"status"`
		ClientID string `form:"client_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	filter := invoicedomain.ListFilter{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	}
	if query.Status != "" {
		value := invoicedomain.InvoiceStatus(query.Status)
		filter.Status = &value
	}
	if query.ClientID != "" {
		clientID, err := snowflake.ParseString(query.ClientID)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		filter.ClientID = &clientID
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), businessID, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Invoices, "page_info": resp.PageInfo})
}

func (s *Server) DeleteDraftInvoice(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}
	invoiceID, ok := parseID(c, "invoice_id")
	if !ok {
		return
	}

	if err := s.invoiceSvc.Delete(c.Request.Context(), businessID, invoiceID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) IssueInvoice(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}
	invoiceID, ok := parseID(c, "invoice_id")
	if !ok {
		return
	}

	invoice, err := s.invoiceSvc.Issue(c.Request.Context(), businessID, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) SendInvoice(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}
	invoiceID, ok := parseID(c, "invoice_id")
	if !ok {
		return
	}

	if err := s.invoiceSvc.MarkSent(c.Request.Context(), businessID, invoiceID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ViewInvoice(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}
	invoiceID, ok := parseID(c, "invoice_id")
	if !ok {
		return
	}

	if err := s.invoiceSvc.MarkViewed(c.Request.Context(), businessID, invoiceID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type recordPaymentPayload struct {
	Amount    int64      `json:"amount"`
	Method    string     `json:"method"`
	Reference string     `json:"reference"`
	Notes     string     `json:"notes"`
	PaidAt    *time.Time `json:"paid_at"`
}

func (s *Server) RecordPayment(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}
	invoiceID, ok := parseID(c, "invoice_id")
	if !ok {
		return
	}

	var payload recordPaymentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.invoiceSvc.RecordPayment(c.Request.Context(), businessID, invoiceID, invoicedomain.RecordPaymentRequest{
		Amount:    payload.Amount,
		Method:    payload.Method,
		Reference: payload.Reference,
		Notes:     payload.Notes,
		PaidAt:    payload.PaidAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"data":    resp.Invoice,
		"payment": resp.Payment,
		"receipt": resp.Receipt,
	})
}

type voidPayload struct {
	Reason string `json:"reason"`
}

func (s *Server) VoidInvoice(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}
	invoiceID, ok := parseID(c, "invoice_id")
	if !ok {
		return
	}

	var payload voidPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	note, err := s.invoiceSvc.Void(c.Request.Context(), businessID, invoiceID, payload.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credit_note": note})
}
