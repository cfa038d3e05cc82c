package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/invoicemonk/invoicemonk/internal/audit/domain"
	"github.com/invoicemonk/invoicemonk/internal/clock"
	"github.com/invoicemonk/invoicemonk/internal/config"
	integritydomain "github.com/invoicemonk/invoicemonk/internal/integrity/domain"
	invoicedomain "github.com/invoicemonk/invoicemonk/internal/invoice/domain"
	"github.com/invoicemonk/invoicemonk/internal/observability/metrics"
	"github.com/invoicemonk/invoicemonk/pkg/db"
	"github.com/invoicemonk/invoicemonk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	GenID       *snowflake.Node
	Cfg         config.Config
	AuditSvc    auditdomain.Service
	Snapshotter integritydomain.Snapshotter
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	genID       *snowflake.Node
	cfg         config.Config
	auditSvc    auditdomain.Service
	snapshotter integritydomain.Snapshotter
	metrics     *metrics.Metrics
}

func NewService(p Params) invoicedomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("invoice.service"),
		clock:       p.Clock,
		genID:       p.GenID,
		cfg:         p.Cfg,
		auditSvc:    p.AuditSvc,
		snapshotter: p.Snapshotter,
		metrics:     p.Metrics,
	}
}

func (s *Service) CreateDraft(ctx context.Context, businessID snowflake.ID, req invoicedomain.DraftRequest) (invoicedomain.Invoice, error) {
	if businessID == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidBusiness
	}
	if err := invoicedomain.ValidateLineItems(req.LineItems); err != nil {
		return invoicedomain.Invoice{}, err
	}
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	var created invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		business, err := s.loadBusiness(ctx, tx, businessID)
		if err != nil {
			return err
		}
		if business.CurrencyLocked && currency != business.Currency {
			return invoicedomain.ErrCurrencyLocked
		}

		if err := s.checkClient(ctx, tx, businessID, req.ClientID); err != nil {
			return err
		}

		totals := invoicedomain.ComputeTotals(req.LineItems)
		now := s.clock.Now()
		invoice := invoicedomain.Invoice{
			ID:               s.genID.Generate(),
			BusinessID:       businessID,
			ClientID:         req.ClientID,
			Status:           invoicedomain.InvoiceStatusDraft,
			Currency:         currency,
			SubtotalAmount:   totals.Subtotal,
			TaxAmount:        totals.Tax,
			TotalAmount:      totals.Total,
			DueAt:            req.DueAt,
			Notes:            strings.TrimSpace(req.Notes),
			Terms:            strings.TrimSpace(req.Terms),
			TemplateID:       req.TemplateID,
			PaymentMethodRef: strings.TrimSpace(req.PaymentMethodRef),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}
		if err := s.insertLineItems(ctx, tx, &invoice, req.LineItems, now); err != nil {
			return err
		}

		created = invoice
		return s.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventInvoiceCreated,
			EntityType: "invoice",
			EntityID:   invoice.ID.String(),
			BusinessID: &businessID,
			NewState:   invoiceState(invoice),
		})
	})
	s.observe("create_draft", err)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return created, nil
}

func (s *Service) UpdateDraft(ctx context.Context, businessID, invoiceID snowflake.ID, req invoicedomain.DraftRequest) (invoicedomain.Invoice, error) {
	if err := invoicedomain.ValidateLineItems(req.LineItems); err != nil {
		return invoicedomain.Invoice{}, err
	}
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	var updated invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
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

		business, err := s.loadBusiness(ctx, tx, businessID)
		if err != nil {
			return err
		}
		if business.CurrencyLocked && currency != business.Currency {
			return invoicedomain.ErrCurrencyLocked
		}

		if err := s.checkClient(ctx, tx, businessID, req.ClientID); err != nil {
			return err
		}

		prev := invoiceState(*invoice)
		totals := invoicedomain.ComputeTotals(req.LineItems)
		now := s.clock.Now()

		result := tx.Exec(
			`UPDATE invoices
			 SET client_id = ?, currency = ?, subtotal_amount = ?, tax_amount = ?,
			     total_amount = ?, due_at = ?, notes = ?, terms = ?, template_id = ?,
			     payment_method_ref = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			req.ClientID,
			currency,
			totals.Subtotal,
			totals.Tax,
			totals.Total,
			req.DueAt,
			strings.TrimSpace(req.Notes),
			strings.TrimSpace(req.Terms),
			req.TemplateID,
			strings.TrimSpace(req.PaymentMethodRef),
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

		if err := tx.Exec(
			`DELETE FROM invoice_line_items WHERE invoice_id = ?`, invoiceID,
		).Error; err != nil {
			return err
		}

		invoice.ClientID = req.ClientID
		invoice.Currency = currency
		invoice.SubtotalAmount = totals.Subtotal
		invoice.TaxAmount = totals.Tax
		invoice.TotalAmount = totals.Total
		invoice.DueAt = req.DueAt
		invoice.Notes = strings.TrimSpace(req.Notes)
		invoice.Terms = strings.TrimSpace(req.Terms)
		invoice.TemplateID = req.TemplateID
		invoice.PaymentMethodRef = strings.TrimSpace(req.PaymentMethodRef)
		invoice.UpdatedAt = now
		if err := s.insertLineItems(ctx, tx, invoice, req.LineItems, now); err != nil {
			return err
		}

		updated = *invoice
		return s.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventInvoiceUpdated,
			EntityType: "invoice",
			EntityID:   invoiceID.String(),
			BusinessID: &businessID,
			PrevState:  prev,
			NewState:   invoiceState(*invoice),
		})
	})
	s.observe("update_draft", err)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, businessID, invoiceID snowflake.ID) (invoicedomain.Invoice, []invoicedomain.LineItem, error) {
	var invoice invoicedomain.Invoice
	err := s.db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, invoiceID).
		Limit(1).
		Find(&invoice).Error
	if err != nil {
		return invoicedomain.Invoice{}, nil, err
	}
	if invoice.ID == 0 {
		return invoicedomain.Invoice{}, nil, invoicedomain.ErrInvoiceNotFound
	}

	var items []invoicedomain.LineItem
	err = s.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("position asc").
		Find(&items).Error
	if err != nil {
		return invoicedomain.Invoice{}, nil, err
	}
	return invoice, items, nil
}

func (s *Service) List(ctx context.Context, businessID snowflake.ID, filter invoicedomain.ListFilter) (invoicedomain.ListResponse, error) {
	if businessID == 0 {
		return invoicedomain.ListResponse{}, invoicedomain.ErrInvalidBusiness
	}

	stmt := s.db.WithContext(ctx).Model(&invoicedomain.Invoice{}).
		Where("business_id = ?", businessID)
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.ClientID != nil {
		stmt = stmt.Where("client_id = ?", *filter.ClientID)
	}
	if filter.PageToken != "" {
		cursor, err := pagination.DecodeCursor(filter.PageToken)
		if err != nil {
			return invoicedomain.ListResponse{}, invoicedomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return invoicedomain.ListResponse{}, invoicedomain.ErrInvalidPageToken
		}
		cursorID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return invoicedomain.ListResponse{}, invoicedomain.ErrInvalidPageToken
		}
		stmt = stmt.Where("created_at < ? OR (created_at = ? AND id < ?)", createdAt, createdAt, cursorID)
	}

	limit := filter.PageSize
	if limit <= 0 {
		limit = 50
	}
	if limit > 250 {
		limit = 250
	}

	var invoices []invoicedomain.Invoice
	// limit+1 so TrimPage can tell whether a next page exists.
	err := stmt.Order("created_at desc, id desc").Limit(limit + 1).Find(&invoices).Error
	if err != nil {
		return invoicedomain.ListResponse{}, err
	}

	invoices, pageInfo := pagination.TrimPage(invoices, limit, func(inv invoicedomain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        inv.ID.String(),
			CreatedAt: inv.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	return invoicedomain.ListResponse{Invoices: invoices, PageInfo: pageInfo}, nil
}

func (s *Service) Delete(ctx context.Context, businessID, invoiceID snowflake.ID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadInvoiceForUpdate(ctx, tx, businessID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if invoice.Status != invoicedomain.InvoiceStatusDraft {
			return invoicedomain.ErrNotDeletable
		}

		if err := tx.Exec(
			`DELETE FROM invoice_line_items WHERE invoice_id = ?`, invoiceID,
		).Error; err != nil {
			return err
		}
		result := tx.Exec(
			`DELETE FROM invoices WHERE id = ? AND status = ?`,
			invoiceID, invoicedomain.InvoiceStatusDraft,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invoicedomain.ErrConflictingTransition
		}

		// Draft deletion carries no compliance weight; logged for completeness.
		return s.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventInvoiceDeleted,
			EntityType: "invoice",
			EntityID:   invoiceID.String(),
			BusinessID: &businessID,
			PrevState:  invoiceState(*invoice),
		})
	})
	s.observe("delete", err)
	return err
}

type businessRow struct {
	ID             snowflake.ID
	Currency       string
	CurrencyLocked bool
	Jurisdiction   string
}

// loadBusinessForUpdate takes the business row lock. Issuance serializes on
// it so the number sequence and quota check cannot race.
func (s *Service) loadBusinessForUpdate(ctx context.Context, tx *gorm.DB, businessID snowflake.ID) (*businessRow, error) {
	return s.loadBusinessRow(ctx, tx, businessID, db.LockingSuffix(tx))
}

func (s *Service) loadBusiness(ctx context.Context, tx *gorm.DB, businessID snowflake.ID) (*businessRow, error) {
	return s.loadBusinessRow(ctx, tx, businessID, "")
}

func (s *Service) loadBusinessRow(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, suffix string) (*businessRow, error) {
	var business businessRow
	err := tx.WithContext(ctx).Raw(
		`SELECT id, currency, currency_locked, jurisdiction
		 FROM businesses
		 WHERE id = ?`+suffix,
		businessID,
	).Scan(&business).Error
	if err != nil {
		return nil, err
	}
	if business.ID == 0 {
		return nil, invoicedomain.ErrInvalidBusiness
	}
	return &business, nil
}

func (s *Service) loadInvoiceForUpdate(ctx context.Context, tx *gorm.DB, businessID, invoiceID snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := tx.WithContext(ctx).Raw(
		`SELECT *
		 FROM invoices
		 WHERE business_id = ? AND id = ?`+db.LockingSuffix(tx),
		businessID,
		invoiceID,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (s *Service) checkClient(ctx context.Context, tx *gorm.DB, businessID, clientID snowflake.ID) error {
	var id snowflake.ID
	err := tx.WithContext(ctx).Raw(
		`SELECT id FROM clients WHERE business_id = ? AND id = ?`,
		businessID,
		clientID,
	).Scan(&id).Error
	if err != nil {
		return err
	}
	if id == 0 {
		return invoicedomain.ErrClientNotFound
	}
	return nil
}

func (s *Service) insertLineItems(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, items []invoicedomain.LineItemInput, now time.Time) error {
	for i, item := range items {
		line := item.Quantity * item.UnitPrice
		tax := invoicedomain.ComputeTotals([]invoicedomain.LineItemInput{item}).Tax
		row := invoicedomain.LineItem{
			ID:          s.genID.Generate(),
			BusinessID:  invoice.BusinessID,
			InvoiceID:   invoice.ID,
			Position:    i,
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxRate:     item.TaxRate,
			LineTotal:   line,
			TaxAmount:   tax,
			CreatedAt:   now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) nextInvoiceNumber(ctx context.Context, tx *gorm.DB, businessID snowflake.ID) (int64, string, error) {
	var next int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(number_seq), 0) + 1
		 FROM invoices
		 WHERE business_id = ?`,
		businessID,
	).Scan(&next).Error
	if err != nil {
		return 0, "", err
	}
	return next, fmt.Sprintf("INV-%04d", next), nil
}

func (s *Service) observe(action string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(action, err)
	}
}

func invoiceState(invoice invoicedomain.Invoice) map[string]any {
	state := map[string]any{
		"status":          string(invoice.Status),
		"client_id":       invoice.ClientID.String(),
		"currency":        invoice.Currency,
		"subtotal_amount": invoice.SubtotalAmount,
		"tax_amount":      invoice.TaxAmount,
		"total_amount":    invoice.TotalAmount,
		"amount_paid":     invoice.AmountPaid,
	}
	if invoice.Number != nil {
		state["number"] = *invoice.Number
	}
	if invoice.InvoiceHash != nil {
		state["invoice_hash"] = *invoice.InvoiceHash
	}
	if invoice.IssuedAt != nil {
		state["issued_at"] = invoice.IssuedAt.UTC().Format(time.RFC3339)
	}
	return state
}

func normalizeCurrency(raw string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if len(currency) != 3 {
		return "", invoicedomain.ErrInvalidCurrency
	}
	return currency, nil
}
