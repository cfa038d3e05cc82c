package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/invoicemonk/invoicemonk/internal/actorcontext"
	auditdomain "github.com/invoicemonk/invoicemonk/internal/audit/domain"
	"github.com/invoicemonk/invoicemonk/internal/clock"
	integritydomain "github.com/invoicemonk/invoicemonk/internal/integrity/domain"
	invoicedomain "github.com/invoicemonk/invoicemonk/internal/invoice/domain"
	"github.com/invoicemonk/invoicemonk/internal/observability/metrics"
	verificationdomain "github.com/invoicemonk/invoicemonk/internal/verification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	AuditSvc auditdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p Params) verificationdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("verification.service"),
		clock:    p.Clock,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

type verifiableRow struct {
	ID         int64
	BusinessID int64
	Status     invoicedomain.InvoiceStatus
	Number     string
	Amount     int64
	Currency   string
	IssuedAt   time.Time
	Hash       string
}

func (s *Service) Lookup(ctx context.Context, verificationID string) (verificationdomain.Result, error) {
	verificationID = strings.TrimSpace(verificationID)
	if verificationID == "" {
		return verificationdomain.Result{}, verificationdomain.ErrNotFound
	}

	lookups := []struct {
		kind  verificationdomain.RecordKind
		query string
	}{
		{verificationdomain.KindInvoice,
			`SELECT id, business_id, status, number, total_amount AS amount, currency, issued_at, invoice_hash AS hash
			 FROM invoices WHERE verification_id = ?`},
		{verificationdomain.KindCreditNote,
			`SELECT number, amount, currency, issued_at, hash
			 FROM credit_notes WHERE verification_id = ?`},
		{verificationdomain.KindReceipt,
			`SELECT r.number, r.amount, i.currency, r.issued_at, r.hash
			 FROM receipts r JOIN invoices i ON i.id = r.invoice_id
			 WHERE r.verification_id = ?`},
	}

	for _, lookup := range lookups {
		var row verifiableRow
		err := s.db.WithContext(ctx).Raw(lookup.query, verificationID).Scan(&row).Error
		if err != nil {
			return verificationdomain.Result{}, err
		}
		if row.Hash == "" {
			continue
		}

		valid := integritydomain.Verify(row.Number, row.Amount, row.IssuedAt, row.Hash)
		if s.metrics != nil {
			s.metrics.ObserveVerification(valid)
		}
		if !valid {
			s.log.Warn("hash mismatch on verification lookup",
				zap.String("kind", string(lookup.kind)),
				zap.String("number", row.Number),
			)
		}
		if lookup.kind == verificationdomain.KindInvoice {
			s.markViewed(ctx, row)
		}
		return verificationdomain.Result{
			Kind:      lookup.kind,
			Number:    row.Number,
			Amount:    row.Amount,
			Currency:  row.Currency,
			IssuedAt:  row.IssuedAt,
			HashValid: valid,
		}, nil
	}

	return verificationdomain.Result{}, verificationdomain.ErrNotFound
}

// markViewed records that the recipient opened the invoice. Best effort:
// a failure here never blocks the verification response.
func (s *Service) markViewed(ctx context.Context, row verifiableRow) {
	if row.Status != invoicedomain.InvoiceStatusIssued && row.Status != invoicedomain.InvoiceStatusSent {
		return
	}

	ctx = actorcontext.WithActor(ctx, actorcontext.Actor{ID: "public-view", Role: "system", EmailVerified: true})
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(
			`UPDATE invoices SET status = ?, updated_at = ? WHERE id = ? AND status IN (?, ?)`,
			invoicedomain.InvoiceStatusViewed,
			s.clock.Now(),
			row.ID,
			invoicedomain.InvoiceStatusIssued,
			invoicedomain.InvoiceStatusSent,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		businessID := snowflake.ID(row.BusinessID)
		return s.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventInvoiceViewed,
			EntityType: "invoice",
			EntityID:   snowflake.ID(row.ID).String(),
			BusinessID: &businessID,
			PrevState:  map[string]any{"status": row.Status},
			NewState:   map[string]any{"status": invoicedomain.InvoiceStatusViewed},
			Metadata:   map[string]any{"via": "public_verification"},
		})
	})
	if err != nil {
		s.log.Warn("public view transition failed",
			zap.Int64("invoice_id", row.ID),
			zap.Error(err),
		)
	}
}
