// Package reconcile repairs credit notes left without a voided invoice.
package reconcile

import (
	"context"
	"time"

	"github.com/invoicemonk/invoicemonk/internal/actorcontext"
	auditdomain "github.com/invoicemonk/invoicemonk/internal/audit/domain"
	"github.com/invoicemonk/invoicemonk/internal/clock"
	"github.com/invoicemonk/invoicemonk/internal/config"
	invoicedomain "github.com/invoicemonk/invoicemonk/internal/invoice/domain"
	"github.com/invoicemonk/invoicemonk/internal/observability/metrics"
	"github.com/invoicemonk/invoicemonk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Cfg      config.Config
	AuditSvc auditdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

// Reconciler scans for credit notes whose invoice never flipped to VOIDED
// and completes the void. The void path itself is transactional, so a hit
// here means manual database intervention or a bug; every hit is logged
// loudly and counted.
type Reconciler struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	cfg      config.Config
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) *Reconciler {
	return &Reconciler{
		db:       p.DB,
		log:      p.Log.Named("reconcile"),
		clock:    p.Clock,
		cfg:      p.Cfg,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

type orphanRow struct {
	CreditNoteID int64
	InvoiceID    int64
	BusinessID   int64
	Number       string
	Reason       string
	Status       invoicedomain.InvoiceStatus
}

// RunOnce performs a single orphan scan and repair pass.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	ctx = actorcontext.WithActor(ctx, actorcontext.Actor{ID: "reconciler", Role: "system", EmailVerified: true})

	var orphans []orphanRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT cn.id AS credit_note_id, cn.invoice_id, cn.business_id, cn.number, cn.reason, i.status
		 FROM credit_notes cn
		 JOIN invoices i ON i.id = cn.invoice_id
		 WHERE i.status <> ?`,
		invoicedomain.InvoiceStatusVoided,
	).Scan(&orphans).Error
	if err != nil {
		return err
	}

	for _, orphan := range orphans {
		r.log.Error("orphan credit note detected",
			zap.Int64("credit_note_id", orphan.CreditNoteID),
			zap.Int64("invoice_id", orphan.InvoiceID),
			zap.String("credit_note_number", orphan.Number),
			zap.String("invoice_status", string(orphan.Status)),
		)
		if r.metrics != nil {
			r.metrics.ObserveOrphanCreditNote()
		}
		if err := r.repair(ctx, orphan); err != nil {
			r.log.Error("orphan credit note repair failed",
				zap.Int64("credit_note_id", orphan.CreditNoteID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// repair completes the interrupted void: the credit note already exists, so
// the invoice is moved to VOIDED with the note's reason.
func (r *Reconciler) repair(ctx context.Context, orphan orphanRow) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice invoicedomain.Invoice
		err := tx.Raw(
			`SELECT * FROM invoices WHERE id = ?`+db.LockingSuffix(tx),
			orphan.InvoiceID,
		).Scan(&invoice).Error
		if err != nil {
			return err
		}
		if invoice.ID == 0 || invoice.Status == invoicedomain.InvoiceStatusVoided {
			return nil
		}

		now := r.clock.Now()
		result := tx.Exec(
			`UPDATE invoices SET status = ?, voided_at = ?, voided_by = ?, void_reason = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			invoicedomain.InvoiceStatusVoided,
			now,
			"reconciler",
			orphan.Reason,
			now,
			orphan.InvoiceID,
			invoice.Status,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invoicedomain.ErrConflictingTransition
		}

		businessID := invoice.BusinessID
		return r.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventInvoiceVoided,
			EntityType: "invoice",
			EntityID:   invoice.ID.String(),
			BusinessID: &businessID,
			Metadata: map[string]any{
				"credit_note_id":     orphan.CreditNoteID,
				"credit_note_number": orphan.Number,
				"reconciled":         true,
			},
		})
	})
}

// RunForever runs scans on the configured interval until the context ends.
func (r *Reconciler) RunForever(ctx context.Context) {
	interval := time.Duration(r.cfg.ReconcileIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.log.Error("reconcile pass failed", zap.Error(err))
			}
		}
	}
}
