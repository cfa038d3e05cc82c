package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditrepository "github.com/invoicemonk/invoicemonk/internal/audit/repository"
	auditservice "github.com/invoicemonk/invoicemonk/internal/audit/service"
	"github.com/invoicemonk/invoicemonk/internal/clock"
	"github.com/invoicemonk/invoicemonk/internal/config"
	invoicedomain "github.com/invoicemonk/invoicemonk/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*Reconciler, *gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range []string{
		`CREATE TABLE invoices (
			id BIGINT PRIMARY KEY,
			business_id BIGINT NOT NULL,
			client_id BIGINT NOT NULL,
			number TEXT,
			number_seq BIGINT,
			status TEXT NOT NULL,
			currency TEXT NOT NULL,
			subtotal_amount BIGINT NOT NULL DEFAULT 0,
			tax_amount BIGINT NOT NULL DEFAULT 0,
			total_amount BIGINT NOT NULL DEFAULT 0,
			amount_paid BIGINT NOT NULL DEFAULT 0,
			due_at TIMESTAMP, notes TEXT, terms TEXT, template_id BIGINT, payment_method_ref TEXT,
			issued_at TIMESTAMP, issued_by TEXT,
			issuer_snapshot TEXT, recipient_snapshot TEXT, template_snapshot TEXT, tax_schema_snapshot TEXT,
			invoice_hash TEXT, verification_id TEXT,
			sent_at TIMESTAMP, viewed_at TIMESTAMP, paid_at TIMESTAMP,
			voided_at TIMESTAMP, voided_by TEXT, void_reason TEXT,
			created_at TIMESTAMP NOT NULL, updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE credit_notes (
			id BIGINT PRIMARY KEY,
			business_id BIGINT NOT NULL,
			invoice_id BIGINT NOT NULL UNIQUE,
			number TEXT NOT NULL,
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			reason TEXT NOT NULL,
			hash TEXT NOT NULL,
			verification_id TEXT,
			issued_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE audit_logs (
			id BIGINT PRIMARY KEY,
			event_type TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT,
			actor_id TEXT,
			actor_role TEXT,
			business_id BIGINT,
			prev_state TEXT, new_state TEXT, metadata TEXT,
			entry_hash TEXT NOT NULL,
			ip_address TEXT, user_agent TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	logger := zap.NewNop()

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   logger,
		Clock: clk,
		GenID: node,
		Repo:  auditrepository.Provide(),
	})

	r := New(Params{
		DB:       db,
		Log:      logger,
		Clock:    clk,
		Cfg:      config.Config{ReconcileIntervalSeconds: 1},
		AuditSvc: auditSvc,
	})
	return r, db, node, clk
}

func TestRunOnceRepairsOrphans(t *testing.T) {
	r, db, node, clk := setup(t)
	now := clk.Now()

	businessID := node.Generate()
	invoiceID := node.Generate()
	number := "INV-0001"

	require.NoError(t, db.Exec(
		`INSERT INTO invoices (id, business_id, client_id, number, number_seq, status, currency, total_amount, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, 'USD', 1075, ?, ?)`,
		invoiceID, businessID, node.Generate(), number, invoicedomain.InvoiceStatusIssued, now, now,
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO credit_notes (id, business_id, invoice_id, number, amount, currency, reason, hash, issued_at, created_at)
		 VALUES (?, ?, ?, 'CN-INV-0001', 1075, 'USD', 'cancelled by client', 'abc', ?, ?)`,
		node.Generate(), businessID, invoiceID, now, now,
	).Error)

	require.NoError(t, r.RunOnce(context.Background()))

	var status string
	require.NoError(t, db.Raw(`SELECT status FROM invoices WHERE id = ?`, invoiceID).Scan(&status).Error)
	assert.Equal(t, string(invoicedomain.InvoiceStatusVoided), status)

	var reason string
	require.NoError(t, db.Raw(`SELECT void_reason FROM invoices WHERE id = ?`, invoiceID).Scan(&reason).Error)
	assert.Equal(t, "cancelled by client", reason)

	var audits int64
	require.NoError(t, db.Table("audit_logs").Where("event_type = ?", "INVOICE_VOIDED").Count(&audits).Error)
	assert.Equal(t, int64(1), audits)

	// A second pass finds nothing to do.
	require.NoError(t, r.RunOnce(context.Background()))
	require.NoError(t, db.Table("audit_logs").Where("event_type = ?", "INVOICE_VOIDED").Count(&audits).Error)
	assert.Equal(t, int64(1), audits)
}

func TestRunOnceIgnoresHealthyVoids(t *testing.T) {
	r, db, node, clk := setup(t)
	now := clk.Now()

	businessID := node.Generate()
	invoiceID := node.Generate()

	require.NoError(t, db.Exec(
		`INSERT INTO invoices (id, business_id, client_id, number, number_seq, status, currency, total_amount, void_reason, created_at, updated_at)
		 VALUES (?, ?, ?, 'INV-0001', 1, ?, 'USD', 500, 'ordered in error', ?, ?)`,
		invoiceID, businessID, node.Generate(), invoicedomain.InvoiceStatusVoided, now, now,
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO credit_notes (id, business_id, invoice_id, number, amount, currency, reason, hash, issued_at, created_at)
		 VALUES (?, ?, ?, 'CN-INV-0001', 500, 'USD', 'ordered in error', 'abc', ?, ?)`,
		node.Generate(), businessID, invoiceID, now, now,
	).Error)

	require.NoError(t, r.RunOnce(context.Background()))

	var audits int64
	require.NoError(t, db.Table("audit_logs").Count(&audits).Error)
	assert.Zero(t, audits)
}
