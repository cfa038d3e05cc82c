package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/invoicemonk/invoicemonk/internal/actorcontext"
	auditrepository "github.com/invoicemonk/invoicemonk/internal/audit/repository"
	auditservice "github.com/invoicemonk/invoicemonk/internal/audit/service"
	businessdomain "github.com/invoicemonk/invoicemonk/internal/business/domain"
	clientdomain "github.com/invoicemonk/invoicemonk/internal/client/domain"
	"github.com/invoicemonk/invoicemonk/internal/clock"
	"github.com/invoicemonk/invoicemonk/internal/config"
	integrityservice "github.com/invoicemonk/invoicemonk/internal/integrity/service"
	invoicedomain "github.com/invoicemonk/invoicemonk/internal/invoice/domain"
	subscriptiondomain "github.com/invoicemonk/invoicemonk/internal/subscription/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type harness struct {
	db    *gorm.DB
	node  *snowflake.Node
	clk   *clock.FakeClock
	svc   invoicedomain.Service
	cfg   config.Config
	t     *testing.T
	start time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	// Create tables manually to match production schema.
	createLifecycleTables(t, db)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(start)
	logger := zap.NewNop()
	cfg := config.Config{FreeTierMonthlyInvoiceLimit: 5}

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   logger,
		Clock: clk,
		GenID: node,
		Repo:  auditrepository.Provide(),
	})
	snapshotter := integrityservice.NewSnapshotter(integrityservice.Params{Log: logger})

	svc := NewService(Params{
		DB:          db,
		Log:         logger,
		Clock:       clk,
		GenID:       node,
		Cfg:         cfg,
		AuditSvc:    auditSvc,
		Snapshotter: snapshotter,
	})

	return &harness{db: db, node: node, clk: clk, svc: svc, cfg: cfg, t: t, start: start}
}

func createLifecycleTables(t *testing.T, db *gorm.DB) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS businesses (
			id BIGINT PRIMARY KEY,
			legal_name TEXT NOT NULL,
			tax_id TEXT,
			address TEXT,
			jurisdiction TEXT,
			email TEXT NOT NULL,
			currency TEXT,
			currency_locked BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS clients (
			id BIGINT PRIMARY KEY,
			business_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			email TEXT,
			tax_id TEXT,
			address TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS invoices (
			id BIGINT PRIMARY KEY,
			business_id BIGINT NOT NULL,
			client_id BIGINT NOT NULL,
			number TEXT,
			number_seq BIGINT,
			status TEXT NOT NULL DEFAULT 'DRAFT',
			currency TEXT NOT NULL,
			subtotal_amount BIGINT NOT NULL DEFAULT 0,
			tax_amount BIGINT NOT NULL DEFAULT 0,
			total_amount BIGINT NOT NULL DEFAULT 0,
			amount_paid BIGINT NOT NULL DEFAULT 0,
			due_at TIMESTAMP,
			notes TEXT,
			terms TEXT,
			template_id BIGINT,
			payment_method_ref TEXT,
			issued_at TIMESTAMP,
			issued_by TEXT,
			issuer_snapshot TEXT,
			recipient_snapshot TEXT,
			template_snapshot TEXT,
			tax_schema_snapshot TEXT,
			invoice_hash TEXT,
			verification_id TEXT,
			sent_at TIMESTAMP,
			viewed_at TIMESTAMP,
			paid_at TIMESTAMP,
			voided_at TIMESTAMP,
			voided_by TEXT,
			void_reason TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS invoice_line_items (
			id BIGINT PRIMARY KEY,
			business_id BIGINT NOT NULL,
			invoice_id BIGINT NOT NULL,
			position INTEGER NOT NULL,
			description TEXT NOT NULL,
			quantity BIGINT NOT NULL,
			unit_price BIGINT NOT NULL,
			tax_rate NUMERIC NOT NULL DEFAULT 0,
			line_total BIGINT NOT NULL,
			tax_amount BIGINT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS credit_notes (
			id BIGINT PRIMARY KEY,
			business_id BIGINT NOT NULL,
			invoice_id BIGINT NOT NULL,
			number TEXT NOT NULL,
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			reason TEXT NOT NULL,
			hash TEXT NOT NULL,
			verification_id TEXT,
			issued_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_credit_notes_invoice ON credit_notes(invoice_id)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id BIGINT PRIMARY KEY,
			business_id BIGINT NOT NULL,
			invoice_id BIGINT NOT NULL,
			amount BIGINT NOT NULL,
			method TEXT,
			reference TEXT,
			notes TEXT,
			paid_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS receipts (
			id BIGINT PRIMARY KEY,
			business_id BIGINT NOT NULL,
			invoice_id BIGINT NOT NULL,
			payment_id BIGINT NOT NULL,
			number TEXT NOT NULL,
			amount BIGINT NOT NULL,
			snapshot TEXT,
			hash TEXT NOT NULL,
			verification_id TEXT,
			issued_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_receipts_payment ON receipts(payment_id)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id BIGINT PRIMARY KEY,
			event_type TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT,
			actor_id TEXT,
			actor_role TEXT,
			business_id BIGINT,
			prev_state TEXT,
			new_state TEXT,
			metadata TEXT,
			entry_hash TEXT NOT NULL,
			ip_address TEXT,
			user_agent TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id BIGINT PRIMARY KEY,
			business_id BIGINT NOT NULL,
			tier TEXT NOT NULL DEFAULT 'free',
			status TEXT NOT NULL DEFAULT 'active',
			provider_id TEXT,
			current_period_end TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_subscriptions_business ON subscriptions(business_id)`,
		`CREATE TABLE IF NOT EXISTS tax_schemas (
			id BIGINT PRIMARY KEY,
			jurisdiction TEXT NOT NULL,
			version INTEGER NOT NULL,
			rates TEXT,
			active BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS invoice_templates (
			id BIGINT PRIMARY KEY,
			business_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			layout TEXT,
			options TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
}

func (h *harness) seedBusiness() snowflake.ID {
	h.t.Helper()
	business := businessdomain.Business{
		ID:           h.node.Generate(),
		LegalName:    "Acme Studio LLC",
		TaxID:        "US-99-1234567",
		Address:      "1 Main St, Springfield",
		Jurisdiction: "US-CA",
		Email:        "billing@acme.test",
		Currency:     "USD",
		CreatedAt:    h.clk.Now(),
		UpdatedAt:    h.clk.Now(),
	}
	require.NoError(h.t, h.db.Create(&business).Error)
	return business.ID
}

func (h *harness) seedClient(businessID snowflake.ID) snowflake.ID {
	h.t.Helper()
	client := clientdomain.Client{
		ID:         h.node.Generate(),
		BusinessID: businessID,
		Name:       "Globex Corp",
		Email:      "ap@globex.test",
		TaxID:      "US-11-7654321",
		Address:    "42 Elm St, Shelbyville",
		CreatedAt:  h.clk.Now(),
		UpdatedAt:  h.clk.Now(),
	}
	require.NoError(h.t, h.db.Create(&client).Error)
	return client.ID
}

func (h *harness) seedSubscription(businessID snowflake.ID, tier subscriptiondomain.Tier) {
	h.t.Helper()
	sub := subscriptiondomain.Subscription{
		ID:         h.node.Generate(),
		BusinessID: businessID,
		Tier:       tier,
		Status:     subscriptiondomain.StatusActive,
		CreatedAt:  h.clk.Now(),
		UpdatedAt:  h.clk.Now(),
	}
	require.NoError(h.t, h.db.Create(&sub).Error)
}

// verifiedCtx returns a context carrying an email-verified actor.
func verifiedCtx() context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{
		ID:            "user_42",
		Role:          "owner",
		EmailVerified: true,
	})
}

func unverifiedCtx() context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{
		ID:            "user_43",
		Role:          "owner",
		EmailVerified: false,
	})
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func dollarsDraft(clientID snowflake.ID, taxRate string) invoicedomain.DraftRequest {
	return invoicedomain.DraftRequest{
		ClientID: clientID,
		Currency: "USD",
		LineItems: []invoicedomain.LineItemInput{
			{
				Description: "Design work",
				Quantity:    1,
				UnitPrice:   100000,
				TaxRate:     mustDecimal(taxRate),
			},
		},
	}
}
