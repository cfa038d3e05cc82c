package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	integritydomain "github.com/invoicemonk/invoicemonk/internal/integrity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log *zap.Logger
}

type Snapshotter struct {
	log *zap.Logger
}

func NewSnapshotter(p Params) integritydomain.Snapshotter {
	return &Snapshotter{
		log: p.Log.Named("integrity.snapshotter"),
	}
}

type businessRow struct {
	ID           snowflake.ID
	LegalName    string
	TaxID        string
	Address      string
	Jurisdiction string
	Email        string
	Currency     string
}

type clientRow struct {
	ID      snowflake.ID
	Name    string
	TaxID   string
	Address string
	Email   string
}

type templateRow struct {
	ID      snowflake.ID
	Name    string
	Layout  string
	Options datatypes.JSONMap
}

type taxSchemaRow struct {
	ID           snowflake.ID
	Jurisdiction string
	Version      int
	Rates        datatypes.JSONMap
}

func (s *Snapshotter) CaptureIssuer(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, at time.Time) (datatypes.JSONMap, error) {
	var business businessRow
	err := tx.WithContext(ctx).Raw(
		`SELECT id, legal_name, tax_id, address, jurisdiction, email, currency
		 FROM businesses
		 WHERE id = ?`,
		businessID,
	).Scan(&business).Error
	if err != nil {
		return nil, err
	}
	if business.ID == 0 {
		return nil, integritydomain.ErrBusinessNotFound
	}

	return integritydomain.ToJSONMap(integritydomain.IssuerSnapshot{
		SchemaVersion: integritydomain.IssuerSnapshotVersion,
		Kind:          "issuer",
		LegalName:     business.LegalName,
		TaxID:         business.TaxID,
		Address:       business.Address,
		Jurisdiction:  business.Jurisdiction,
		Email:         business.Email,
		Currency:      business.Currency,
		CapturedAt:    at.UTC(),
	})
}

func (s *Snapshotter) CaptureRecipient(ctx context.Context, tx *gorm.DB, businessID, clientID snowflake.ID, at time.Time) (datatypes.JSONMap, error) {
	var client clientRow
	err := tx.WithContext(ctx).Raw(
		`SELECT id, name, tax_id, address, email
		 FROM clients
		 WHERE business_id = ? AND id = ?`,
		businessID,
		clientID,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, integritydomain.ErrClientNotFound
	}

	return integritydomain.ToJSONMap(integritydomain.RecipientSnapshot{
		SchemaVersion: integritydomain.RecipientSnapshotVersion,
		Kind:          "recipient",
		Name:          client.Name,
		TaxID:         client.TaxID,
		Address:       client.Address,
		Email:         client.Email,
		CapturedAt:    at.UTC(),
	})
}

func (s *Snapshotter) CaptureTemplate(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, templateID *snowflake.ID, at time.Time) (datatypes.JSONMap, error) {
	snapshot := integritydomain.TemplateSnapshot{
		SchemaVersion: integritydomain.TemplateSnapshotVersion,
		Kind:          "template",
		TemplateName:  "default",
		Layout:        "standard",
		CapturedAt:    at.UTC(),
	}

	if templateID != nil && *templateID != 0 {
		var template templateRow
		err := tx.WithContext(ctx).Raw(
			`SELECT id, name, layout, options
			 FROM invoice_templates
			 WHERE business_id = ? AND id = ?`,
			businessID,
			*templateID,
		).Scan(&template).Error
		if err != nil {
			return nil, err
		}
		if template.ID != 0 {
			snapshot.TemplateName = template.Name
			snapshot.Layout = template.Layout
			snapshot.Options = template.Options
		}
	}

	return integritydomain.ToJSONMap(snapshot)
}

func (s *Snapshotter) CaptureTaxSchema(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, at time.Time) (datatypes.JSONMap, error) {
	var schema taxSchemaRow
	err := tx.WithContext(ctx).Raw(
		`SELECT ts.id, ts.jurisdiction, ts.version, ts.rates
		 FROM tax_schemas ts
		 JOIN businesses b ON b.jurisdiction = ts.jurisdiction
		 WHERE b.id = ? AND ts.active = ?
		 ORDER BY ts.version DESC
		 LIMIT 1`,
		businessID,
		true,
	).Scan(&schema).Error
	if err != nil {
		return nil, err
	}
	if schema.ID == 0 {
		// No schema registered for the jurisdiction; freeze an empty marker
		// so the invoice still records that nothing applied at issuance.
		return integritydomain.ToJSONMap(integritydomain.TaxSchemaSnapshot{
			SchemaVersion: integritydomain.TaxSchemaSnapshotVersion,
			Kind:          "tax_schema",
			Version:       0,
			CapturedAt:    at.UTC(),
		})
	}

	return integritydomain.ToJSONMap(integritydomain.TaxSchemaSnapshot{
		SchemaVersion: integritydomain.TaxSchemaSnapshotVersion,
		Kind:          "tax_schema",
		Jurisdiction:  schema.Jurisdiction,
		Version:       schema.Version,
		Rates:         schema.Rates,
		CapturedAt:    at.UTC(),
	})
}
