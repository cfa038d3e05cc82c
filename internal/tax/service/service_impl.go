package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/invoicemonk/invoicemonk/internal/audit/domain"
	"github.com/invoicemonk/invoicemonk/internal/clock"
	taxdomain "github.com/invoicemonk/invoicemonk/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	GenID    *snowflake.Node
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	genID    *snowflake.Node
	auditSvc auditdomain.Service
}

func NewService(p Params) taxdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("tax.service"),
		clock:    p.Clock,
		genID:    p.GenID,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Register(ctx context.Context, businessID snowflake.ID, req taxdomain.RegisterSchemaRequest) (taxdomain.TaxSchema, error) {
	jurisdiction := strings.TrimSpace(req.Jurisdiction)
	if jurisdiction == "" {
		return taxdomain.TaxSchema{}, taxdomain.ErrJurisdictionMissing
	}

	var schema taxdomain.TaxSchema
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest int
		if err := tx.Raw(
			`SELECT COALESCE(MAX(version), 0) FROM tax_schemas WHERE jurisdiction = ?`,
			jurisdiction,
		).Scan(&latest).Error; err != nil {
			return err
		}

		if err := tx.Exec(
			`UPDATE tax_schemas SET active = ? WHERE jurisdiction = ? AND active = ?`,
			false, jurisdiction, true,
		).Error; err != nil {
			return err
		}

		schema = taxdomain.TaxSchema{
			ID:           s.genID.Generate(),
			Jurisdiction: jurisdiction,
			Version:      latest + 1,
			Rates:        datatypes.JSONMap(req.Rates),
			Active:       true,
			CreatedAt:    s.clock.Now(),
		}
		if err := tx.Create(&schema).Error; err != nil {
			return err
		}

		return s.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventSettingsUpdated,
			EntityType: "tax_schema",
			EntityID:   schema.ID.String(),
			BusinessID: &businessID,
			NewState: map[string]any{
				"jurisdiction": schema.Jurisdiction,
				"version":      schema.Version,
			},
		})
	})
	if err != nil {
		return taxdomain.TaxSchema{}, err
	}
	return schema, nil
}

func (s *Service) ActiveForJurisdiction(ctx context.Context, jurisdiction string) (*taxdomain.TaxSchema, error) {
	var schema taxdomain.TaxSchema
	err := s.db.WithContext(ctx).
		Where("jurisdiction = ? AND active = ?", strings.TrimSpace(jurisdiction), true).
		Order("version desc").
		Limit(1).
		Find(&schema).Error
	if err != nil {
		return nil, err
	}
	if schema.ID == 0 {
		return nil, nil
	}
	return &schema, nil
}
