package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/invoicemonk/invoicemonk/internal/audit/domain"
	"github.com/invoicemonk/invoicemonk/internal/clock"
	templatedomain "github.com/invoicemonk/invoicemonk/internal/template/domain"
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

func NewService(p Params) templatedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("template.service"),
		clock:    p.Clock,
		genID:    p.GenID,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, businessID snowflake.ID, req templatedomain.CreateTemplateRequest) (templatedomain.InvoiceTemplate, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return templatedomain.InvoiceTemplate{}, templatedomain.ErrNameMissing
	}
	layout := strings.TrimSpace(req.Layout)
	if layout == "" {
		layout = "standard"
	}
	options := datatypes.JSONMap(req.Options)
	if options == nil {
		options = datatypes.JSONMap{}
	}

	now := s.clock.Now()
	template := templatedomain.InvoiceTemplate{
		ID:         s.genID.Generate(),
		BusinessID: businessID,
		Name:       name,
		Layout:     layout,
		Options:    options,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&template).Error; err != nil {
			return err
		}
		return s.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventSettingsUpdated,
			EntityType: "invoice_template",
			EntityID:   template.ID.String(),
			BusinessID: &businessID,
			NewState: map[string]any{
				"name":   template.Name,
				"layout": template.Layout,
			},
		})
	})
	if err != nil {
		return templatedomain.InvoiceTemplate{}, err
	}
	return template, nil
}

func (s *Service) GetByID(ctx context.Context, businessID, id snowflake.ID) (templatedomain.InvoiceTemplate, error) {
	var template templatedomain.InvoiceTemplate
	err := s.db.WithContext(ctx).First(&template, "business_id = ? AND id = ?", businessID, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return templatedomain.InvoiceTemplate{}, templatedomain.ErrTemplateNotFound
		}
		return templatedomain.InvoiceTemplate{}, err
	}
	return template, nil
}

func (s *Service) List(ctx context.Context, businessID snowflake.ID) ([]templatedomain.InvoiceTemplate, error) {
	var templates []templatedomain.InvoiceTemplate
	err := s.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at desc").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}
