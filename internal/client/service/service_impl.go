package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/invoicemonk/invoicemonk/internal/audit/domain"
	clientdomain "github.com/invoicemonk/invoicemonk/internal/client/domain"
	"github.com/invoicemonk/invoicemonk/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
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

func NewService(p Params) clientdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("client.service"),
		clock:    p.Clock,
		genID:    p.GenID,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, businessID snowflake.ID, req clientdomain.CreateClientRequest) (clientdomain.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return clientdomain.Client{}, clientdomain.ErrNameMissing
	}

	now := s.clock.Now()
	client := clientdomain.Client{
		ID:         s.genID.Generate(),
		BusinessID: businessID,
		Name:       name,
		Email:      strings.TrimSpace(req.Email),
		TaxID:      strings.TrimSpace(req.TaxID),
		Address:    strings.TrimSpace(req.Address),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&client).Error; err != nil {
			return err
		}
		return s.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventClientCreated,
			EntityType: "client",
			EntityID:   client.ID.String(),
			BusinessID: &businessID,
			NewState:   clientState(client),
		})
	})
	if err != nil {
		return clientdomain.Client{}, err
	}
	return client, nil
}

func (s *Service) GetByID(ctx context.Context, businessID, id snowflake.ID) (clientdomain.Client, error) {
	var client clientdomain.Client
	err := s.db.WithContext(ctx).First(&client, "business_id = ? AND id = ?", businessID, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return clientdomain.Client{}, clientdomain.ErrClientNotFound
		}
		return clientdomain.Client{}, err
	}
	return client, nil
}

func (s *Service) List(ctx context.Context, businessID snowflake.ID) ([]clientdomain.Client, error) {
	var clients []clientdomain.Client
	err := s.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at desc").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}

func (s *Service) Update(ctx context.Context, businessID, id snowflake.ID, req clientdomain.UpdateClientRequest) (clientdomain.Client, error) {
	var updated clientdomain.Client
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var client clientdomain.Client
		if err := tx.First(&client, "business_id = ? AND id = ?", businessID, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return clientdomain.ErrClientNotFound
			}
			return err
		}

		prev := clientState(client)

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return clientdomain.ErrNameMissing
			}
			client.Name = name
		}
		if req.Email != nil {
			client.Email = strings.TrimSpace(*req.Email)
		}
		if req.TaxID != nil {
			client.TaxID = strings.TrimSpace(*req.TaxID)
		}
		if req.Address != nil {
			client.Address = strings.TrimSpace(*req.Address)
		}
		client.UpdatedAt = s.clock.Now()

		if err := tx.Save(&client).Error; err != nil {
			return err
		}

		updated = client
		return s.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventClientUpdated,
			EntityType: "client",
			EntityID:   client.ID.String(),
			BusinessID: &businessID,
			PrevState:  prev,
			NewState:   clientState(client),
		})
	})
	if err != nil {
		return clientdomain.Client{}, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, businessID, id snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var client clientdomain.Client
		if err := tx.First(&client, "business_id = ? AND id = ?", businessID, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return clientdomain.ErrClientNotFound
			}
			return err
		}

		if err := tx.Delete(&clientdomain.Client{}, "business_id = ? AND id = ?", businessID, id).Error; err != nil {
			return err
		}

		return s.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventClientDeleted,
			EntityType: "client",
			EntityID:   id.String(),
			BusinessID: &businessID,
			PrevState:  clientState(client),
		})
	})
}

func clientState(c clientdomain.Client) map[string]any {
	return map[string]any{
		"name":    c.Name,
		"email":   c.Email,
		"tax_id":  c.TaxID,
		"address": c.Address,
	}
}
