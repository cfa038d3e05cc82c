package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/invoicemonk/invoicemonk/internal/audit/domain"
	businessdomain "github.com/invoicemonk/invoicemonk/internal/business/domain"
	"github.com/invoicemonk/invoicemonk/internal/clock"
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

func NewService(p Params) businessdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("business.service"),
		clock:    p.Clock,
		genID:    p.GenID,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req businessdomain.CreateBusinessRequest) (businessdomain.Business, error) {
	legalName := strings.TrimSpace(req.LegalName)
	if legalName == "" {
		return businessdomain.Business{}, businessdomain.ErrLegalNameMissing
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return businessdomain.Business{}, businessdomain.ErrEmailMissing
	}
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return businessdomain.Business{}, err
	}

	now := s.clock.Now()
	business := businessdomain.Business{
		ID:           s.genID.Generate(),
		LegalName:    legalName,
		TaxID:        strings.TrimSpace(req.TaxID),
		Address:      strings.TrimSpace(req.Address),
		Jurisdiction: strings.TrimSpace(req.Jurisdiction),
		Email:        email,
		Currency:     currency,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&business).Error; err != nil {
			return err
		}
		return s.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventUserSignup,
			EntityType: "business",
			EntityID:   business.ID.String(),
			BusinessID: &business.ID,
			NewState:   businessState(business),
		})
	})
	if err != nil {
		return businessdomain.Business{}, err
	}
	return business, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (businessdomain.Business, error) {
	var business businessdomain.Business
	err := s.db.WithContext(ctx).First(&business, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return businessdomain.Business{}, businessdomain.ErrBusinessNotFound
		}
		return businessdomain.Business{}, err
	}
	return business, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req businessdomain.UpdateBusinessRequest) (businessdomain.Business, error) {
	var updated businessdomain.Business
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var business businessdomain.Business
		if err := tx.Raw(
			`SELECT * FROM businesses WHERE id = ?`+db.LockingSuffix(tx), id,
		).Scan(&business).Error; err != nil {
			return err
		}
		if business.ID == 0 {
			return businessdomain.ErrBusinessNotFound
		}

		prev := businessState(business)

		if req.LegalName != nil {
			name := strings.TrimSpace(*req.LegalName)
			if name == "" {
				return businessdomain.ErrLegalNameMissing
			}
			business.LegalName = name
		}
		if req.TaxID != nil {
			business.TaxID = strings.TrimSpace(*req.TaxID)
		}
		if req.Address != nil {
			business.Address = strings.TrimSpace(*req.Address)
		}
		if req.Email != nil {
			email := strings.TrimSpace(*req.Email)
			if email == "" {
				return businessdomain.ErrEmailMissing
			}
			business.Email = email
		}
		if req.Currency != nil {
			currency, err := normalizeCurrency(*req.Currency)
			if err != nil {
				return err
			}
			if business.CurrencyLocked && currency != business.Currency {
				return businessdomain.ErrCurrencyLocked
			}
			business.Currency = currency
		}

		business.UpdatedAt = s.clock.Now()
		if err := tx.Exec(
			`UPDATE businesses
			 SET legal_name = ?, tax_id = ?, address = ?, email = ?, currency = ?, updated_at = ?
			 WHERE id = ?`,
			business.LegalName,
			business.TaxID,
			business.Address,
			business.Email,
			business.Currency,
			business.UpdatedAt,
			business.ID,
		).Error; err != nil {
			return err
		}

		updated = business
		return s.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventBusinessUpdated,
			EntityType: "business",
			EntityID:   business.ID.String(),
			BusinessID: &business.ID,
			PrevState:  prev,
			NewState:   businessState(business),
		})
	})
	if err != nil {
		return businessdomain.Business{}, err
	}
	return updated, nil
}

func businessState(b businessdomain.Business) map[string]any {
	return map[string]any{
		"legal_name":   b.LegalName,
		"tax_id":       b.TaxID,
		"address":      b.Address,
		"jurisdiction": b.Jurisdiction,
		"email":        b.Email,
		"currency":     b.Currency,
	}
}

func normalizeCurrency(raw string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if currency == "" {
		return "", nil
	}
	if len(currency) != 3 {
		return "", businessdomain.ErrInvalidCurrency
	}
	return currency, nil
}
