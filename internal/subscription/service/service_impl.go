package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/invoicemonk/invoicemonk/internal/audit/domain"
	"github.com/invoicemonk/invoicemonk/internal/clock"
	subscriptiondomain "github.com/invoicemonk/invoicemonk/internal/subscription/domain"
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

func NewService(p Params) subscriptiondomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("subscription.service"),
		clock:    p.Clock,
		genID:    p.GenID,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) GetForBusiness(ctx context.Context, businessID snowflake.ID) (subscriptiondomain.Subscription, error) {
	if businessID == 0 {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidBusiness
	}

	var sub subscriptiondomain.Subscription
	err := s.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Limit(1).
		Find(&sub).Error
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if sub.ID == 0 {
		// No processor record yet; every business starts on the free tier.
		return subscriptiondomain.Subscription{
			BusinessID: businessID,
			Tier:       subscriptiondomain.TierFree,
			Status:     subscriptiondomain.StatusActive,
		}, nil
	}
	return sub, nil
}

func (s *Service) ApplyWebhookEvent(ctx context.Context, event subscriptiondomain.WebhookEvent) (subscriptiondomain.Subscription, error) {
	if event.BusinessID == 0 {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidBusiness
	}
	if !subscriptiondomain.ValidTier(event.Tier) {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidTier
	}

	var result subscriptiondomain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing subscriptiondomain.Subscription
		if err := tx.Where("business_id = ?", event.BusinessID).Limit(1).Find(&existing).Error; err != nil {
			return err
		}

		now := s.clock.Now()
		var prev map[string]any
		if existing.ID == 0 {
			existing = subscriptiondomain.Subscription{
				ID:         s.genID.Generate(),
				BusinessID: event.BusinessID,
				CreatedAt:  now,
			}
		} else {
			prev = subscriptionState(existing)
		}

		existing.Tier = event.Tier
		existing.Status = event.Status
		existing.ProviderID = event.ProviderID
		existing.CurrentPeriodEnd = event.PeriodEnd
		existing.UpdatedAt = now

		if err := tx.Save(&existing).Error; err != nil {
			return err
		}

		result = existing
		return s.auditSvc.Append(ctx, tx, auditdomain.Entry{
			EventType:  auditdomain.EventSubscriptionChanged,
			EntityType: "subscription",
			EntityID:   existing.ID.String(),
			BusinessID: &event.BusinessID,
			PrevState:  prev,
			NewState:   subscriptionState(existing),
			Metadata: map[string]any{
				"webhook_event_id": event.EventID,
			},
		})
	})
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	return result, nil
}

func subscriptionState(sub subscriptiondomain.Subscription) map[string]any {
	state := map[string]any{
		"tier":   string(sub.Tier),
		"status": string(sub.Status),
	}
	if sub.ProviderID != "" {
		state["provider_id"] = sub.ProviderID
	}
	return state
}
