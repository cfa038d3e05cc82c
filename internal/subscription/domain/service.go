package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// WebhookEvent is the normalized payload from the payment processor.
type WebhookEvent struct {
	EventID    string
	BusinessID snowflake.ID
	Tier       Tier
	Status     Status
	ProviderID string
	PeriodEnd  *time.Time
}

type Service interface {
	// GetForBusiness returns the subscription for a business, defaulting to
	// an active free tier when none is recorded.
	GetForBusiness(ctx context.Context, businessID snowflake.ID) (Subscription, error)
	// ApplyWebhookEvent upserts subscription state from a processor event.
	ApplyWebhookEvent(ctx context.Context, event WebhookEvent) (Subscription, error)
}

var (
	ErrInvalidBusiness = errors.New("invalid_business")
	ErrInvalidTier     = errors.New("invalid_tier")
)

// ValidTier reports whether the tier belongs to the known set.
func ValidTier(t Tier) bool {
	switch t {
	case TierFree, TierPro:
		return true
	default:
		return false
	}
}
