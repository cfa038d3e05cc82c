// Package domain contains subscription tier state for businesses.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
)

// Subscription mirrors the payment processor's view of a business's plan.
// It is written by webhook events and read by the issuance quota check.
type Subscription struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	BusinessID       snowflake.ID `gorm:"not null;uniqueIndex"`
	Tier             Tier         `gorm:"type:text;not null;default:'free'"`
	Status           Status       `gorm:"type:text;not null;default:'active'"`
	ProviderID       string       `gorm:"type:text"`
	CurrentPeriodEnd *time.Time   `gorm:""`
	CreatedAt        time.Time    `gorm:"not null"`
	UpdatedAt        time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }
