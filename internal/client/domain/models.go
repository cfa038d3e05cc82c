// Package domain contains persistence models for invoice recipients.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Client is a recipient identity scoped to one business.
type Client struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	BusinessID snowflake.ID `gorm:"not null;index"`
	Name       string       `gorm:"type:text;not null"`
	Email      string       `gorm:"type:text"`
	TaxID      string       `gorm:"type:text"`
	Address    string       `gorm:"type:text"`
	CreatedAt  time.Time    `gorm:"not null"`
	UpdatedAt  time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (Client) TableName() string { return "clients" }
