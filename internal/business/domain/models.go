// Package domain contains persistence models for issuing businesses.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Business is the issuer legal identity. Currency is locked by the first
// issuance; a locked currency never changes through the API.
type Business struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	LegalName      string       `gorm:"type:text;not null"`
	TaxID          string       `gorm:"type:text"`
	Address        string       `gorm:"type:text"`
	Jurisdiction   string       `gorm:"type:text;index"`
	Email          string       `gorm:"type:text;not null"`
	Currency       string       `gorm:"type:text"`
	CurrencyLocked bool         `gorm:"not null;default:false"`
	CreatedAt      time.Time    `gorm:"not null"`
	UpdatedAt      time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (Business) TableName() string { return "businesses" }
