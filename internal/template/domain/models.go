// Package domain contains invoice template models. Templates are mutable
// reference data; issuance freezes the chosen template into a snapshot.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type InvoiceTemplate struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	BusinessID snowflake.ID      `gorm:"not null;index"`
	Name       string            `gorm:"type:text;not null"`
	Layout     string            `gorm:"type:text;not null;default:'standard'"`
	Options    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt  time.Time         `gorm:"not null"`
	UpdatedAt  time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (InvoiceTemplate) TableName() string { return "invoice_templates" }
