// Package domain contains versioned tax schemas per jurisdiction.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// TaxSchema is one version of the compliance rules for a jurisdiction.
// Activating a new version deactivates the previous one; issued invoices
// keep the version frozen in their snapshot.
type TaxSchema struct {
	ID           snowflake.ID      `gorm:"primaryKey"`
	Jurisdiction string            `gorm:"type:text;not null;index"`
	Version      int               `gorm:"not null"`
	Rates        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	Active       bool              `gorm:"not null;default:false"`
	CreatedAt    time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (TaxSchema) TableName() string { return "tax_schemas" }

type RegisterSchemaRequest struct {
	Jurisdiction string
	Rates        map[string]any
}

type Service interface {
	// Register stores a new schema version for the jurisdiction and makes
	// it the active one.
	Register(ctx context.Context, businessID snowflake.ID, req RegisterSchemaRequest) (TaxSchema, error)
	ActiveForJurisdiction(ctx context.Context, jurisdiction string) (*TaxSchema, error)
}

var (
	ErrJurisdictionMissing = errors.New("jurisdiction_required")
)
