package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository is insert-only by construction.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}
