package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Entry is the input to Append. Prev/New carry opaque before/after state.
type Entry struct {
	EventType  EventType
	EntityType string
	EntityID   string
	BusinessID *snowflake.ID
	PrevState  map[string]any
	NewState   map[string]any
	Metadata   map[string]any
}

type ListFilter struct {
	BusinessID snowflake.ID
	EventType  string
	EntityType string
	EntityID   string
	StartAt    *time.Time
	EndAt      *time.Time
	Limit      int
}

type ListAuditLogResponse struct {
	AuditLogs []AuditLog `json:"audit_logs"`
}

// Service is the single choke point for audit writes. The only mutating
// operation is Append; the table is never updated or deleted from
// application code.
type Service interface {
	// Append inserts one audit row. A non-nil tx makes the append part of
	// the caller's transaction so the primary state transition and its
	// audit record commit or roll back as one unit.
	Append(ctx context.Context, tx *gorm.DB, entry Entry) error
	List(ctx context.Context, filter ListFilter) (ListAuditLogResponse, error)
}

var (
	ErrInvalidEventType = errors.New("invalid_event_type")
	ErrInvalidBusiness  = errors.New("invalid_business")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
