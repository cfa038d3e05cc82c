// Package domain contains the append-only audit trail model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventType is the closed set of auditable actions. Append rejects anything
// outside this set.
type EventType string

const (
	EventUserLogin  EventType = "USER_LOGIN"
	EventUserSignup EventType = "USER_SIGNUP"

	EventInvoiceCreated EventType = "INVOICE_CREATED"
	EventInvoiceUpdated EventType = "INVOICE_UPDATED"
	EventInvoiceIssued  EventType = "INVOICE_ISSUED"
	EventInvoiceSent    EventType = "INVOICE_SENT"
	EventInvoiceViewed  EventType = "INVOICE_VIEWED"
	EventInvoiceVoided  EventType = "INVOICE_VOIDED"
	EventInvoiceDeleted EventType = "INVOICE_DELETED"

	EventPaymentRecorded EventType = "PAYMENT_RECORDED"

	EventClientCreated   EventType = "CLIENT_CREATED"
	EventClientUpdated   EventType = "CLIENT_UPDATED"
	EventClientDeleted   EventType = "CLIENT_DELETED"
	EventBusinessUpdated EventType = "BUSINESS_UPDATED"

	EventTeamMemberAdded EventType = "TEAM_MEMBER_ADDED"
	EventTeamRoleChanged EventType = "TEAM_ROLE_CHANGED"

	EventDataExported        EventType = "DATA_EXPORTED"
	EventSubscriptionChanged EventType = "SUBSCRIPTION_CHANGED"
	EventSettingsUpdated     EventType = "SETTINGS_UPDATED"
)

var knownEventTypes = map[EventType]struct{}{
	EventUserLogin:           {},
	EventUserSignup:          {},
	EventInvoiceCreated:      {},
	EventInvoiceUpdated:      {},
	EventInvoiceIssued:       {},
	EventInvoiceSent:         {},
	EventInvoiceViewed:       {},
	EventInvoiceVoided:       {},
	EventInvoiceDeleted:      {},
	EventPaymentRecorded:     {},
	EventClientCreated:       {},
	EventClientUpdated:       {},
	EventClientDeleted:       {},
	EventBusinessUpdated:     {},
	EventTeamMemberAdded:     {},
	EventTeamRoleChanged:     {},
	EventDataExported:        {},
	EventSubscriptionChanged: {},
	EventSettingsUpdated:     {},
}

// Valid reports whether the event type belongs to the closed enum.
func (e EventType) Valid() bool {
	_, ok := knownEventTypes[e]
	return ok
}

// AuditLog is one immutable row per state-changing action. Rows are only
// ever inserted; no code path updates or deletes them.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	EventType  EventType         `gorm:"type:text;not null;index"`
	EntityType string            `gorm:"type:text;not null;index"`
	EntityID   *string           `gorm:"type:text;index"`
	ActorID    *string           `gorm:"type:text"`
	ActorRole  string            `gorm:"type:text"`
	BusinessID *snowflake.ID     `gorm:"index"`
	PrevState  datatypes.JSONMap `gorm:"type:jsonb"`
	NewState   datatypes.JSONMap `gorm:"type:jsonb"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	EntryHash  string            `gorm:"type:text;not null"`
	IPAddress  *string           `gorm:"type:text"`
	UserAgent  *string           `gorm:"type:text"`
	CreatedAt  time.Time         `gorm:"not null;index"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }
