package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/invoicemonk/invoicemonk/internal/actorcontext"
	auditdomain "github.com/invoicemonk/invoicemonk/internal/audit/domain"
	"github.com/invoicemonk/invoicemonk/internal/clock"
	"github.com/invoicemonk/invoicemonk/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	GenID   *snowflake.Node
	Repo    auditdomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	genID   *snowflake.Node
	repo    auditdomain.Repository
	metrics *metrics.Metrics
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("audit.service"),
		clock:   p.Clock,
		genID:   p.GenID,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Append(ctx context.Context, tx *gorm.DB, entry auditdomain.Entry) error {
	if !entry.EventType.Valid() {
		return auditdomain.ErrInvalidEventType
	}

	entityType := strings.TrimSpace(entry.EntityType)
	if entityType == "" {
		entityType = "unknown"
	}

	actorID, actorRole := resolveActor(ctx)

	payload := map[string]any{}
	for key, value := range entry.Metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}
	if requestID := actorcontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	row := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		EventType:  entry.EventType,
		EntityType: entityType,
		EntityID:   normalizePointer(&entry.EntityID),
		ActorID:    actorID,
		ActorRole:  actorRole,
		BusinessID: entry.BusinessID,
		PrevState:  datatypes.JSONMap(entry.PrevState),
		NewState:   datatypes.JSONMap(entry.NewState),
		Metadata:   datatypes.JSONMap(payload),
		CreatedAt:  s.clock.Now(),
	}
	if ip := actorcontext.IPAddressFromContext(ctx); ip != "" {
		row.IPAddress = &ip
	}
	if ua := actorcontext.UserAgentFromContext(ctx); ua != "" {
		row.UserAgent = &ua
	}
	row.EntryHash = auditdomain.EntryHash(&row)

	handle := tx
	if handle == nil {
		handle = s.db
	}

	if err := s.repo.Insert(ctx, handle, &row); err != nil {
		s.log.Error("failed to append audit log",
			zap.String("event_type", string(entry.EventType)),
			zap.String("entity_type", entityType),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.ObserveAuditAppendFailure()
		}
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter auditdomain.ListFilter) (auditdomain.ListAuditLogResponse, error) {
	if filter.BusinessID == 0 {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidBusiness
	}
	if filter.StartAt != nil && filter.EndAt != nil && filter.StartAt.After(*filter.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}

	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 250 {
		filter.Limit = 250
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}
	return auditdomain.ListAuditLogResponse{AuditLogs: logs}, nil
}

func resolveActor(ctx context.Context) (*string, string) {
	actor, ok := actorcontext.ActorFromContext(ctx)
	if !ok {
		return nil, "system"
	}
	role := actor.Role
	if role == "" {
		role = "user"
	}
	id := actor.ID
	return &id, role
}

func normalizePointer(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
