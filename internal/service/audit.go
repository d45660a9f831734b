package service

import (
	"context"
	"strconv"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/dto"
	"github.com/aleks2005vk/cheap-gasoline/internal/repository"

	"github.com/rs/zerolog/log"
)

// Audit actions.
const (
	ActionStationCreated     = "station_created"
	ActionFuelConfigResynced = "fuel_config_resynced"
	ActionUserRegistered     = "user_registered"
	ActionUserLogin          = "user_login"
	ActionSiteInfoUpdated    = "site_info_updated"
)

// AuditEntry is what services hand to the audit sink.
type AuditEntry struct {
	ActorID  *uint          `json:"actor_id,omitempty"`
	Action   string         `json:"action"`
	TargetID *string        `json:"target_id,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	IP       string         `json:"ip,omitempty"`
	At       time.Time      `json:"at"`
}

type clientIPKey struct{}

// WithClientIP attaches the caller's address to ctx for audit entries.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP returns the address stored by WithClientIP, or "".
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// AuditSink accepts audit entries. Record never fails the caller; a sink
// that cannot persist an entry logs and moves on.
type AuditSink interface {
	Record(ctx context.Context, e AuditEntry)
}

// LogAuditSink writes entries to the log only. Used when Redis is not
// configured and by CLI tools.
type LogAuditSink struct{}

func (LogAuditSink) Record(_ context.Context, e AuditEntry) {
	ev := log.Info().Str("action", e.Action)
	if e.ActorID != nil {
		ev = ev.Uint("actor_id", *e.ActorID)
	}
	if e.TargetID != nil {
		ev = ev.Str("target_id", *e.TargetID)
	}
	if e.IP != "" {
		ev = ev.Str("ip", e.IP)
	}
	ev.Interface("details", e.Details).Msg("audit")
}

func targetID(id uint) *string {
	s := strconv.FormatUint(uint64(id), 10)
	return &s
}

// AuditService reads the persisted audit log for the admin console.
type AuditService interface {
	List(ctx context.Context, limit int) ([]dto.AuditLogItem, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) List(ctx context.Context, limit int) ([]dto.AuditLogItem, error) {
	rows, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	items := make([]dto.AuditLogItem, len(rows))
	for i, r := range rows {
		items[i] = dto.AuditLogItem{
			ID:        r.ID,
			ActorID:   r.ActorID,
			Action:    r.Action,
			TargetID:  r.TargetID,
			IPAddress: r.IPAddress,
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if len(r.Details) > 0 {
			items[i].Details = r.Details
		}
	}
	return items, nil
}
