package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aleks2005vk/cheap-gasoline/internal/model"
	"github.com/aleks2005vk/cheap-gasoline/internal/repository"
	"github.com/aleks2005vk/cheap-gasoline/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

const jobTypeAudit = "audit"

// AuditDispatcher is the production service.AuditSink: entries are queued
// on Redis and persisted by AuditWorker, so request latency never depends
// on the audit table.
type AuditDispatcher struct {
	rdb      *redis.Client
	fallback service.AuditSink
}

func NewAuditDispatcher(rdb *redis.Client) *AuditDispatcher {
	return &AuditDispatcher{rdb: rdb, fallback: service.LogAuditSink{}}
}

func (d *AuditDispatcher) Record(ctx context.Context, e service.AuditEntry) {
	if err := Enqueue(ctx, d.rdb, QueueAudit, jobTypeAudit, e); err != nil {
		log.Warn().Err(err).Str("action", e.Action).Msg("audit: enqueue failed, logging instead")
		d.fallback.Record(ctx, e)
	}
}

// AuditWorker writes queued entries to the audit_logs table.
type AuditWorker struct {
	repo repository.AuditRepository
}

func NewAuditWorker(repo repository.AuditRepository) *AuditWorker {
	return &AuditWorker{repo: repo}
}

func (w *AuditWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var e service.AuditEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return fmt.Errorf("audit_worker: invalid payload: %w", err)
	}
	row, err := auditRow(e)
	if err != nil {
		return err
	}
	return w.repo.Create(ctx, row)
}

func auditRow(e service.AuditEntry) (*model.AuditLog, error) {
	row := &model.AuditLog{
		ActorID:   e.ActorID,
		Action:    e.Action,
		TargetID:  e.TargetID,
		CreatedAt: e.At,
	}
	if e.IP != "" {
		ip := e.IP
		row.IPAddress = &ip
	}
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return nil, fmt.Errorf("audit_worker: details: %w", err)
		}
		row.Details = datatypes.JSON(b)
	}
	return row, nil
}
