package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-booking-api/internal/models"
	"github.com/noah-isme/sma-booking-api/pkg/config"
	"github.com/noah-isme/sma-booking-api/pkg/jobs"
)

const auditJobType = "audit.write"

type auditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

type auditRecorder interface {
	Record(ctx context.Context, entry models.AuditLog)
}

type requestMetaKey struct{}

// WithRequestMeta attaches caller network details used by audit entries.
func WithRequestMeta(ctx context.Context, meta models.RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func requestMetaFrom(ctx context.Context) models.RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(models.RequestMeta)
	return meta
}

// AuditService writes audit entries off the request path through a worker queue.
type AuditService struct {
	repo    auditRepository
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
	enabled bool
}

// NewAuditService builds the service and its queue. Call Start before recording.
func NewAuditService(repo auditRepository, cfg config.AuditConfig, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, metrics: metrics, logger: logger, enabled: cfg.Enabled && repo != nil}
	s.queue = jobs.NewQueue("audit", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the audit workers.
func (s *AuditService) Start(ctx context.Context) {
	if s == nil || !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains pending entries and stops the workers.
func (s *AuditService) Stop() {
	if s == nil || !s.enabled {
		return
	}
	s.queue.Stop()
}

// Stats exposes queue counters.
func (s *AuditService) Stats() jobs.Stats {
	if s == nil {
		return jobs.Stats{}
	}
	return s.queue.Stats()
}

// Record enqueues entry, filling network details from ctx when absent.
// A full queue drops the entry with a warning.
func (s *AuditService) Record(ctx context.Context, entry models.AuditLog) {
	if s == nil || !s.enabled {
		return
	}
	meta := requestMetaFrom(ctx)
	if entry.IPAddress == "" {
		entry.IPAddress = meta.IP
	}
	if entry.UserAgent == "" {
		entry.UserAgent = meta.UserAgent
	}
	if err := s.queue.Enqueue(jobs.Job{Type: auditJobType, Payload: entry}); err != nil {
		s.metrics.RecordAuditDropped()
		s.logger.Warn("audit entry dropped", zap.String("action", entry.Action), zap.Error(err))
	}
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload %T", job.Payload)
	}
	return s.repo.Create(ctx, &entry)
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, models.AuditLog) {}

func auditEntry(actorID, action, resource, resourceID string, newValues interface{}) models.AuditLog {
	entry := models.AuditLog{Action: action, Resource: resource}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if newValues != nil {
		if payload, err := json.Marshal(newValues); err == nil {
			entry.NewValues = payload
		}
	}
	return entry
}
