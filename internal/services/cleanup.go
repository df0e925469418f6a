package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/codecraft-ai/codecraft/backend/pkg/logger"
)

const auditCleanupSchedule = "0 3 * * *"

// CleanupScheduler sweeps expired chat messages and old audit rows.
type CleanupScheduler struct {
	chat          *ChatService
	systemLogs    *SystemLogService
	chatSchedule  string
	retentionDays int
	cronScheduler *cron.Cron
	now           func() time.Time
}

func NewCleanupScheduler(chat *ChatService, systemLogs *SystemLogService, chatSchedule string, auditRetentionDays int) *CleanupScheduler {
	if chatSchedule == "" {
		chatSchedule = "@every 1m"
	}
	return &CleanupScheduler{
		chat:          chat,
		systemLogs:    systemLogs,
		chatSchedule:  chatSchedule,
		retentionDays: auditRetentionDays,
		now:           time.Now,
	}
}

func (s *CleanupScheduler) Start() error {
	s.cronScheduler = cron.New()

	if _, err := s.cronScheduler.AddFunc(s.chatSchedule, func() { s.SweepMessages(context.Background()) }); err != nil {
		return err
	}
	if s.retentionDays > 0 {
		if _, err := s.cronScheduler.AddFunc(auditCleanupSchedule, func() { s.SweepAuditLogs(context.Background()) }); err != nil {
			return err
		}
	}

	s.cronScheduler.Start()
	logger.Infof("[Cleanup] Scheduler started (messages: %s, audit retention: %d days)", s.chatSchedule, s.retentionDays)
	return nil
}

func (s *CleanupScheduler) Stop() {
	if s.cronScheduler != nil {
		<-s.cronScheduler.Stop().Done()
	}
}

// SweepMessages deletes chat messages past the retention window.
func (s *CleanupScheduler) SweepMessages(ctx context.Context) int64 {
	deleted, err := s.chat.DeleteExpired(ctx)
	if err != nil {
		logger.Errorf("[Cleanup] Failed to delete expired messages: %v", err)
		return 0
	}
	if deleted > 0 {
		logger.Infof("[Cleanup] Deleted %d expired messages", deleted)
	}
	return deleted
}

// SweepAuditLogs deletes audit rows older than the retention window.
func (s *CleanupScheduler) SweepAuditLogs(ctx context.Context) int64 {
	if s.retentionDays <= 0 {
		return 0
	}
	cutoff := s.now().AddDate(0, 0, -s.retentionDays)
	deleted, err := s.systemLogs.CleanupOldLogs(ctx, cutoff)
	if err != nil {
		logger.Errorf("[Cleanup] Failed to delete old audit logs: %v", err)
		return 0
	}
	if deleted > 0 {
		logger.Infof("[Cleanup] Deleted %d audit logs older than %d days", deleted, s.retentionDays)
	}
	return deleted
}
