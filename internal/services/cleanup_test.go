package services

import (
	"context"
	"testing"
	"time"

	"github.com/codecraft-ai/codecraft/backend/internal/models"
)

func TestCleanupScheduler_SweepMessages(t *testing.T) {
	ctx := context.Background()
	chat, clock := newChatWithClock(t, 10*time.Minute)

	if err := chat.Create(ctx, &models.ChatMessage{ProjectID: 1, Text: "old", SenderEmail: "a@x.com"}); err != nil {
		t.Fatal(err)
	}
	clock.t = clock.t.Add(11 * time.Minute)
	if err := chat.Create(ctx, &models.ChatMessage{ProjectID: 1, Text: "new", SenderEmail: "a@x.com"}); err != nil {
		t.Fatal(err)
	}

	s := NewCleanupScheduler(chat, NewSystemLogService(chat.db), "", 0)
	if deleted := s.SweepMessages(ctx); deleted != 1 {
		t.Errorf("SweepMessages() = %d, expected 1", deleted)
	}

	var remaining int64
	chat.db.Model(&models.ChatMessage{}).Count(&remaining)
	if remaining != 1 {
		t.Errorf("remaining rows = %d, expected 1", remaining)
	}
}

func TestCleanupScheduler_SweepAuditLogs(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := []models.SystemLog{
		{Level: "info", Module: "project", Action: "rename", CreatedAt: now.AddDate(0, 0, -40)},
		{Level: "info", Module: "project", Action: "rename", CreatedAt: now.AddDate(0, 0, -1)},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatal(err)
	}

	s := NewCleanupScheduler(NewChatService(db, 0), NewSystemLogService(db), "", 30)
	s.now = func() time.Time { return now }

	if deleted := s.SweepAuditLogs(ctx); deleted != 1 {
		t.Errorf("SweepAuditLogs() = %d, expected 1", deleted)
	}
}

func TestCleanupScheduler_StartRejectsBadSchedule(t *testing.T) {
	db := newTestDB(t)
	s := NewCleanupScheduler(NewChatService(db, time.Minute), NewSystemLogService(db), "not a schedule", 0)
	if err := s.Start(); err == nil {
		s.Stop()
		t.Error("Start() should fail for an invalid cron expression")
	}
}
