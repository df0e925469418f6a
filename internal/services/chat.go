package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/codecraft-ai/codecraft/backend/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// ChatService is the project chat log. Messages older than the retention
// window are hidden from reads and removed by the cleanup job.
type ChatService struct {
	db        *gorm.DB
	retention time.Duration
	now       func() time.Time
}

func NewChatService(db *gorm.DB, retention time.Duration) *ChatService {
	return &ChatService{db: db, retention: retention, now: time.Now}
}

func (s *ChatService) live(ctx context.Context) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.ChatMessage{})
	if s.retention > 0 {
		query = query.Where("created_at >= ?", s.now().UTC().Add(-s.retention))
	}
	return query
}

// Create appends msg, stamping its creation time.
func (s *ChatService) Create(ctx context.Context, msg *models.ChatMessage) error {
	if msg.SenderKind == "" {
		msg.SenderKind = models.SenderHuman
	}
	if msg.SenderKind == models.SenderAgent {
		msg.SenderEmail = models.AgentSenderEmail
	}
	msg.CreatedAt = s.now().UTC()
	return s.db.WithContext(ctx).Create(msg).Error
}

// ListByProject returns up to limit of the most recent messages, oldest first.
func (s *ChatService) ListByProject(ctx context.Context, projectID uint, limit int) ([]models.ChatMessage, error) {
	query := s.live(ctx).Where("project_id = ?", projectID).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var messages []models.ChatMessage
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// ListBySenderDesc returns messages of the given sender kind, newest first.
func (s *ChatService) ListBySenderDesc(ctx context.Context, projectID uint, kind models.SenderKind, limit int) ([]models.ChatMessage, error) {
	query := s.live(ctx).
		Where("project_id = ? AND sender_kind = ?", projectID, kind).
		Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var messages []models.ChatMessage
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// UpdateText overwrites the body of an existing message in place.
func (s *ChatService) UpdateText(ctx context.Context, id uint, text string) error {
	result := s.db.WithContext(ctx).Model(&models.ChatMessage{}).Where("id = ?", id).Update("text", text)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// DeleteExpired removes messages that fell out of the retention window.
func (s *ChatService) DeleteExpired(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().Add(-s.retention)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.ChatMessage{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
