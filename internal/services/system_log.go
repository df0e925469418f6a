package services

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/codecraft-ai/codecraft/backend/internal/models"
	"github.com/codecraft-ai/codecraft/backend/pkg/logger"
)

var auditDB *gorm.DB

func InitSystemLogger(db *gorm.DB) {
	auditDB = db
}

// AuditEntry is one row of the audit trail.
type AuditEntry struct {
	Module    string
	Action    string
	Message   string
	UserID    *uint
	ProjectID *uint
	IP        string
	UserAgent string
	Extra     interface{}
}

func LogInfo(e AuditEntry) {
	writeLog("info", e)
}

func LogWarning(e AuditEntry) {
	writeLog("warning", e)
}

func writeLog(level string, e AuditEntry) {
	if auditDB == nil {
		return
	}

	var extra string
	if e.Extra != nil {
		if b, err := json.Marshal(e.Extra); err == nil {
			extra = string(b)
		}
	}

	row := &models.SystemLog{
		Level:     level,
		Module:    e.Module,
		Action:    e.Action,
		Message:   e.Message,
		UserID:    e.UserID,
		ProjectID: e.ProjectID,
		IP:        e.IP,
		UserAgent: e.UserAgent,
		Extra:     extra,
		CreatedAt: time.Now(),
	}
	if err := auditDB.Create(row).Error; err != nil {
		logger.Warnf("[Audit] Failed to write %s/%s: %v", e.Module, e.Action, err)
	}
}

func uintPtr(v uint) *uint {
	return &v
}

type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

type SystemLogListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Level    string `form:"level"`
	Action   string `form:"action"`
}

type SystemLogListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.SystemLog `json:"items"`
}

// ListForProject returns a project's audit trail, newest first.
func (s *SystemLogService) ListForProject(ctx context.Context, projectID uint, req *SystemLogListRequest) (*SystemLogListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	var logs []models.SystemLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.SystemLog{}).Where("project_id = ?", projectID)
	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &SystemLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

// CleanupOldLogs deletes audit rows created before cutoff.
func (s *SystemLogService) CleanupOldLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
