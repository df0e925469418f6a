package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codecraft-ai/codecraft/backend/internal/models"
)

var ErrProjectNameRequired = errors.New("project name is required")

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

type CreateProjectRequest struct {
	Name string `json:"name" binding:"required"`
}

type RenameProjectRequest struct {
	Name string `json:"name" binding:"required"`
}

type AddMemberRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role"`
}

type RemoveMemberRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

type ChangeRoleRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

type MemberSummary struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

type ProjectStats struct {
	ProjectName string          `json:"project_name"`
	TotalUsers  int             `json:"total_users"`
	AdminCount  int             `json:"admin_count"`
	MemberCount int             `json:"member_count"`
	Admins      []MemberSummary `json:"admins"`
	Members     []MemberSummary `json:"members"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

func withMembers(db *gorm.DB) *gorm.DB {
	return db.Preload("Members", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("project_members.id ASC")
	}).Preload("Members.User")
}

// Load returns the project with its ordered membership list.
func (s *ProjectService) Load(ctx context.Context, id uint) (*models.Project, error) {
	return s.load(s.db.WithContext(ctx), id, false)
}

func (s *ProjectService) load(db *gorm.DB, id uint, lock bool) (*models.Project, error) {
	if id == 0 {
		return nil, ErrProjectNotFound
	}
	query := withMembers(db)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var project models.Project
	if err := query.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// Get returns the project if userID is one of its members.
func (s *ProjectService) Get(ctx context.Context, id, userID uint) (*models.Project, error) {
	project, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !IsMember(project, userID) {
		return nil, ErrNotMember
	}
	return project, nil
}

// ListForUser returns every project userID belongs to, newest first.
func (s *ProjectService) ListForUser(ctx context.Context, userID uint) ([]models.Project, error) {
	var projects []models.Project
	err := withMembers(s.db.WithContext(ctx)).
		Where("id IN (?)", s.db.Model(&models.ProjectMember{}).Select("project_id").Where("user_id = ?", userID)).
		Order("created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// Create makes a project with creatorID as its only admin.
func (s *ProjectService) Create(ctx context.Context, name string, creatorID uint) (*models.Project, error) {
	name = models.NormalizeProjectName(name)
	if name == "" {
		return nil, ErrProjectNameRequired
	}

	project := models.Project{
		Name:      name,
		CreatedBy: creatorID,
		Members: []models.ProjectMember{
			{UserID: creatorID, Role: models.RoleAdmin},
		},
	}
	if err := s.db.WithContext(ctx).Create(&project).Error; err != nil {
		return nil, err
	}

	LogInfo(AuditEntry{
		Module:    "project",
		Action:    "create",
		Message:   fmt.Sprintf("project %q created", name),
		UserID:    uintPtr(creatorID),
		ProjectID: uintPtr(project.ID),
	})
	return s.Load(ctx, project.ID)
}

// mutate loads the project under a row lock, authorizes the actor and runs fn
// in the same transaction.
func (s *ProjectService) mutate(ctx context.Context, id, actorID uint, action Action, target *Target, fn func(tx *gorm.DB, p *models.Project) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := s.load(tx, id, true)
		if err != nil {
			return err
		}
		if err := Authorize(project, actorID, action, target); err != nil {
			return err
		}
		return fn(tx, project)
	})
}

func (s *ProjectService) Rename(ctx context.Context, id, actorID uint, name string) (*models.Project, error) {
	name = models.NormalizeProjectName(name)
	if name == "" {
		return nil, ErrProjectNameRequired
	}

	err := s.mutate(ctx, id, actorID, ActionRename, nil, func(tx *gorm.DB, p *models.Project) error {
		return tx.Model(&models.Project{}).Where("id = ?", p.ID).Update("name", name).Error
	})
	if err != nil {
		return nil, err
	}

	LogInfo(AuditEntry{Module: "project", Action: "rename", Message: "renamed to " + name, UserID: uintPtr(actorID), ProjectID: uintPtr(id)})
	return s.Load(ctx, id)
}

// AddMember adds the user registered under email. Role defaults to member.
func (s *ProjectService) AddMember(ctx context.Context, id, actorID uint, email, role string) (*models.Project, error) {
	if role == "" {
		role = models.RoleMember
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The project must still exist for the caller to learn about the user.
			if _, perr := s.Load(ctx, id); perr != nil {
				return nil, perr
			}
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	target := &Target{UserID: user.ID, Role: role}
	err := s.mutate(ctx, id, actorID, ActionAddMember, target, func(tx *gorm.DB, p *models.Project) error {
		return tx.Create(&models.ProjectMember{ProjectID: p.ID, UserID: user.ID, Role: role}).Error
	})
	if err != nil {
		return nil, err
	}

	LogInfo(AuditEntry{Module: "project", Action: "add_member", Message: fmt.Sprintf("added %s as %s", user.Email, role), UserID: uintPtr(actorID), ProjectID: uintPtr(id)})
	return s.Load(ctx, id)
}

func (s *ProjectService) RemoveMember(ctx context.Context, id, actorID, targetUserID uint) (*models.Project, error) {
	target := &Target{UserID: targetUserID}
	err := s.mutate(ctx, id, actorID, ActionRemoveMember, target, func(tx *gorm.DB, p *models.Project) error {
		return tx.Where("project_id = ? AND user_id = ?", p.ID, targetUserID).Delete(&models.ProjectMember{}).Error
	})
	if err != nil {
		return nil, err
	}

	LogInfo(AuditEntry{Module: "project", Action: "remove_member", Message: fmt.Sprintf("removed user %d", targetUserID), UserID: uintPtr(actorID), ProjectID: uintPtr(id)})
	return s.Load(ctx, id)
}

func (s *ProjectService) ChangeRole(ctx context.Context, id, actorID, targetUserID uint, role string) (*models.Project, error) {
	target := &Target{UserID: targetUserID, Role: role}
	err := s.mutate(ctx, id, actorID, ActionChangeRole, target, func(tx *gorm.DB, p *models.Project) error {
		return tx.Model(&models.ProjectMember{}).
			Where("project_id = ? AND user_id = ?", p.ID, targetUserID).
			Update("role", role).Error
	})
	if err != nil {
		return nil, err
	}

	LogInfo(AuditEntry{Module: "project", Action: "change_role", Message: fmt.Sprintf("user %d is now %s", targetUserID, role), UserID: uintPtr(actorID), ProjectID: uintPtr(id)})
	return s.Load(ctx, id)
}

// Delete removes the project together with its members and chat history.
func (s *ProjectService) Delete(ctx context.Context, id, actorID uint) error {
	err := s.mutate(ctx, id, actorID, ActionDelete, nil, func(tx *gorm.DB, p *models.Project) error {
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, p.ID).Error
	})
	if err != nil {
		return err
	}

	LogInfo(AuditEntry{Module: "project", Action: "delete", Message: "project deleted", UserID: uintPtr(actorID), ProjectID: uintPtr(id)})
	return nil
}

// Stats summarizes the membership of a project visible to userID.
func (s *ProjectService) Stats(ctx context.Context, id, userID uint) (*ProjectStats, error) {
	project, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	stats := &ProjectStats{
		ProjectName: project.Name,
		TotalUsers:  len(project.Members),
		Admins:      []MemberSummary{},
		Members:     []MemberSummary{},
		CreatedAt:   project.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   project.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, m := range project.Members {
		summary := MemberSummary{ID: m.UserID}
		if m.User != nil {
			summary.Email = m.User.Email
		}
		if m.Role == models.RoleAdmin {
			stats.AdminCount++
			stats.Admins = append(stats.Admins, summary)
		} else {
			stats.MemberCount++
			stats.Members = append(stats.Members, summary)
		}
	}
	return stats, nil
}
