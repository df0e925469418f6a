package services

import (
	"errors"

	"github.com/codecraft-ai/codecraft/backend/internal/models"
)

// Action is a project mutation gated by the membership guard.
type Action string

const (
	ActionRename       Action = "rename"
	ActionAddMember    Action = "add_member"
	ActionRemoveMember Action = "remove_member"
	ActionChangeRole   Action = "change_role"
	ActionDelete       Action = "delete"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrNotMember       = errors.New("you don't have access to this project")
	ErrNotAdmin        = errors.New("only project admins can perform this action")
	ErrTargetNotMember = errors.New("user is not part of this project")
	ErrAlreadyMember   = errors.New("user is already in the project")
	ErrInvalidRole     = errors.New("role must be either 'admin' or 'member'")
	ErrLastAdmin       = errors.New("cannot remove or demote the last admin of the project")
)

// Target is the member an action applies to. Role is the new role for
// ActionChangeRole and the granted role for ActionAddMember.
type Target struct {
	UserID uint
	Role   string
}

// RoleOf returns the role userID holds in p.
func RoleOf(p *models.Project, userID uint) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, m := range p.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

func IsMember(p *models.Project, userID uint) bool {
	_, ok := RoleOf(p, userID)
	return ok
}

func IsAdmin(p *models.Project, userID uint) bool {
	role, ok := RoleOf(p, userID)
	return ok && role == models.RoleAdmin
}

func AdminCount(p *models.Project) int {
	n := 0
	for _, m := range p.Members {
		if m.Role == models.RoleAdmin {
			n++
		}
	}
	return n
}

// Authorize decides whether actorID may perform action on p. Removing or
// demoting the only admin fails with ErrLastAdmin even for an admin actor.
func Authorize(p *models.Project, actorID uint, action Action, target *Target) error {
	if p == nil {
		return ErrProjectNotFound
	}
	if !IsMember(p, actorID) {
		return ErrNotMember
	}
	if !IsAdmin(p, actorID) {
		return ErrNotAdmin
	}

	switch action {
	case ActionRename, ActionDelete:
		return nil

	case ActionAddMember:
		if target == nil {
			return ErrUserNotFound
		}
		if target.Role != "" && !models.ValidRole(target.Role) {
			return ErrInvalidRole
		}
		if IsMember(p, target.UserID) {
			return ErrAlreadyMember
		}
		return nil

	case ActionRemoveMember:
		if target == nil {
			return ErrUserNotFound
		}
		role, ok := RoleOf(p, target.UserID)
		if !ok {
			return ErrTargetNotMember
		}
		if role == models.RoleAdmin && AdminCount(p) == 1 {
			return ErrLastAdmin
		}
		return nil

	case ActionChangeRole:
		if target == nil {
			return ErrUserNotFound
		}
		if !models.ValidRole(target.Role) {
			return ErrInvalidRole
		}
		role, ok := RoleOf(p, target.UserID)
		if !ok {
			return ErrTargetNotMember
		}
		if role == models.RoleAdmin && target.Role == models.RoleMember && AdminCount(p) == 1 {
			return ErrLastAdmin
		}
		return nil

	default:
		return ErrNotAdmin
	}
}
