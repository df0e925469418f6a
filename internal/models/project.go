package models

import (
	"strings"
	"time"
)

// Project is a shared workspace. Members are ordered by insertion.
type Project struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"size:200;not null" json:"name"`
	CreatedBy uint            `gorm:"index" json:"created_by"`
	Members   []ProjectMember `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

func NormalizeProjectName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
