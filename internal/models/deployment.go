package models

import "time"

// Deployment records a hosted build of a project's current artifact.
type Deployment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	ProjectID    uint      `gorm:"index" json:"project_id"`
	ProjectName  string    `gorm:"size:200" json:"project_name"`
	Platform     string    `gorm:"size:50;default:vercel" json:"platform"`
	URL          string    `gorm:"size:500" json:"url"`
	DeploymentID string    `gorm:"size:200" json:"deployment_id"`
	InspectorURL string    `gorm:"size:500" json:"inspector_url"`
	DeployedAt   time.Time `gorm:"index" json:"deployed_at"`
}

func (Deployment) TableName() string { return "deployments" }
