package models

import "time"

// ChatMessage is one entry of a project's chat log. Agent messages may embed
// a code artifact in Text.
type ChatMessage struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ProjectID    uint       `gorm:"index:idx_chat_project_created,priority:1;not null" json:"project_id"`
	Text         string     `gorm:"type:text;not null" json:"text"`
	SenderKind   SenderKind `gorm:"size:20;not null;default:human" json:"sender_kind"`
	SenderEmail  string     `gorm:"size:255;not null" json:"sender_email"`
	SenderUserID *uint      `json:"sender_user_id,omitempty"`
	CreatedAt    time.Time  `gorm:"index:idx_chat_project_created,priority:2;index" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

func (m *ChatMessage) IsAgent() bool {
	return m.SenderKind == SenderAgent
}
