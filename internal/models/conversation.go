package models

import "time"

// Conversation persists one chat thread between the user and the agent,
// scoped to a workspace. MessagesJSON carries the provider-neutral message
// history so a thread can resume after a restart.
type Conversation struct {
	ID           uint   `gorm:"primaryKey"`
	WorkspaceID  uint   `gorm:"index:idx_conversation_workspace_title,unique"`
	Title        string `gorm:"size:255;not null;index:idx_conversation_workspace_title,unique"`
	Provider     string `gorm:"size:50;not null"`
	ModelKey     string `gorm:"size:255"`
	Generation   string `gorm:"size:20;not null;default:rich"`
	MessagesJSON string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
