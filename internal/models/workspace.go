package models

import "time"

// Workspace is a project root the shell has opened. Index orders the
// workspace picker; lower values list first.
type Workspace struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:255;not null"`
	RootPath  string `gorm:"size:1024;not null;uniqueIndex"`
	Index     int    `json:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type WorkspaceOrderUpdate struct {
	ID    uint `json:"ID"`
	Index int  `json:"Index"`
}
