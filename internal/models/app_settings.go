package models

import "time"

type AppSettings struct {
	ID             uint   `gorm:"primaryKey"` // single-row table (ID=1)
	Version        int    `gorm:"not null;default:1"`
	Theme          string `gorm:"not null;default:system"` // "light" | "dark" | "system"
	ActiveProvider string `gorm:"size:50;not null;default:anthropic"`
	ActiveModelKey string `gorm:"size:255"`
	AgentAddr      string `gorm:"size:255"`
	Generation     string `gorm:"size:20;not null;default:rich"` // protocol generation: "flat" | "rich"
	UpdatedAt      time.Time
}
