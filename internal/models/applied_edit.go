package models

import "time"

// AppliedEdit records an accepted edit after its write succeeded. Rejected
// edits are never recorded; the row mirrors the review record at the moment
// of acceptance.
type AppliedEdit struct {
	ID             uint   `gorm:"primaryKey"`
	ConversationID uint   `gorm:"index:idx_applied_edit_conversation"`
	EditID         string `gorm:"size:64;not null;uniqueIndex"`
	FilePath       string `gorm:"size:1024;not null"`
	Action         string `gorm:"size:40;not null"`
	Explanation    string `gorm:"type:text"`
	LinesAdded     int    `gorm:"not null;default:0"`
	LinesRemoved   int    `gorm:"not null;default:0"`
	CreatedAt      time.Time
}
