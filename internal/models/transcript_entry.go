package models

import "time"

// TranscriptEntry is one finalized bubble from a conversation transcript:
// a user message, or the assistant response assembled over one turn.
type TranscriptEntry struct {
	ID             uint   `gorm:"primaryKey"`
	ConversationID uint   `gorm:"not null;index:idx_transcript_conversation"`
	TurnID         string `gorm:"size:64;index"`
	Role           string `gorm:"size:20;not null"` // "user" | "assistant"
	Intent         string `gorm:"size:40"`
	Content        string `gorm:"type:text;not null"`
	CreatedAt      time.Time
}
