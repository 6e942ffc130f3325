package model

import "time"

// IngestionRecord is the audit row of one settled batch submission.
type IngestionRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	EventID     string    `gorm:"size:36;not null;uniqueIndex" json:"event_id"`
	Actor       string    `gorm:"size:191;not null;index" json:"actor"`
	FileNames   string    `gorm:"type:text;not null" json:"file_names"`
	FileCount   int       `gorm:"not null" json:"file_count"`
	AddedChunks int       `gorm:"not null" json:"added_chunks"`
	Outcome     string    `gorm:"size:16;not null;index" json:"outcome"`
	Message     string    `gorm:"size:255;not null" json:"message"`
	OccurredAt  time.Time `gorm:"not null;index" json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
}
