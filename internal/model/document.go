package model

import "time"

type Document struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	BotID        string    `gorm:"size:36;not null;index" json:"bot_id"`
	Filename     string    `gorm:"size:256;not null" json:"filename"`
	SizeBytes    int64     `gorm:"not null" json:"size_bytes"`
	ContentType  string    `gorm:"size:128" json:"content_type"`
	PassageCount int       `gorm:"not null" json:"passage_count"`
	CreatedAt    time.Time `json:"created_at"`
}
