package model

import "time"

type BotStatus string

const (
	BotStatusProcessing BotStatus = "processing"
	BotStatusReady      BotStatus = "ready"
	BotStatusError      BotStatus = "error"
)

// Bot is a tenant: every document, passage and vector belongs to exactly one bot.
type Bot struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	OwnerID      uint      `gorm:"not null;index" json:"owner_id"`
	Name         string    `gorm:"size:128;not null" json:"name"`
	Status       BotStatus `gorm:"size:16;not null;index" json:"status"`
	ErrorMessage string    `gorm:"size:512" json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
