package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a widget conversation with a bot.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BotID     string    `gorm:"size:36;not null;index" json:"bot_id"`
	Role      string    `gorm:"size:16;not null;index" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Failed    bool      `gorm:"not null;default:false" json:"failed"`
	LatencyMS int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}
