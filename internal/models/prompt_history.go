package models

import "time"

// PromptHistory records one optimization run. Rows are never updated.
type PromptHistory struct {
	ID            string    `gorm:"primarykey;size:32" json:"id"`
	UserID        string    `gorm:"size:100;index" json:"user_id"`
	Prompt        string    `gorm:"type:text;not null" json:"prompt"`
	Requirement   string    `gorm:"type:text" json:"requirement"`
	DeepReasoning *string   `gorm:"type:text" json:"deep_reasoning,omitempty"`
	Result        string    `gorm:"type:text;not null" json:"result"`
	Provider      string    `gorm:"size:50" json:"provider,omitempty"`
	Model         string    `gorm:"size:100" json:"model,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}
