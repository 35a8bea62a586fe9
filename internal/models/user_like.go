package models

import "time"

// UserLike marks that a user liked a template. One row per (user, template).
type UserLike struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	UserID           string    `gorm:"size:100;not null;index;uniqueIndex:idx_user_likes_user_template,priority:1" json:"user_id"`
	PromptTemplateID uint      `gorm:"not null;index;uniqueIndex:idx_user_likes_user_template,priority:2" json:"prompt_template_id"`
	CreatedAt        time.Time `json:"created_at"`
}
