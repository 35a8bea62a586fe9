package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TemplateTitleMaxLen       = 200
	TemplateDescriptionMaxLen = 500
)

// PromptTemplate is a reusable prompt owned by one user and optionally shared with everyone.
type PromptTemplate struct {
	ID          uint                        `gorm:"primarykey" json:"id"`
	Title       string                      `gorm:"size:200;not null;index" json:"title"`
	Description string                      `gorm:"size:500" json:"description"`
	Content     string                      `gorm:"type:text;not null" json:"content"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	UserID      string                      `gorm:"size:100;index" json:"user_id"`
	CreatorName string                      `gorm:"size:100" json:"creator_name"`
	IsFavorite  bool                        `gorm:"not null;default:false;index" json:"is_favorite"`
	IsShared    bool                        `gorm:"not null;default:false;index" json:"is_shared"`
	SharedAt    *time.Time                  `gorm:"index" json:"shared_at,omitempty"`
	ViewCount   int                         `gorm:"not null;default:0;index" json:"view_count"`
	LikeCount   int                         `gorm:"not null;default:0;index" json:"like_count"`
	CreatedAt   time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`

	Likes []UserLike `gorm:"foreignKey:PromptTemplateID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeSave keeps tags serialized as an empty list rather than null.
func (t *PromptTemplate) BeforeSave(tx *gorm.DB) error {
	if t.Tags == nil {
		t.Tags = datatypes.JSONSlice[string]{}
	}
	return nil
}
