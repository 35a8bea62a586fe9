package template

import "github.com/RainbowRain9/auto-prompt-sub002/internal/models"

type CreateTemplateRequest struct {
	Title       string   `json:"title" binding:"required,max=200"`
	Description string   `json:"description" binding:"max=500"`
	Content     string   `json:"content" binding:"required"`
	Tags        []string `json:"tags"`
}

// UpdateTemplateRequest is a partial update; omitted fields keep their value.
type UpdateTemplateRequest struct {
	Title       *string  `json:"title" binding:"omitempty,max=200"`
	Description *string  `json:"description" binding:"omitempty,max=500"`
	Content     *string  `json:"content"`
	Tags        []string `json:"tags"`
}

type ListTemplatesQuery struct {
	Search    string `form:"search"`
	Tag       string `form:"tag"`
	Favorites bool   `form:"favorites"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=created_at view_count like_count"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type ListSharedQuery struct {
	Search   string `form:"search"`
	Tag      string `form:"tag"`
	Sort     string `form:"sort" binding:"omitempty,oneof=latest popular views"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type PageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// TemplateResponse adds the caller's like state to a template. IsLiked is
// omitted for anonymous callers.
type TemplateResponse struct {
	models.PromptTemplate
	IsLiked *bool `json:"is_liked,omitempty"`
}

type LikeResponse struct {
	LikeCount int  `json:"like_count"`
	IsLiked   bool `json:"is_liked"`
}
