package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/database"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/metrics"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/models"
	"github.com/RainbowRain9/auto-prompt-sub002/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SharedTemplatesCacheKeyPrefix = "templates:shared:"
	SharedTemplatesCacheDuration  = 5 * time.Minute
)

const (
	SharedSortLatest  = "latest"
	SharedSortPopular = "popular"
	SharedSortViews   = "views"
)

var sharedSortColumns = map[string]string{
	SharedSortLatest:  "shared_at DESC, id DESC",
	SharedSortPopular: "like_count DESC, shared_at DESC, id DESC",
	SharedSortViews:   "view_count DESC, shared_at DESC, id DESC",
}

var templateSortColumns = map[string]string{
	"created_at": "created_at DESC, id DESC",
	"view_count": "view_count DESC, id DESC",
	"like_count": "like_count DESC, id DESC",
}

var sharedFill singleflight.Group

const sharedFillTimeout = 10 * time.Second

type TemplateInput struct {
	Title       string
	Description string
	Content     string
	Tags        []string
}

// TemplateUpdate carries a partial update; nil fields are left unchanged.
type TemplateUpdate struct {
	Title       *string
	Description *string
	Content     *string
	Tags        []string
}

type TemplateQuery struct {
	Search        string
	Tag           string
	FavoritesOnly bool
	SortBy        string
	Page          int
	PageSize      int
}

type SharedTemplateQuery struct {
	Search   string
	Tag      string
	Sort     string
	Page     int
	PageSize int
}

type sharedPage struct {
	Items []models.PromptTemplate `json:"items"`
	Total int64                   `json:"total"`
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > models.TemplateTitleMaxLen {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, models.TemplateTitleMaxLen)
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > models.TemplateDescriptionMaxLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, models.TemplateDescriptionMaxLen)
	}
	return nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	return nil
}

func cleanTags(tags []string) datatypes.JSONSlice[string] {
	out := datatypes.JSONSlice[string]{}
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// CreatePromptTemplate creates a private template owned by userID.
func CreatePromptTemplate(ctx context.Context, userID, creatorName string, in TemplateInput) (*models.PromptTemplate, error) {
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	if err := validateDescription(in.Description); err != nil {
		return nil, err
	}
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}

	template := &models.PromptTemplate{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Content:     in.Content,
		Tags:        cleanTags(in.Tags),
		UserID:      userID,
		CreatorName: creatorName,
	}

	if err := database.DB.WithContext(ctx).Create(template).Error; err != nil {
		return nil, err
	}
	return template, nil
}

// findOwnedTemplate loads a template and checks that userID owns it.
func findOwnedTemplate(db *gorm.DB, id uint, userID string) (*models.PromptTemplate, error) {
	var template models.PromptTemplate
	if err := db.First(&template, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if template.UserID != userID {
		return nil, ErrPermissionDenied
	}
	return &template, nil
}

// findVisibleTemplate loads a template the caller owns or that is shared.
// Private templates of other users are reported as not found.
func findVisibleTemplate(db *gorm.DB, id uint, userID string) (*models.PromptTemplate, error) {
	var template models.PromptTemplate
	if err := db.First(&template, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if !template.IsShared && (userID == "" || template.UserID != userID) {
		return nil, ErrTemplateNotFound
	}
	return &template, nil
}

// UpdatePromptTemplate applies a partial update. Only the owner may update.
func UpdatePromptTemplate(ctx context.Context, id uint, userID string, in TemplateUpdate) (*models.PromptTemplate, error) {
	db := database.DB.WithContext(ctx)

	template, err := findOwnedTemplate(db, id, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		if err := validateTitle(*in.Title); err != nil {
			return nil, err
		}
		updates["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		if err := validateDescription(*in.Description); err != nil {
			return nil, err
		}
		updates["description"] = *in.Description
	}
	if in.Content != nil {
		if err := validateContent(*in.Content); err != nil {
			return nil, err
		}
		updates["content"] = *in.Content
	}
	if in.Tags != nil {
		updates["tags"] = cleanTags(in.Tags)
	}
	if len(updates) == 0 {
		return template, nil
	}

	if err := db.Model(template).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := db.First(template, id).Error; err != nil {
		return nil, err
	}

	if template.IsShared {
		invalidateSharedTemplates(ctx)
	}
	return template, nil
}

// DeletePromptTemplate removes a template and its likes. Only the owner may delete.
func DeletePromptTemplate(ctx context.Context, id uint, userID string) error {
	db := database.DB.WithContext(ctx)

	template, err := findOwnedTemplate(db, id, userID)
	if err != nil {
		return err
	}

	if err := db.Select(clause.Associations).Delete(template).Error; err != nil {
		return err
	}

	if template.IsShared {
		invalidateSharedTemplates(ctx)
	}
	return nil
}

// GetPromptTemplate returns a template the caller owns or one that is shared.
func GetPromptTemplate(ctx context.Context, id uint, userID string) (*models.PromptTemplate, error) {
	return findVisibleTemplate(database.DB.WithContext(ctx), id, userID)
}

// ViewPromptTemplate is GetPromptTemplate plus a view count increment.
func ViewPromptTemplate(ctx context.Context, id uint, userID string) (*models.PromptTemplate, error) {
	db := database.DB.WithContext(ctx)

	template, err := findVisibleTemplate(db, id, userID)
	if err != nil {
		return nil, err
	}

	result := db.Model(&models.PromptTemplate{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if result.Error != nil {
		return nil, result.Error
	}
	template.ViewCount++
	return template, nil
}

func applySearch(db *gorm.DB, search string, columns ...string) *gorm.DB {
	search = strings.TrimSpace(search)
	if search == "" {
		return db
	}
	pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
	conds := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		conds[i] = "LOWER(" + col + ") LIKE ? ESCAPE '\\'"
		args[i] = pattern
	}
	return db.Where("("+strings.Join(conds, " OR ")+")", args...)
}

// applyTagFilter matches the JSON-encoded tag inside the serialized list.
func applyTagFilter(db *gorm.DB, tag string) *gorm.DB {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return db
	}
	encoded, _ := json.Marshal(tag)
	return db.Where("CAST(tags AS TEXT) LIKE ? ESCAPE '\\'", "%"+escapeLike(string(encoded))+"%")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ListPromptTemplates lists the caller's own templates.
func ListPromptTemplates(ctx context.Context, userID string, q TemplateQuery) ([]models.PromptTemplate, int64, error) {
	page, size := NormalizePage(q.Page, q.PageSize)

	var templates []models.PromptTemplate
	var total int64

	db := database.DB.WithContext(ctx).Model(&models.PromptTemplate{}).Where("user_id = ?", userID)
	db = applySearch(db, q.Search, "title", "description", "content")
	db = applyTagFilter(db, q.Tag)
	if q.FavoritesOnly {
		db = db.Where("is_favorite = ?", true)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order, ok := templateSortColumns[q.SortBy]
	if !ok {
		order = templateSortColumns["created_at"]
	}
	if err := db.Order(order).Offset(offset(page, size)).Limit(size).Find(&templates).Error; err != nil {
		return nil, 0, err
	}
	return templates, total, nil
}

// ToggleFavorite flips the favorite flag of an owned template.
func ToggleFavorite(ctx context.Context, id uint, userID string) (*models.PromptTemplate, error) {
	db := database.DB.WithContext(ctx)

	template, err := findOwnedTemplate(db, id, userID)
	if err != nil {
		return nil, err
	}

	template.IsFavorite = !template.IsFavorite
	if err := db.Model(template).UpdateColumn("is_favorite", template.IsFavorite).Error; err != nil {
		return nil, err
	}
	return template, nil
}

// SetShared publishes or unpublishes an owned template. Sharing stamps shared_at.
func SetShared(ctx context.Context, id uint, userID string, shared bool) (*models.PromptTemplate, error) {
	db := database.DB.WithContext(ctx)

	template, err := findOwnedTemplate(db, id, userID)
	if err != nil {
		return nil, err
	}

	var sharedAt *time.Time
	if shared {
		now := time.Now()
		sharedAt = &now
	}
	updates := map[string]interface{}{"is_shared": shared, "shared_at": sharedAt}
	if err := db.Model(template).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := db.First(template, id).Error; err != nil {
		return nil, err
	}

	invalidateSharedTemplates(ctx)
	return template, nil
}

// ListSharedTemplates lists templates shared by any user. The unfiltered first
// page is cached in Redis when it is available.
func ListSharedTemplates(ctx context.Context, q SharedTemplateQuery) ([]models.PromptTemplate, int64, error) {
	page, size := NormalizePage(q.Page, q.PageSize)
	if _, ok := sharedSortColumns[q.Sort]; !ok {
		q.Sort = SharedSortLatest
	}

	cacheable := strings.TrimSpace(q.Search) == "" && strings.TrimSpace(q.Tag) == "" &&
		page == 1 && size == DefaultPageSize
	if !cacheable || database.RedisClient == nil {
		return querySharedTemplates(ctx, q, page, size)
	}

	key := SharedTemplatesCacheKeyPrefix + q.Sort
	if cached, ok := readSharedCache(ctx, key); ok {
		return cached.Items, cached.Total, nil
	}

	v, err, _ := sharedFill.Do(key, func() (interface{}, error) {
		// Waiters share this fill, so it must outlive the first caller.
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFillTimeout)
		defer cancel()

		items, total, err := querySharedTemplates(fillCtx, q, page, size)
		if err != nil {
			return nil, err
		}
		result := &sharedPage{Items: items, Total: total}
		writeSharedCache(fillCtx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, 0, err
	}
	result := v.(*sharedPage)
	return result.Items, result.Total, nil
}

func querySharedTemplates(ctx context.Context, q SharedTemplateQuery, page, size int) ([]models.PromptTemplate, int64, error) {
	var templates []models.PromptTemplate
	var total int64

	db := database.DB.WithContext(ctx).Model(&models.PromptTemplate{}).Where("is_shared = ?", true)
	db = applySearch(db, q.Search, "title", "description", "content", "creator_name")
	db = applyTagFilter(db, q.Tag)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order(sharedSortColumns[q.Sort]).Offset(offset(page, size)).Limit(size).Find(&templates).Error; err != nil {
		return nil, 0, err
	}
	return templates, total, nil
}

func readSharedCache(ctx context.Context, key string) (*sharedPage, bool) {
	val, err := database.RedisClient.Get(ctx, key).Result()
	if err != nil {
		result := "miss"
		if !database.IsRedisNil(err) {
			result = "error"
			logger.L().Warn("Shared template cache read failed", zap.String("key", key), zap.Error(err))
		}
		metrics.CacheRequestsTotal.WithLabelValues("shared_templates", result).Inc()
		return nil, false
	}

	var cached sharedPage
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		metrics.CacheRequestsTotal.WithLabelValues("shared_templates", "error").Inc()
		return nil, false
	}
	metrics.CacheRequestsTotal.WithLabelValues("shared_templates", "hit").Inc()
	return &cached, true
}

func writeSharedCache(ctx context.Context, key string, page *sharedPage) {
	data, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := database.RedisClient.Set(ctx, key, data, SharedTemplatesCacheDuration).Err(); err != nil {
		logger.L().Warn("Shared template cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func invalidateSharedTemplates(ctx context.Context) {
	if database.RedisClient == nil {
		return
	}
	keys := make([]string, 0, len(sharedSortColumns))
	for sort := range sharedSortColumns {
		keys = append(keys, SharedTemplatesCacheKeyPrefix+sort)
	}
	if err := database.RedisClient.Del(ctx, keys...).Err(); err != nil {
		logger.L().Warn("Shared template cache invalidation failed", zap.Error(err))
	}
}
