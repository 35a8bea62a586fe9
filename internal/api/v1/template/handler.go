package template

import (
	"net/http"
	"strconv"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/api/respond"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/middleware"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/models"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/services"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/utils"

	"github.com/gin-gonic/gin"
)

func templateID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid ID"))
		return 0, false
	}
	return uint(id), true
}

func bindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return false
	}
	return true
}

func withLikes(c *gin.Context, userID string, templates []models.PromptTemplate) ([]TemplateResponse, error) {
	items := make([]TemplateResponse, len(templates))
	for i, t := range templates {
		items[i] = TemplateResponse{PromptTemplate: t}
	}
	if userID == "" || len(templates) == 0 {
		return items, nil
	}

	ids := make([]uint, len(templates))
	for i, t := range templates {
		ids[i] = t.ID
	}
	liked, err := services.LikedTemplateIDs(c.Request.Context(), userID, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		isLiked := liked[items[i].ID]
		items[i].IsLiked = &isLiked
	}
	return items, nil
}

// CreateTemplate godoc
// @Summary Create a prompt template
// @Description Create a private prompt template owned by the caller
// @Tags templates
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body CreateTemplateRequest true "Create Template Request"
// @Success 201 {object} utils.Response{data=models.PromptTemplate}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /templates [post]
func CreateTemplate(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req CreateTemplateRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	creator := user.DisplayName
	if creator == "" {
		creator = user.Username
	}
	template, err := services.CreatePromptTemplate(c.Request.Context(), user.ID, creator, services.TemplateInput{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Tags:        req.Tags,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, utils.NewResponse(http.StatusCreated, "Template created successfully", template))
}

// ListTemplates godoc
// @Summary List own templates
// @Description List the caller's templates with optional search, tag and favorite filters
// @Tags templates
// @Produce json
// @Security ApiKeyAuth
// @Param search query string false "Search in title, description and content"
// @Param tag query string false "Tag filter"
// @Param favorites query bool false "Only favorites"
// @Param sort_by query string false "created_at, view_count or like_count"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page" default(20)
// @Success 200 {object} utils.Response{data=utils.PageData}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Router /templates [get]
func ListTemplates(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var q ListTemplatesQuery
	if !bindQuery(c, &q) {
		return
	}

	templates, total, err := services.ListPromptTemplates(c.Request.Context(), user.ID, services.TemplateQuery{
		Search:        q.Search,
		Tag:           q.Tag,
		FavoritesOnly: q.Favorites,
		SortBy:        q.SortBy,
		Page:          q.Page,
		PageSize:      q.PageSize,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	page, size := services.NormalizePage(q.Page, q.PageSize)
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Templates retrieved successfully", utils.PageData{
		Items:    templates,
		Total:    total,
		Page:     page,
		PageSize: size,
	}))
}

// GetTemplate godoc
// @Summary Get a template
// @Description Get a template the caller owns or one that is shared
// @Tags templates
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Template ID"
// @Success 200 {object} utils.Response{data=TemplateResponse}
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /templates/{id} [get]
func GetTemplate(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	id, ok := templateID(c)
	if !ok {
		return
	}

	template, err := services.GetPromptTemplate(c.Request.Context(), id, user.ID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	items, err := withLikes(c, user.ID, []models.PromptTemplate{*template})
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Template retrieved successfully", items[0]))
}

// UpdateTemplate godoc
// @Summary Update a prompt template
// @Description Partially update a template owned by the caller
// @Tags templates
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Template ID"
// @Param request body UpdateTemplateRequest true "Update Template Request"
// @Success 200 {object} utils.Response{data=models.PromptTemplate}
// @Failure 400 {object} utils.Response
// @Failure 403 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /templates/{id} [put]
func UpdateTemplate(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	id, ok := templateID(c)
	if !ok {
		return
	}

	var req UpdateTemplateRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	template, err := services.UpdatePromptTemplate(c.Request.Context(), id, user.ID, services.TemplateUpdate{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Tags:        req.Tags,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Template updated successfully", template))
}

// DeleteTemplate godoc
// @Summary Delete a prompt template
// @Description Delete a template owned by the caller together with its likes
// @Tags templates
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Template ID"
// @Success 200 {object} utils.Response
// @Failure 400 {object} utils.Response
// @Failure 403 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /templates/{id} [delete]
func DeleteTemplate(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	id, ok := templateID(c)
	if !ok {
		return
	}

	if err := services.DeletePromptTemplate(c.Request.Context(), id, user.ID); err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Template deleted successfully", nil))
}

// ViewTemplate godoc
// @Summary Record a template view
// @Description Return the template and increment its view count
// @Tags templates
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Template ID"
// @Success 200 {object} utils.Response{data=models.PromptTemplate}
// @Failure 404 {object} utils.Response
// @Router /templates/{id}/view [post]
func ViewTemplate(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	id, ok := templateID(c)
	if !ok {
		return
	}

	template, err := services.ViewPromptTemplate(c.Request.Context(), id, user.ID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("View recorded", template))
}

// ToggleFavorite godoc
// @Summary Toggle favorite
// @Description Flip the favorite flag of a template owned by the caller
// @Tags templates
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Template ID"
// @Success 200 {object} utils.Response{data=models.PromptTemplate}
// @Failure 403 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /templates/{id}/favorite [post]
func ToggleFavorite(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	id, ok := templateID(c)
	if !ok {
		return
	}

	template, err := services.ToggleFavorite(c.Request.Context(), id, user.ID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Favorite updated", template))
}

func setShared(c *gin.Context, shared bool, message string) {
	user, _ := middleware.CurrentUser(c)
	id, ok := templateID(c)
	if !ok {
		return
	}

	template, err := services.SetShared(c.Request.Context(), id, user.ID, shared)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse(message, template))
}

// ShareTemplate godoc
// @Summary Share a template
// @Description Publish a template owned by the caller to the shared list
// @Tags templates
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Template ID"
// @Success 200 {object} utils.Response{data=models.PromptTemplate}
// @Failure 403 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /templates/{id}/share [put]
func ShareTemplate(c *gin.Context) {
	setShared(c, true, "Template shared")
}

// UnshareTemplate godoc
// @Summary Unshare a template
// @Description Remove a template owned by the caller from the shared list
// @Tags templates
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Template ID"
// @Success 200 {object} utils.Response{data=models.PromptTemplate}
// @Failure 403 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /templates/{id}/share [delete]
func UnshareTemplate(c *gin.Context) {
	setShared(c, false, "Template unshared")
}

// LikeTemplate godoc
// @Summary Like a template
// @Tags templates
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Template ID"
// @Success 200 {object} utils.Response{data=LikeResponse}
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /templates/{id}/like [post]
func LikeTemplate(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	id, ok := templateID(c)
	if !ok {
		return
	}

	count, err := services.LikeTemplate(c.Request.Context(), id, user.ID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Template liked", LikeResponse{LikeCount: count, IsLiked: true}))
}

// UnlikeTemplate godoc
// @Summary Remove a like
// @Tags templates
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Template ID"
// @Success 200 {object} utils.Response{data=LikeResponse}
// @Failure 404 {object} utils.Response
// @Router /templates/{id}/like [delete]
func UnlikeTemplate(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	id, ok := templateID(c)
	if !ok {
		return
	}

	count, err := services.UnlikeTemplate(c.Request.Context(), id, user.ID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Like removed", LikeResponse{LikeCount: count, IsLiked: false}))
}

// ListLikedTemplates godoc
// @Summary List liked templates
// @Description List templates the caller liked that are still visible to them
// @Tags templates
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page" default(20)
// @Success 200 {object} utils.Response{data=utils.PageData}
// @Failure 401 {object} utils.Response
// @Router /templates/liked [get]
func ListLikedTemplates(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var q PageQuery
	if !bindQuery(c, &q) {
		return
	}

	templates, total, err := services.ListLikedTemplates(c.Request.Context(), user.ID, q.Page, q.PageSize)
	if err != nil {
		respond.Error(c, err)
		return
	}

	page, size := services.NormalizePage(q.Page, q.PageSize)
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Liked templates retrieved successfully", utils.PageData{
		Items:    templates,
		Total:    total,
		Page:     page,
		PageSize: size,
	}))
}

// ListSharedTemplates godoc
// @Summary List shared templates
// @Description List templates shared by all users. Authenticated callers also get is_liked.
// @Tags shared-templates
// @Produce json
// @Param search query string false "Search in title, description, content and creator"
// @Param tag query string false "Tag filter"
// @Param sort query string false "latest, popular or views"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page" default(20)
// @Success 200 {object} utils.Response{data=utils.PageData}
// @Failure 400 {object} utils.Response
// @Router /shared-templates [get]
func ListSharedTemplates(c *gin.Context) {
	var q ListSharedQuery
	if !bindQuery(c, &q) {
		return
	}

	templates, total, err := services.ListSharedTemplates(c.Request.Context(), services.SharedTemplateQuery{
		Search:   q.Search,
		Tag:      q.Tag,
		Sort:     q.Sort,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	userID, _ := middleware.Identity(c).CurrentUserID()
	items, err := withLikes(c, userID, templates)
	if err != nil {
		respond.Error(c, err)
		return
	}

	page, size := services.NormalizePage(q.Page, q.PageSize)
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Shared templates retrieved successfully", utils.PageData{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: size,
	}))
}
