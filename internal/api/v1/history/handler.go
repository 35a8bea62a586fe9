package history

import (
	"net/http"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/api/respond"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/middleware"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/services"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/utils"

	"github.com/gin-gonic/gin"
)

// ListHistories godoc
// @Summary List optimization history
// @Description List the caller's optimization runs, newest first
// @Tags histories
// @Produce json
// @Security ApiKeyAuth
// @Param search query string false "Search in the original prompt"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page" default(20)
// @Success 200 {object} utils.Response{data=utils.PageData}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Router /histories [get]
func ListHistories(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var q ListHistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return
	}

	entries, total, err := services.ListPromptHistory(c.Request.Context(), user.ID, services.HistoryQuery{
		Search:   q.Search,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	page, size := services.NormalizePage(q.Page, q.PageSize)
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Histories retrieved successfully", utils.PageData{
		Items:    entries,
		Total:    total,
		Page:     page,
		PageSize: size,
	}))
}

// CreateHistory godoc
// @Summary Save an optimization run
// @Tags histories
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body CreateHistoryRequest true "History entry"
// @Success 201 {object} utils.Response{data=models.PromptHistory}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Router /histories [post]
func CreateHistory(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req CreateHistoryRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	entry, err := services.CreatePromptHistory(c.Request.Context(), user.ID, services.HistoryInput{
		Prompt:        req.Prompt,
		Requirement:   req.Requirement,
		DeepReasoning: req.DeepReasoning,
		Result:        req.Result,
		Provider:      req.Provider,
		Model:         req.Model,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, utils.NewResponse(http.StatusCreated, "History saved", entry))
}

// GetHistory godoc
// @Summary Get an optimization run
// @Tags histories
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "History ID"
// @Success 200 {object} utils.Response{data=models.PromptHistory}
// @Failure 404 {object} utils.Response
// @Router /histories/{id} [get]
func GetHistory(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	entry, err := services.GetPromptHistory(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("History retrieved successfully", entry))
}

// DeleteHistory godoc
// @Summary Delete an optimization run
// @Tags histories
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "History ID"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /histories/{id} [delete]
func DeleteHistory(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	if err := services.DeletePromptHistory(c.Request.Context(), c.Param("id"), user.ID); err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("History deleted successfully", nil))
}
