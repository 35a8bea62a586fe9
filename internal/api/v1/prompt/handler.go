package prompt

import (
	"net/http"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/api/respond"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/middleware"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/services"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/utils"

	"github.com/gin-gonic/gin"
)

// Optimize godoc
// @Summary Optimize a prompt
// @Description Rewrite a prompt with the caller's configured provider and save the run to history
// @Tags prompts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body OptimizeRequest true "Optimize Request"
// @Success 200 {object} utils.Response{data=models.PromptHistory}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 502 {object} utils.Response
// @Failure 503 {object} utils.Response
// @Router /prompts/optimize [post]
func Optimize(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req OptimizeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	entry, err := services.OptimizePrompt(c.Request.Context(), user.ID, services.OptimizeRequest{
		Provider:      req.Provider,
		Model:         req.Model,
		Prompt:        req.Prompt,
		Requirement:   req.Requirement,
		DeepReasoning: req.DeepReasoning,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Prompt optimized successfully", entry))
}
