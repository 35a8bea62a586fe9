package setting

import (
	"net/http"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/api/respond"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/middleware"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/services"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/utils"

	"github.com/gin-gonic/gin"
)

// ListAPIKeys godoc
// @Summary List stored API keys
// @Description List the caller's provider credentials. Keys are masked.
// @Tags settings
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=[]services.CredentialView}
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /settings/api-keys [get]
func ListAPIKeys(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	views, err := services.ListCredentials(c.Request.Context(), user.ID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("API keys retrieved successfully", views))
}

// SaveAPIKey godoc
// @Summary Store an API key
// @Description Encrypt and store the caller's key for a provider, replacing any previous one
// @Tags settings
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body SaveAPIKeyRequest true "API key"
// @Success 200 {object} utils.Response{data=services.CredentialView}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Router /settings/api-keys [put]
func SaveAPIKey(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req SaveAPIKeyRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	view, err := services.SaveCredential(c.Request.Context(), user.ID, services.CredentialInput{
		Provider: req.Provider,
		APIKey:   req.APIKey,
		BaseURL:  req.BaseURL,
		Model:    req.Model,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("API key saved", view))
}

// DeleteAPIKey godoc
// @Summary Remove an API key
// @Tags settings
// @Produce json
// @Security ApiKeyAuth
// @Param provider path string true "Provider"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /settings/api-keys/{provider} [delete]
func DeleteAPIKey(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	if err := services.DeleteCredential(c.Request.Context(), user.ID, c.Param("provider")); err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("API key removed", nil))
}
