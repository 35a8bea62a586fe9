package setting

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup) {
	keys := router.Group("/settings/api-keys")
	keys.GET("", ListAPIKeys)
	keys.PUT("", SaveAPIKey)
	keys.DELETE("/:provider", DeleteAPIKey)
}
