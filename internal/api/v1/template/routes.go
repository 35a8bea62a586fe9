package template

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the owner routes on authorized and the shared list on public.
func RegisterRoutes(authorized, public *gin.RouterGroup) {
	templates := authorized.Group("/templates")
	templates.GET("", ListTemplates)
	templates.POST("", CreateTemplate)
	templates.GET("/liked", ListLikedTemplates)
	templates.GET("/:id", GetTemplate)
	templates.PUT("/:id", UpdateTemplate)
	templates.DELETE("/:id", DeleteTemplate)
	templates.POST("/:id/view", ViewTemplate)
	templates.POST("/:id/favorite", ToggleFavorite)
	templates.PUT("/:id/share", ShareTemplate)
	templates.DELETE("/:id/share", UnshareTemplate)
	templates.POST("/:id/like", LikeTemplate)
	templates.DELETE("/:id/like", UnlikeTemplate)

	public.GET("/shared-templates", ListSharedTemplates)
}
