package history

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup) {
	histories := router.Group("/histories")
	histories.GET("", ListHistories)
	histories.POST("", CreateHistory)
	histories.GET("/:id", GetHistory)
	histories.DELETE("/:id", DeleteHistory)
}
