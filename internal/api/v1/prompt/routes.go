package prompt

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/prompts/optimize", Optimize)
}
