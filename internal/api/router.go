package api

import (
	"net/http"

	"github.com/RainbowRain9/auto-prompt-sub002/config"
	_ "github.com/RainbowRain9/auto-prompt-sub002/docs"
	adminUser "github.com/RainbowRain9/auto-prompt-sub002/internal/api/v1/admin/user"
	authRoutes "github.com/RainbowRain9/auto-prompt-sub002/internal/api/v1/auth"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/api/v1/history"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/api/v1/prompt"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/api/v1/setting"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/api/v1/template"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/auth"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/database"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/middleware"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewRouter wires middleware and routes. Database, Redis and the token
// service must already be initialized.
func NewRouter(cfg *config.Config, tokens auth.TokenService) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(), middleware.Logger(), middleware.Metrics())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum age for preflight requests
	}))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", health)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.UserContext(auth.NewResolver(tokens)))
	{
		authRoutes.RegisterRoutes(v1, middleware.NewIPRateLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst))

		authorized := v1.Group("/")
		authorized.Use(middleware.RequireAuth())
		{
			template.RegisterRoutes(authorized, v1)
			history.RegisterRoutes(authorized)
			prompt.RegisterRoutes(authorized)
			setting.RegisterRoutes(authorized)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.RequireAuth(), middleware.RequireAdmin())
		{
			adminUser.RegisterRoutes(admin)
		}
	}

	return router
}

func health(c *gin.Context) {
	checks := gin.H{"database": "ok"}
	status := http.StatusOK

	if err := database.Ping(database.DB); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if database.RedisClient != nil {
		checks["redis"] = "ok"
		if err := database.RedisClient.Ping(c.Request.Context()).Err(); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	message := "healthy"
	if status != http.StatusOK {
		message = "unhealthy"
	}
	c.JSON(status, utils.NewResponse(status, message, checks))
}
