package api

import (
	"github.com/gin-gonic/gin"

	"ChattyWidget/pkg/ratelimiter"
)

// SetupRouter 配置和返回一个 Gin 引擎实例。
func SetupRouter(h *Handler, jwtSecret string, limiter ratelimiter.RateLimiter) *gin.Engine {
	// 使用默认中间件 (logger, recovery) 创建一个 Gin 引擎。
	r := gin.Default()

	// 健康检查不经过认证与限流。
	r.GET("/healthz", h.Health)

	authMiddleware := AuthMiddleware(jwtSecret)

	apiV1 := r.Group("/api/v1")
	apiV1.Use(RateLimitMiddleware(limiter), authMiddleware)
	{
		apiV1.POST("/query", h.Query)
		apiV1.POST("/query/stream", h.QueryStream)
		apiV1.GET("/models", h.ListModels)
		apiV1.POST("/feedback", h.Feedback)
		apiV1.POST("/documents/:id/process", h.ProcessDocument)
	}

	return r
}
