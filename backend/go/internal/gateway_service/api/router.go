package api

import "github.com/gin-gonic/gin"

// SetupRouter 配置和返回一个 Gin 引擎实例。
func SetupRouter(h *Handler, jwtSecret string) *gin.Engine {
	// 使用默认中间件 (logger, recovery) 创建一个 Gin 引擎。
	r := gin.Default()

	authMiddleware := AuthMiddleware(jwtSecret)

	apiV1 := r.Group("/api/v1")
	{
		// 用户认证路由组
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
		}

		// 摘要任务路由组，所有路由都需要认证
		summarize := apiV1.Group("/summarize")
		summarize.Use(authMiddleware)
		{
			summarize.POST("/youtube", h.SummarizeYouTube)
			summarize.POST("/file", h.SummarizeFile)
		}
	}

	return r
}
