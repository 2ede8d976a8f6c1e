package api

import (
	"DevTinder/internal/api/middleware"
	"DevTinder/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		userGroup := apiGroup.Group("/user")
		{
			// 无需登录即可访问的接口
			userGroup.POST("/login", group.UserHandler.Login)
			userGroup.POST("/register", group.UserHandler.Register)

			authGroup := userGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/logout", group.UserHandler.Logout)
				authGroup.GET("/info", group.UserHandler.GetUserInfo)
				authGroup.PUT("/info", group.UserHandler.UpdateUserInfo)
				authGroup.DELETE("/cancel", group.UserHandler.CancelUser)
			}
		}

		usersGroup := apiGroup.Group("/users")
		usersGroup.Use(middleware.AuthMiddleware())
		{
			usersGroup.GET("/discover", group.UserHandler.Discover)
		}

		matchGroup := apiGroup.Group("/matches")
		matchGroup.Use(middleware.AuthMiddleware())
		{
			matchGroup.POST("/like/:user_id", group.MatchHandler.Like)
			matchGroup.POST("/dislike/:user_id", group.MatchHandler.Dislike)
			matchGroup.GET("", group.MatchHandler.GetMatches)
			matchGroup.GET("/:match_id", group.MatchHandler.GetMatch)
			matchGroup.PUT("/:match_id/bookmark", group.MatchHandler.ToggleBookmark)
		}

		chatGroup := apiGroup.Group("/chat")
		chatGroup.Use(middleware.AuthMiddleware())
		{
			chatGroup.POST("/send", group.ChatHandler.SendMessage)
			chatGroup.GET("/conversation/:user_id", group.ChatHandler.GetOrCreateConversation)
			chatGroup.GET("/conversations", group.ChatHandler.GetConversations)
			chatGroup.GET("/history", group.ChatHandler.GetHistory)
			chatGroup.POST("/read", group.ChatHandler.MarkAsRead)
			chatGroup.DELETE("/message/:message_id", group.ChatHandler.DeleteMessage)
		}

		// websocket 自带 token 鉴权，不走 Auth 中间件
		apiGroup.GET("/ws", group.WSHandler.Connect)

		metricsGroup := apiGroup.Group("/metrics")
		metricsGroup.Use(middleware.AuthMiddleware())
		{
			metricsGroup.GET("/swipes/7d", group.MetricsHandler.GetSwipeTrend7d)
		}

		mediaGroup := apiGroup.Group("/media")
		{
			mediaGroup.Use(middleware.AuthMiddleware())
			mediaGroup.POST("/upload", group.MediaHandler.Upload)
		}
	}

	return r
}
