package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes 注册全部 /api 路由。
func RegisterRoutes(r *gin.Engine, chat *ChatHandler, corpus *CorpusHandler) {
	api := r.Group("/api")
	{
		api.POST("/chat", chat.Chat)
		api.GET("/chat/ws", chat.Websocket)
		api.POST("/session/clear", chat.ClearSession)
		api.POST("/reload", corpus.Reload)
		api.GET("/health", corpus.Health)
	}
}
