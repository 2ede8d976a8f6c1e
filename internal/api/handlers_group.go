package api

import "DevTinder/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	UserHandler    *handler.UserHandler
	MatchHandler   *handler.MatchHandler
	ChatHandler    *handler.ChatHandler
	WSHandler      *handler.WsHandler
	MediaHandler   *handler.MediaHandler
	MetricsHandler *handler.MetricsHandler
}
