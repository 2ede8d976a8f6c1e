package handler

import (
	"DevTinder/internal/api/dto"
	"DevTinder/internal/pkg/consts"
	"DevTinder/internal/pkg/redis"
	"DevTinder/internal/pkg/response"
	"DevTinder/internal/pkg/security"
	"DevTinder/internal/service"
	"context"
	log "log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct {
	chatSvc service.ChatService
}

func NewWsHandler(chatSvc service.ChatService) *WsHandler {
	return &WsHandler{chatSvc: chatSvc}
}

// Connect 建立 websocket 连接。上行帧与 REST 走同一个 ChatService，
// 下行由 Redis 订阅中继
func (s *WsHandler) Connect(c *gin.Context) {
	// 鉴权
	token := c.Query("token")
	if token == "" {
		response.Error(c, service.UnauthorizedError)
		return
	}
	claims, err := security.ValidateToken(token)
	if err != nil {
		log.Warn("WS 鉴权失败", "err", err)
		response.Error(c, service.UnauthorizedError)
		return
	}
	userID := claims.UserID

	// 升级 Websocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	// 订阅个人频道 + 用户参与的所有会话频道
	channels := []string{consts.IMUserKey + strconv.FormatUint(userID, 10)}
	list, err := s.chatSvc.GetConversations(context.Background(), userID)
	if err != nil {
		log.Error("获取会话列表失败", "user_id", userID, "err", err)
		return
	}
	for _, conv := range list {
		channels = append(channels, consts.IMConversationKey+strconv.FormatUint(conv.ConversationID, 10))
	}

	pubsub := redis.Subscribe(context.Background(), channels...)
	defer func() {
		_ = pubsub.Close()
	}()

	log.Info("用户 WS 连接已建立", "user_id", userID, "channels", len(channels))

	stopChan := make(chan struct{})

	// 读循环：处理客户端上行帧，连接断开时退出
	go func() {
		defer close(stopChan)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.handleClientFrame(userID, data, pubsub)
		}
	}()

	// 写循环：监听 Redis 并推送至客户端
	redisCh := pubsub.Channel()
	for {
		select {
		case msg := <-redisCh:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Error("WS 推送失败", "user_id", userID, "err", err)
				return
			}
			s.afterPush(userID, msg.Payload, pubsub)
		case <-stopChan:
			log.Info("用户 WS 连接已断开", "user_id", userID)
			return
		}
	}
}

// handleClientFrame 分发客户端上行帧
func (s *WsHandler) handleClientFrame(userID uint64, data []byte, pubsub *goredis.PubSub) {
	var frame dto.ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Warn("WS 上行帧解析失败", "user_id", userID, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch frame.Type {
	case "send_message":
		req := &dto.SendMessageReq{
			ConversationID: frame.ConversationID,
			TargetUserID:   frame.TargetUserID,
			Text:           frame.Text,
			Attachments:    frame.Attachments,
		}
		if _, err := s.chatSvc.SendMessage(ctx, userID, req); err != nil {
			log.Warn("WS 发送消息失败", "user_id", userID, "err", err)
		}
	case "mark_read":
		if err := s.chatSvc.MarkAsRead(ctx, userID, frame.ConversationID); err != nil {
			log.Warn("WS 标记已读失败", "user_id", userID, "err", err)
		}
	case "typing":
		_ = s.chatSvc.PublishTyping(ctx, userID, frame.ConversationID, false)
	case "stop_typing":
		_ = s.chatSvc.PublishTyping(ctx, userID, frame.ConversationID, true)
	case "join_conversation":
		// 连接期间新建立的会话需要显式加入，先做成员校验
		if err := s.chatSvc.CheckMembership(ctx, userID, frame.ConversationID); err != nil {
			log.Warn("WS 加入会话被拒", "user_id", userID, "conversation_id", frame.ConversationID, "err", err)
			return
		}
		s.subscribeConversation(ctx, userID, frame.ConversationID, pubsub)
	default:
		log.Warn("WS 未知上行帧类型", "user_id", userID, "type", frame.Type)
	}
}

// pushEnvelope 下行事件的公共字段，按类型取用
type pushEnvelope struct {
	Type           string          `json:"type"`
	ConversationID uint64          `json:"conversation_id"`
	Message        *dto.MessageDTO `json:"message"`
}

// afterPush 下行事件送达后的本地动作：新消息置为已送达，
// 连接期间产生的新匹配自动订阅其会话频道
func (s *WsHandler) afterPush(userID uint64, payload string, pubsub *goredis.PubSub) {
	var event pushEnvelope
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	switch event.Type {
	case consts.EventNewMessage:
		if event.Message == nil {
			return
		}
		if err := s.chatSvc.MarkDelivered(ctx, event.Message.ConversationID, userID); err != nil {
			log.Warn("标记已送达失败", "user_id", userID, "err", err)
		}
	case consts.EventMatchCreated:
		if event.ConversationID > 0 {
			s.subscribeConversation(ctx, userID, event.ConversationID, pubsub)
		}
	}
}

func (s *WsHandler) subscribeConversation(ctx context.Context, userID, convID uint64, pubsub *goredis.PubSub) {
	channel := consts.IMConversationKey + strconv.FormatUint(convID, 10)
	if err := pubsub.Subscribe(ctx, channel); err != nil {
		log.Error("WS 订阅会话频道失败", "user_id", userID, "channel", channel, "err", err)
	}
}
