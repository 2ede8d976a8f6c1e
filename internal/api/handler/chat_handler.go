package handler

import (
	"DevTinder/internal/api/dto"
	"DevTinder/internal/pkg/response"
	"DevTinder/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatSvc service.ChatService
}

func NewChatHandler(chatSvc service.ChatService) *ChatHandler {
	return &ChatHandler{chatSvc: chatSvc}
}

// SendMessage 发送消息接口
func (s *ChatHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	senderID := c.GetUint64("user_id")
	res, err := s.chatSvc.SendMessage(c.Request.Context(), senderID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetOrCreateConversation 获取或创建与目标用户的会话，要求双方已匹配
func (s *ChatHandler) GetOrCreateConversation(c *gin.Context) {
	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	convID, err := s.chatSvc.GetOrCreateConversation(c.Request.Context(), userID, targetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"conversation_id": convID})
}

// GetHistory 获取历史消息，seq 倒序分页
func (s *ChatHandler) GetHistory(c *gin.Context) {
	convID, _ := strconv.ParseUint(c.Query("conversation_id"), 10, 64)
	beforeSeq, _ := strconv.ParseUint(c.Query("before_seq"), 10, 64)
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if convID == 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	userID := c.GetUint64("user_id")
	res, err := s.chatSvc.GetHistory(c.Request.Context(), userID, convID, beforeSeq, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetConversations 获取会话列表
func (s *ChatHandler) GetConversations(c *gin.Context) {
	userID := c.GetUint64("user_id")
	res, err := s.chatSvc.GetConversations(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// MarkAsRead 标记会话已读接口
func (s *ChatHandler) MarkAsRead(c *gin.Context) {
	var req dto.MarkAsReadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	if err := s.chatSvc.MarkAsRead(c.Request.Context(), userID, req.ConversationID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// DeleteMessage 删除自己发送的消息
func (s *ChatHandler) DeleteMessage(c *gin.Context) {
	messageID := c.Param("message_id")
	if messageID == "" {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	if err := s.chatSvc.DeleteMessage(c.Request.Context(), userID, messageID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
