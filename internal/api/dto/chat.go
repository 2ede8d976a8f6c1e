package dto

import "time"

// AttachmentDTO 结构化附件
type AttachmentDTO struct {
	Type     string `json:"type" binding:"required,oneof=image link code"`
	URL      string `json:"url" binding:"required"`
	Preview  string `json:"preview,omitempty"`
	Language string `json:"language,omitempty"`
}

// SendMessageReq 发送消息请求体。conversation_id 与 target_user_id 至少给一个
type SendMessageReq struct {
	ConversationID uint64          `json:"conversation_id"`
	TargetUserID   uint64          `json:"target_user_id"`
	Text           string          `json:"text"`
	Attachments    []AttachmentDTO `json:"attachments,omitempty" validate:"omitempty,dive"`
}

// MessageDTO 消息明细响应
type MessageDTO struct {
	ID             string          `json:"id"`
	ConversationID uint64          `json:"conversation_id"`
	SenderID       uint64          `json:"sender_id"`
	ReceiverID     uint64          `json:"receiver_id"`
	Text           string          `json:"text"`
	Attachments    []AttachmentDTO `json:"attachments,omitempty"`
	Status         int8            `json:"status"` // 1-已发送, 2-已送达, 3-已读
	Seq            uint64          `json:"seq"`
	ReadAt         *time.Time      `json:"read_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ConversationDTO 会话列表项响应
type ConversationDTO struct {
	ConversationID uint64         `json:"conversation_id"`
	Peer           *UserSimpleDTO `json:"peer"`
	LastMsgContent string         `json:"last_msg_content"`
	LastSenderID   uint64         `json:"last_sender_id"`
	LastMessageAt  time.Time      `json:"last_message_at"`
	UnreadCount    uint64         `json:"unread_count"`
}

// MarkAsReadReq 标记会话已读请求
type MarkAsReadReq struct {
	ConversationID uint64 `json:"conversation_id" binding:"required"`
}

// ReadReceiptDTO 已读回执推送
type ReadReceiptDTO struct {
	Type           string    `json:"type"`
	ConversationID uint64    `json:"conversation_id"`
	UserID         uint64    `json:"user_id"`
	ReadSeq        uint64    `json:"read_seq"`
	ReadAt         time.Time `json:"read_at"`
}

// TypingDTO 输入状态推送，短暂事件不落库
type TypingDTO struct {
	Type           string `json:"type"`
	ConversationID uint64 `json:"conversation_id"`
	UserID         uint64 `json:"user_id"`
}

// MessageEventDTO 新消息实时推送信封
type MessageEventDTO struct {
	Type    string      `json:"type"`
	Message *MessageDTO `json:"message"`
}

// ClientFrame websocket 客户端上行帧
type ClientFrame struct {
	Type           string          `json:"type"` // send_message | mark_read | typing | stop_typing | join_conversation
	ConversationID uint64          `json:"conversation_id,omitempty"`
	TargetUserID   uint64          `json:"target_user_id,omitempty"`
	Text           string          `json:"text,omitempty"`
	Attachments    []AttachmentDTO `json:"attachments,omitempty"`
}
