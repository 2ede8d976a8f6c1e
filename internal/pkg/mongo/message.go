package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 消息投递状态，只允许向前推进
const (
	MessageStatusSent      int8 = 1
	MessageStatusDelivered int8 = 2
	MessageStatusRead      int8 = 3
)

// 附件类型
const (
	AttachmentTypeImage = "image"
	AttachmentTypeLink  = "link"
	AttachmentTypeCode  = "code"
)

// Message MongoDB 消息明细模型
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID uint64             `bson:"conversation_id" json:"conversationId"` // 关联 MySQL 的会话 ID
	SenderID       uint64             `bson:"sender_id" json:"senderId"`
	ReceiverID     uint64             `bson:"receiver_id" json:"receiverId"`
	Text           string             `bson:"text" json:"text"`
	Attachments    []Attachment       `bson:"attachments,omitempty" json:"attachments"`
	Status         int8               `bson:"status" json:"status"`                // 1-已发送, 2-已送达, 3-已读
	Seq            uint64             `bson:"seq" json:"seq"`                      // 会话内唯一绝对序号 (来自 MySQL 定序)
	ReadAt         *time.Time         `bson:"read_at,omitempty" json:"readAt"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
}

// Attachment 结构化附件
type Attachment struct {
	Type     string `bson:"type" json:"type"` // image | link | code
	URL      string `bson:"url" json:"url"`
	Preview  string `bson:"preview,omitempty" json:"preview,omitempty"`
	Language string `bson:"language,omitempty" json:"language,omitempty"` // code 附件的语言标识
}
