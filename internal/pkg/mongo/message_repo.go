package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepo interface {
	SaveMessage(ctx context.Context, msg *Message) error
	GetMessage(ctx context.Context, id primitive.ObjectID) (*Message, error)
	GetHistory(ctx context.Context, convID uint64, beforeSeq uint64, pageSize int) ([]*Message, error)
	GetLatest(ctx context.Context, convID uint64) (*Message, error)
	MarkRead(ctx context.Context, convID uint64, receiverID uint64, readAt time.Time) (int64, error)
	MarkDelivered(ctx context.Context, convID uint64, receiverID uint64) error
	DeleteBySender(ctx context.Context, id primitive.ObjectID, senderID uint64) (bool, error)
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{
		col: db.Collection("message"),
	}
}

// SaveMessage 将消息存入 MongoDB
func (s *messageRepoImpl) SaveMessage(ctx context.Context, msg *Message) error {
	res, err := s.col.InsertOne(ctx, msg)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid
	}
	return nil
}

// GetMessage 按 ID 精确查询
func (s *messageRepoImpl) GetMessage(ctx context.Context, id primitive.ObjectID) (*Message, error) {
	var msg Message
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// GetHistory 历史消息查询逻辑
// beforeSeq 为当前页面最旧一条消息的序号。如果是第一页，传 0。
func (s *messageRepoImpl) GetHistory(ctx context.Context, convID uint64, beforeSeq uint64, pageSize int) ([]*Message, error) {
	filter := bson.M{"conversation_id": convID}

	// 游标过滤：找比当前最旧序号更小的消息
	if beforeSeq > 0 {
		filter["seq"] = bson.M{"$lt": beforeSeq}
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "seq", Value: -1}}).
		SetLimit(int64(pageSize))

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var messages []*Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

// GetLatest 获取会话中现存最新的一条消息，会话为空时返回 nil
func (s *messageRepoImpl) GetLatest(ctx context.Context, convID uint64) (*Message, error) {
	var msg Message
	opts := options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}})
	err := s.col.FindOne(ctx, bson.M{"conversation_id": convID}, opts).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// MarkRead 批量推进已读状态。过滤条件保证状态只向前，不会回退
func (s *messageRepoImpl) MarkRead(ctx context.Context, convID uint64, receiverID uint64, readAt time.Time) (int64, error) {
	filter := bson.M{
		"conversation_id": convID,
		"receiver_id":     receiverID,
		"status":          bson.M{"$in": []int8{MessageStatusSent, MessageStatusDelivered}},
	}
	update := bson.M{"$set": bson.M{"status": MessageStatusRead, "read_at": readAt}}

	res, err := s.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// MarkDelivered 在线推送成功后将未读消息标记为已送达
func (s *messageRepoImpl) MarkDelivered(ctx context.Context, convID uint64, receiverID uint64) error {
	filter := bson.M{
		"conversation_id": convID,
		"receiver_id":     receiverID,
		"status":          MessageStatusSent,
	}
	_, err := s.col.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"status": MessageStatusDelivered}})
	return err
}

// DeleteBySender 删除消息，仅允许原发送者删除
func (s *messageRepoImpl) DeleteBySender(ctx context.Context, id primitive.ObjectID, senderID uint64) (bool, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id, "sender_id": senderID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
