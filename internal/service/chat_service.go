package service

import (
	"DevTinder/internal/api/dto"
	"DevTinder/internal/model"
	"DevTinder/internal/pkg/consts"
	"DevTinder/internal/pkg/mongo"
	"DevTinder/internal/pkg/util"
	"DevTinder/internal/repository"
	"context"
	log "log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatService 聊天服务接口定义。REST 与 websocket 共用同一实现
type ChatService interface {
	SendMessage(ctx context.Context, senderID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error)
	GetOrCreateConversation(ctx context.Context, userID, targetUserID uint64) (uint64, error)
	GetHistory(ctx context.Context, userID uint64, convID uint64, beforeSeq uint64, pageSize int) ([]*dto.MessageDTO, error)
	GetConversations(ctx context.Context, userID uint64) ([]*dto.ConversationDTO, error)
	MarkAsRead(ctx context.Context, userID uint64, convID uint64) error
	DeleteMessage(ctx context.Context, senderID uint64, messageID string) error
	PublishTyping(ctx context.Context, userID uint64, convID uint64, stop bool) error
	MarkDelivered(ctx context.Context, convID uint64, receiverID uint64) error
	CheckMembership(ctx context.Context, userID uint64, convID uint64) error
	Close()
}

type chatServiceImpl struct {
	convRepo    repository.ConversationRepo
	matchRepo   repository.MatchRepo
	userRepo    repository.UserRepo
	messageRepo mongo.MessageRepo
	retryChan   chan *mongo.Message
	wg          sync.WaitGroup
	stopChan    chan struct{}
}

// NewChatService 构造函数：初始化服务并启动异步校准工作池
func NewChatService(convRepo repository.ConversationRepo, matchRepo repository.MatchRepo, userRepo repository.UserRepo, messageRepo mongo.MessageRepo) ChatService {
	s := &chatServiceImpl{
		convRepo:    convRepo,
		matchRepo:   matchRepo,
		userRepo:    userRepo,
		messageRepo: messageRepo,
		retryChan:   make(chan *mongo.Message, 2048),
		stopChan:    make(chan struct{}),
	}

	workerCount := 5
	s.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go s.calibrationWorker()
	}

	return s
}

// SendMessage 发送消息。MySQL 原子定序，消息体落 MongoDB，
// 实时推送尽力而为，失败不回滚已完成的写入
func (s *chatServiceImpl) SendMessage(ctx context.Context, senderID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	if strings.TrimSpace(req.Text) == "" && len(req.Attachments) == 0 {
		return nil, ErrMessageEmpty
	}

	convID := req.ConversationID
	receiverID := req.TargetUserID

	if convID == 0 {
		if receiverID == 0 {
			return nil, ErrParamInvalid
		}
		id, err := s.GetOrCreateConversation(ctx, senderID, receiverID)
		if err != nil {
			return nil, err
		}
		convID = id
	} else {
		conv, err := s.convRepo.GetConversation(ctx, convID)
		if err != nil {
			return nil, err
		}
		if conv == nil {
			return nil, ErrConversationNotFound
		}
		isMember, err := s.convRepo.IsMember(ctx, convID, senderID)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, ErrNotConversationMember
		}
		receiverID, err = util.ParsePeer(conv.PeerKey, senderID)
		if err != nil {
			return nil, err
		}
	}

	// 只有 matched 状态的配对才允许互发消息
	if err := s.requireMatched(ctx, senderID, receiverID); err != nil {
		return nil, err
	}

	// MySQL 原子定序 + 会话预览更新
	newSeq, err := s.convRepo.IncrMaxSeq(ctx, convID, previewOf(req.Text, req.Attachments), senderID)
	if err != nil {
		return nil, err
	}

	msgModel := &mongo.Message{
		ConversationID: convID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Text:           req.Text,
		Attachments:    toAttachmentModels(req.Attachments),
		Status:         mongo.MessageStatusSent,
		Seq:            newSeq,
		CreatedAt:      time.Now(),
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.messageRepo.SaveMessage(writeCtx, msgModel); err != nil {
		// 序号已分配成功，消息体转入异步校准通道补写
		select {
		case s.retryChan <- msgModel:
		default:
			log.Error("retry channel full, message body dropped", "conv_id", convID, "seq", newSeq)
		}
	}

	msgDTO := toMessageDTO(msgModel)
	s.publishMessageEvents(msgDTO, receiverID)
	return msgDTO, nil
}

// GetOrCreateConversation 获取或创建配对会话，要求双方处于 matched 状态
func (s *chatServiceImpl) GetOrCreateConversation(ctx context.Context, userID, targetUserID uint64) (uint64, error) {
	low, high, err := util.PairKey(userID, targetUserID)
	if err != nil {
		return 0, ErrParamInvalid
	}

	rec, err := s.matchRepo.GetByPair(ctx, low, high)
	if err != nil {
		return 0, err
	}
	if rec == nil || rec.Status != model.MatchStatusMatched {
		return 0, ErrNotMatched
	}
	if rec.ConversationID > 0 {
		return rec.ConversationID, nil
	}

	peerKey, err := util.PairString(low, high)
	if err != nil {
		return 0, err
	}
	conv := &model.Conversation{
		PeerKey:       peerKey,
		LastMessageAt: time.Now(),
	}
	created, err := s.convRepo.CreateConversation(ctx, conv, []uint64{low, high})
	if err != nil {
		return 0, err
	}
	if !created {
		existing, err := s.convRepo.GetConversationByPeerKey(ctx, peerKey)
		if err != nil {
			return 0, err
		}
		conv = existing
	}

	if err := s.matchRepo.SetConversation(ctx, rec.ID, conv.ID); err != nil {
		return 0, err
	}
	return conv.ID, nil
}

// GetHistory 按 seq 倒序分页拉取历史消息
func (s *chatServiceImpl) GetHistory(ctx context.Context, userID uint64, convID uint64, beforeSeq uint64, pageSize int) ([]*dto.MessageDTO, error) {
	isMember, err := s.convRepo.IsMember(ctx, convID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotConversationMember
	}

	models, err := s.messageRepo.GetHistory(ctx, convID, beforeSeq, pageSize)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.MessageDTO, 0, len(models))
	for _, m := range models {
		res = append(res, toMessageDTO(m))
	}
	return res, nil
}

// GetConversations 会话列表，未读数由 seq 差值在 SQL 中派生
func (s *chatServiceImpl) GetConversations(ctx context.Context, userID uint64) ([]*dto.ConversationDTO, error) {
	members, err := s.convRepo.GetUserConversationMemList(ctx, userID)
	if err != nil {
		return nil, err
	}

	peerIDs := make([]uint64, 0, len(members))
	for _, m := range members {
		peerID, err := util.ParsePeer(m.Conversation.PeerKey, userID)
		if err != nil {
			continue
		}
		peerIDs = append(peerIDs, peerID)
	}
	users, err := s.userRepo.GetUsersByIDs(ctx, peerIDs)
	if err != nil {
		return nil, err
	}
	userMap := make(map[uint64]*model.User, len(users))
	for _, u := range users {
		userMap[u.ID] = u
	}

	res := make([]*dto.ConversationDTO, 0, len(members))
	for _, m := range members {
		peerID, err := util.ParsePeer(m.Conversation.PeerKey, userID)
		if err != nil {
			continue
		}
		res = append(res, &dto.ConversationDTO{
			ConversationID: m.ConversationID,
			Peer:           toUserSimpleDTO(userMap[peerID]),
			LastMsgContent: m.Conversation.LastMsgContent,
			LastSenderID:   m.Conversation.LastSenderID,
			LastMessageAt:  m.Conversation.LastMessageAt,
			UnreadCount:    m.UnreadCount,
		})
	}
	return res, nil
}

// MarkAsRead 标记会话内发给自己的消息为已读，幂等。
// Mongo 状态批量前推，MySQL 已读进度推进到当前 max_msg_seq
func (s *chatServiceImpl) MarkAsRead(ctx context.Context, userID uint64, convID uint64) error {
	isMember, err := s.convRepo.IsMember(ctx, convID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrNotConversationMember
	}

	conv, err := s.convRepo.GetConversation(ctx, convID)
	if err != nil {
		return err
	}
	if conv == nil {
		return ErrConversationNotFound
	}

	readAt := time.Now()
	modified, err := s.messageRepo.MarkRead(ctx, convID, userID, readAt)
	if err != nil {
		return err
	}

	if err := s.convRepo.AdvanceReadSeq(ctx, convID, userID, conv.MaxMsgSeq); err != nil {
		return err
	}

	// 没有消息被翻转说明是重复调用，不再重复推送回执
	if modified == 0 {
		return nil
	}

	peerID, err := util.ParsePeer(conv.PeerKey, userID)
	if err != nil {
		return err
	}
	go s.publishReadReceipt(convID, userID, peerID, conv.MaxMsgSeq, readAt)
	return nil
}

// DeleteMessage 删除消息，仅限发送者本人。被删消息是会话预览时重算预览
func (s *chatServiceImpl) DeleteMessage(ctx context.Context, senderID uint64, messageID string) error {
	oid, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return ErrParamInvalid
	}

	msg, err := s.messageRepo.GetMessage(ctx, oid)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}
	if msg.SenderID != senderID {
		return ErrNotMessageSender
	}

	deleted, err := s.messageRepo.DeleteBySender(ctx, oid, senderID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrMessageNotFound
	}

	// 删除已经落地，预览修复失败必须让调用方感知并重试
	conv, err := s.convRepo.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		log.Error("load conversation for preview repair failed", "conv_id", msg.ConversationID, "err", err)
		return err
	}
	if conv == nil || conv.LastMsgSeq != msg.Seq {
		return nil
	}

	// 被删的正是预览消息，用现存最新一条重写，会话已空则清空预览
	latest, err := s.messageRepo.GetLatest(ctx, msg.ConversationID)
	if err != nil {
		return err
	}
	if latest == nil {
		return s.convRepo.UpdatePreview(ctx, msg.ConversationID, "", 0, 0, conv.CreatedAt)
	}
	return s.convRepo.UpdatePreview(ctx, msg.ConversationID,
		previewOfMessage(latest), latest.SenderID, latest.Seq, latest.CreatedAt)
}

// PublishTyping 输入状态透传，短暂事件不落库
func (s *chatServiceImpl) PublishTyping(ctx context.Context, userID uint64, convID uint64, stop bool) error {
	isMember, err := s.convRepo.IsMember(ctx, convID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrNotConversationMember
	}

	eventType := consts.EventUserTyping
	if stop {
		eventType = consts.EventUserStopTyping
	}
	data, err := json.Marshal(&dto.TypingDTO{
		Type:           eventType,
		ConversationID: convID,
		UserID:         userID,
	})
	if err != nil {
		return err
	}
	return publishFn(ctx, consts.IMConversationKey+strconv.FormatUint(convID, 10), data)
}

// MarkDelivered 在线推送成功后由实时层调用，置为已送达
func (s *chatServiceImpl) MarkDelivered(ctx context.Context, convID uint64, receiverID uint64) error {
	return s.messageRepo.MarkDelivered(ctx, convID, receiverID)
}

// CheckMembership 供实时层在订阅会话频道前做成员校验
func (s *chatServiceImpl) CheckMembership(ctx context.Context, userID uint64, convID uint64) error {
	isMember, err := s.convRepo.IsMember(ctx, convID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrNotConversationMember
	}
	return nil
}

func (s *chatServiceImpl) Close() {
	close(s.stopChan)
	s.wg.Wait()
	log.Info("ChatService shut down gracefully")
}

// publishMessageEvents 推送到会话频道与接收者个人频道
func (s *chatServiceImpl) publishMessageEvents(msg *dto.MessageDTO, receiverID uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if data, err := json.Marshal(&dto.MessageEventDTO{Type: consts.EventReceiveMessage, Message: msg}); err == nil {
		channel := consts.IMConversationKey + strconv.FormatUint(msg.ConversationID, 10)
		if err := publishFn(ctx, channel, data); err != nil {
			log.Error("publish receive_message failed", "channel", channel, "err", err)
		}
	}

	if data, err := json.Marshal(&dto.MessageEventDTO{Type: consts.EventNewMessage, Message: msg}); err == nil {
		channel := consts.IMUserKey + strconv.FormatUint(receiverID, 10)
		if err := publishFn(ctx, channel, data); err != nil {
			log.Error("publish new_message failed", "channel", channel, "err", err)
		}
	}
}

// publishReadReceipt 发布已读回执到对方个人频道
func (s *chatServiceImpl) publishReadReceipt(convID, fromUID, toPeerID, seq uint64, readAt time.Time) {
	receipt := &dto.ReadReceiptDTO{
		Type:           consts.EventMessagesRead,
		ConversationID: convID,
		UserID:         fromUID,
		ReadSeq:        seq,
		ReadAt:         readAt,
	}
	data, err := json.Marshal(receipt)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	channel := consts.IMUserKey + strconv.FormatUint(toPeerID, 10)
	if err := publishFn(ctx, channel, data); err != nil {
		log.Error("publish read receipt failed", "channel", channel, "err", err)
	}
}

// requireMatched 收发双方必须处于 matched 状态
func (s *chatServiceImpl) requireMatched(ctx context.Context, a, b uint64) error {
	low, high, err := util.PairKey(a, b)
	if err != nil {
		return ErrParamInvalid
	}
	rec, err := s.matchRepo.GetByPair(ctx, low, high)
	if err != nil {
		return err
	}
	if rec == nil || rec.Status != model.MatchStatusMatched {
		return ErrNotMatched
	}
	return nil
}

func (s *chatServiceImpl) calibrationWorker() {
	defer s.wg.Done()
	for {
		select {
		case msg := <-s.retryChan:
			backoff := time.Second
			for i := 0; i < 3; i++ {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := s.messageRepo.SaveMessage(ctx, msg)
				cancel()
				if err == nil {
					break
				}
				time.Sleep(backoff)
				backoff *= 2
			}
		case <-s.stopChan:
			return
		}
	}
}

// previewOf 计算会话预览文案，纯附件消息用占位符
func previewOf(text string, attachments []dto.AttachmentDTO) string {
	if strings.TrimSpace(text) != "" {
		return text
	}
	if len(attachments) == 0 {
		return ""
	}
	switch attachments[0].Type {
	case mongo.AttachmentTypeImage:
		return "[图片]"
	case mongo.AttachmentTypeCode:
		return "[代码片段]"
	default:
		return "[链接]"
	}
}

func previewOfMessage(m *mongo.Message) string {
	attachments := make([]dto.AttachmentDTO, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		attachments = append(attachments, dto.AttachmentDTO{Type: a.Type})
	}
	return previewOf(m.Text, attachments)
}

func toAttachmentModels(in []dto.AttachmentDTO) []mongo.Attachment {
	if len(in) == 0 {
		return nil
	}
	res := make([]mongo.Attachment, 0, len(in))
	for _, a := range in {
		res = append(res, mongo.Attachment{
			Type:     a.Type,
			URL:      a.URL,
			Preview:  a.Preview,
			Language: a.Language,
		})
	}
	return res
}

func toMessageDTO(m *mongo.Message) *dto.MessageDTO {
	d := &dto.MessageDTO{
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Text:           m.Text,
		Status:         m.Status,
		Seq:            m.Seq,
		ReadAt:         m.ReadAt,
		CreatedAt:      m.CreatedAt,
	}
	if !m.ID.IsZero() {
		d.ID = m.ID.Hex()
	}
	for _, a := range m.Attachments {
		d.Attachments = append(d.Attachments, dto.AttachmentDTO{
			Type:     a.Type,
			URL:      a.URL,
			Preview:  a.Preview,
			Language: a.Language,
		})
	}
	return d
}
