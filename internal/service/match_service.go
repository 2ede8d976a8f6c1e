package service

import (
	"DevTinder/internal/api/dto"
	"DevTinder/internal/model"
	"DevTinder/internal/pkg/consts"
	"DevTinder/internal/pkg/kafka"
	"DevTinder/internal/pkg/util"
	"DevTinder/internal/repository"
	"context"
	log "log/slog"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// MatchService 滑动匹配服务接口定义
type MatchService interface {
	Like(ctx context.Context, actorID, targetID uint64) (*dto.SwipeResultDTO, error)
	Dislike(ctx context.Context, actorID, targetID uint64) error
	GetMatches(ctx context.Context, userID uint64, limit, offset int) ([]*dto.MatchDTO, error)
	GetMatch(ctx context.Context, userID, matchID uint64) (*dto.MatchDTO, error)
	ToggleBookmark(ctx context.Context, userID, matchID uint64) error
}

type MatchServiceImpl struct {
	matchRepo repository.MatchRepo
	userRepo  repository.UserRepo
	convRepo  repository.ConversationRepo
	emitter   SwipeEmitter
}

func NewMatchService(matchRepo repository.MatchRepo, userRepo repository.UserRepo, convRepo repository.ConversationRepo, emitter SwipeEmitter) MatchService {
	return &MatchServiceImpl{
		matchRepo: matchRepo,
		userRepo:  userRepo,
		convRepo:  convRepo,
		emitter:   emitter,
	}
}

// Like 喜欢操作。状态流转: 无记录 -> pending；对方已 pending -> matched。
// 唯一索引是并发下唯一的串行化点，插入竞争失败后回读重判
func (s *MatchServiceImpl) Like(ctx context.Context, actorID, targetID uint64) (*dto.SwipeResultDTO, error) {
	low, high, err := s.checkPair(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	rec := &model.MatchRecord{
		UserLowID:   low,
		UserHighID:  high,
		InitiatorID: actorID,
		Status:      model.MatchStatusPending,
	}
	created, err := s.matchRepo.CreateIfAbsent(ctx, rec)
	if err != nil {
		return nil, err
	}
	if created {
		s.cacheLiked(ctx, actorID, targetID)
		s.emit(kafka.SwipeEventLike, actorID, targetID)
		return &dto.SwipeResultDTO{IsMatch: false, MatchID: rec.ID}, nil
	}

	// 已有记录（或并发插入竞争失败），回读判定
	rec, err = s.matchRepo.GetByPair(ctx, low, high)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, UnExpectedError
	}

	switch rec.Status {
	case model.MatchStatusPending:
		if rec.InitiatorID == actorID {
			// 重复喜欢，幂等返回
			return &dto.SwipeResultDTO{IsMatch: false, MatchID: rec.ID}, nil
		}
		return s.completeMatch(ctx, rec, actorID, targetID)
	case model.MatchStatusMatched:
		return nil, ErrAlreadyMatched
	default:
		return nil, ErrPairRejected
	}
}

// completeMatch 双向喜欢成立，pending -> matched 并懒创建会话
func (s *MatchServiceImpl) completeMatch(ctx context.Context, rec *model.MatchRecord, actorID, targetID uint64) (*dto.SwipeResultDTO, error) {
	matchedAt := time.Now()
	ok, err := s.matchRepo.MarkMatched(ctx, rec.ID, rec.InitiatorID, matchedAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 守卫条件未命中：状态已被并发请求推进，回读判定终态
		cur, err := s.matchRepo.GetByID(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		if cur != nil && cur.Status == model.MatchStatusMatched {
			return &dto.SwipeResultDTO{IsMatch: true, MatchID: cur.ID, ConversationID: cur.ConversationID}, nil
		}
		return nil, ErrPairRejected
	}

	convID, err := s.ensureConversation(ctx, rec)
	if err != nil {
		return nil, err
	}

	s.cacheLiked(ctx, actorID, targetID)
	s.cacheMatched(ctx, actorID, targetID, matchedAt)
	s.emit(kafka.SwipeEventLike, actorID, targetID)
	s.emit(kafka.SwipeEventMatch, actorID, targetID)
	s.notifyMatchCreated(ctx, rec.ID, convID, actorID, targetID, matchedAt)

	return &dto.SwipeResultDTO{IsMatch: true, MatchID: rec.ID, ConversationID: convID}, nil
}

// Dislike 不喜欢操作，直接进入终态 rejected，永不复活
func (s *MatchServiceImpl) Dislike(ctx context.Context, actorID, targetID uint64) error {
	low, high, err := s.checkPair(ctx, actorID, targetID)
	if err != nil {
		return err
	}

	rec := &model.MatchRecord{
		UserLowID:   low,
		UserHighID:  high,
		InitiatorID: actorID,
		Status:      model.MatchStatusRejected,
	}
	created, err := s.matchRepo.CreateIfAbsent(ctx, rec)
	if err != nil {
		return err
	}
	if created {
		s.emit(kafka.SwipeEventPass, actorID, targetID)
		return nil
	}

	rec, err = s.matchRepo.GetByPair(ctx, low, high)
	if err != nil {
		return err
	}
	if rec == nil {
		return UnExpectedError
	}

	switch rec.Status {
	case model.MatchStatusPending:
		if rec.InitiatorID == actorID {
			// 自己先前的喜欢仍然有效，不喜欢不撤回喜欢
			return nil
		}
		ok, err := s.matchRepo.MarkRejected(ctx, rec.ID)
		if err != nil {
			return err
		}
		if !ok {
			// 竞态：对方的喜欢可能已先完成匹配
			cur, err := s.matchRepo.GetByID(ctx, rec.ID)
			if err != nil {
				return err
			}
			if cur != nil && cur.Status == model.MatchStatusMatched {
				return ErrAlreadyMatched
			}
			return nil
		}
		s.emit(kafka.SwipeEventPass, actorID, targetID)
		return nil
	case model.MatchStatusMatched:
		return ErrAlreadyMatched
	default:
		// 重复拒绝，幂等返回
		return nil
	}
}

// GetMatches 配对列表，装配对手方资料与关联会话的未读/预览
func (s *MatchServiceImpl) GetMatches(ctx context.Context, userID uint64, limit, offset int) ([]*dto.MatchDTO, error) {
	recs, err := s.matchRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	otherIDs := make([]uint64, 0, len(recs))
	convIDs := make([]uint64, 0, len(recs))
	for _, rec := range recs {
		otherIDs = append(otherIDs, rec.OtherUser(userID))
		if rec.ConversationID > 0 {
			convIDs = append(convIDs, rec.ConversationID)
		}
	}

	users, err := s.userRepo.GetUsersByIDs(ctx, otherIDs)
	if err != nil {
		return nil, err
	}
	userMap := make(map[uint64]*model.User, len(users))
	for _, u := range users {
		userMap[u.ID] = u
	}

	memMap, err := s.convRepo.GetMembersByConvIDs(ctx, convIDs, userID)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.MatchDTO, 0, len(recs))
	for _, rec := range recs {
		res = append(res, s.toMatchDTO(rec, userID, userMap[rec.OtherUser(userID)], memMap[rec.ConversationID]))
	}
	return res, nil
}

// GetMatch 单条配对详情，非成员不可见
func (s *MatchServiceImpl) GetMatch(ctx context.Context, userID, matchID uint64) (*dto.MatchDTO, error) {
	rec, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrMatchNotFound
	}
	if !rec.HasMember(userID) {
		return nil, ErrNotPairMember
	}

	other, err := s.userRepo.GetUserByID(ctx, rec.OtherUser(userID))
	if err != nil {
		return nil, err
	}

	var mem *model.ConversationMember
	if rec.ConversationID > 0 {
		memMap, err := s.convRepo.GetMembersByConvIDs(ctx, []uint64{rec.ConversationID}, userID)
		if err != nil {
			return nil, err
		}
		mem = memMap[rec.ConversationID]
	}
	return s.toMatchDTO(rec, userID, other, mem), nil
}

// ToggleBookmark 翻转操作方一侧的书签，不影响对方视角
func (s *MatchServiceImpl) ToggleBookmark(ctx context.Context, userID, matchID uint64) error {
	rec, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrMatchNotFound
	}
	if !rec.HasMember(userID) {
		return ErrNotPairMember
	}
	return s.matchRepo.ToggleBookmark(ctx, matchID, rec.UserLowID == userID)
}

// checkPair 公共前置校验：规范化配对并确认目标用户可交互
func (s *MatchServiceImpl) checkPair(ctx context.Context, actorID, targetID uint64) (uint64, uint64, error) {
	low, high, err := util.PairKey(actorID, targetID)
	if err != nil {
		if actorID == targetID && actorID != 0 {
			return 0, 0, ErrSwipeSelf
		}
		return 0, 0, ErrParamInvalid
	}

	target, err := s.userRepo.GetUserByID(ctx, targetID)
	if err != nil {
		return 0, 0, err
	}
	if target == nil || target.IsDelete {
		return 0, 0, ErrUserNotFound
	}
	if target.IsBan {
		return 0, 0, ErrUserBan
	}
	return low, high, nil
}

// ensureConversation 懒创建配对会话，peer_key 唯一索引兜底并发
func (s *MatchServiceImpl) ensureConversation(ctx context.Context, rec *model.MatchRecord) (uint64, error) {
	peerKey, err := util.PairString(rec.UserLowID, rec.UserHighID)
	if err != nil {
		return 0, err
	}

	conv := &model.Conversation{
		PeerKey:       peerKey,
		LastMessageAt: time.Now(),
	}
	created, err := s.convRepo.CreateConversation(ctx, conv, []uint64{rec.UserLowID, rec.UserHighID})
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

// notifyMatchCreated 向双方个人频道推送匹配成功事件
func (s *MatchServiceImpl) notifyMatchCreated(ctx context.Context, matchID, convID, actorID, targetID uint64, matchedAt time.Time) {
	users, err := s.userRepo.GetUsersByIDs(ctx, []uint64{actorID, targetID})
	if err != nil {
		log.Error("load users for match notify failed", "err", err)
		return
	}
	userMap := make(map[uint64]*model.User, len(users))
	for _, u := range users {
		userMap[u.ID] = u
	}

	push := func(toUID, otherUID uint64) {
		payload := &dto.MatchCreatedDTO{
			Type:           consts.EventMatchCreated,
			MatchID:        matchID,
			ConversationID: convID,
			OtherUser:      toUserSimpleDTO(userMap[otherUID]),
			MatchedAt:      matchedAt,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		channel := consts.IMUserKey + strconv.FormatUint(toUID, 10)
		if err := publishFn(ctx, channel, data); err != nil {
			log.Error("publish match_created failed", "channel", channel, "err", err)
		}
	}
	push(actorID, targetID)
	push(targetID, actorID)
}

func (s *MatchServiceImpl) cacheLiked(ctx context.Context, actorID, targetID uint64) {
	key := consts.UserLikedKey + strconv.FormatUint(actorID, 10)
	if err := cacheZAdd(ctx, key, float64(time.Now().Unix()), strconv.FormatUint(targetID, 10)); err != nil {
		log.Error("cache liked failed", "key", key, "err", err)
	}
}

func (s *MatchServiceImpl) cacheMatched(ctx context.Context, actorID, targetID uint64, matchedAt time.Time) {
	score := float64(matchedAt.Unix())
	for _, pair := range [][2]uint64{{actorID, targetID}, {targetID, actorID}} {
		key := consts.UserMatchedKey + strconv.FormatUint(pair[0], 10)
		if err := cacheZAdd(ctx, key, score, strconv.FormatUint(pair[1], 10)); err != nil {
			log.Error("cache matched failed", "key", key, "err", err)
		}
	}
}

func (s *MatchServiceImpl) emit(eventType string, actorID, targetID uint64) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(eventType, actorID, targetID)
}

func (s *MatchServiceImpl) toMatchDTO(rec *model.MatchRecord, userID uint64, other *model.User, mem *model.ConversationMember) *dto.MatchDTO {
	d := &dto.MatchDTO{
		MatchID:        rec.ID,
		OtherUser:      toUserSimpleDTO(other),
		Status:         matchStatusText(rec.Status),
		IsBookmarked:   rec.BookmarkedBy(userID),
		ConversationID: rec.ConversationID,
		MatchedAt:      rec.MatchedAt,
	}
	if mem != nil {
		d.UnreadCount = mem.UnreadCount
		d.LastMessage = mem.Conversation.LastMsgContent
		if !mem.Conversation.LastMessageAt.IsZero() {
			at := mem.Conversation.LastMessageAt
			d.LastMessageAt = &at
		}
	}
	return d
}

func matchStatusText(status int8) string {
	switch status {
	case model.MatchStatusPending:
		return "pending"
	case model.MatchStatusMatched:
		return "matched"
	case model.MatchStatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}
