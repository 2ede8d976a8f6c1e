package service

import (
	"DevTinder/internal/model"
	"DevTinder/internal/pkg/mongo"
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

// ---- Redis 副作用桩 ----

type publishedEvent struct {
	Channel string
	Payload []byte
}

type publishRecorder struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *publishRecorder) add(channel string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, _ := payload.([]byte)
	p.events = append(p.events, publishedEvent{Channel: channel, Payload: data})
}

func (p *publishRecorder) byChannel(channel string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var res []publishedEvent
	for _, e := range p.events {
		if e.Channel == channel {
			res = append(res, e)
		}
	}
	return res
}

func (p *publishRecorder) countContaining(channel, substr string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Channel == channel && strings.Contains(string(e.Payload), substr) {
			n++
		}
	}
	return n
}

// stubRedis 把包级 Redis 间接层替换为内存实现，测试结束后还原
func stubRedis(t *testing.T) *publishRecorder {
	t.Helper()
	rec := &publishRecorder{}

	origPublish, origZAdd, origGet, origSet, origDel := publishFn, cacheZAdd, cacheGet, cacheSet, cacheDel
	publishFn = func(ctx context.Context, channel string, payload interface{}) error {
		rec.add(channel, payload)
		return nil
	}
	cacheZAdd = func(ctx context.Context, key string, score float64, member string) error { return nil }
	cacheGet = func(ctx context.Context, key string) (string, error) { return "", nil }
	cacheSet = func(ctx context.Context, key string, value interface{}, expiration time.Duration) error { return nil }
	cacheDel = func(ctx context.Context, key string) error { return nil }

	t.Cleanup(func() {
		publishFn, cacheZAdd, cacheGet, cacheSet, cacheDel = origPublish, origZAdd, origGet, origSet, origDel
	})
	return rec
}

// ---- Kafka 事件桩 ----

type fakeEmitter struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeEmitter) Emit(eventType string, actorID, targetID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
}

func (f *fakeEmitter) count(eventType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == eventType {
			n++
		}
	}
	return n
}

// ---- 用户仓储桩 ----

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uint64]*model.User{}}
}

func (f *fakeUserRepo) addUser(nickname string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	username := nickname
	f.users[id] = &model.User{
		ID:       id,
		Username: &username,
		UserDetail: model.UserDetail{
			UserID:   id,
			Nickname: nickname,
		},
	}
	return id
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *model.User, detail *model.UserDetail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username != nil && user.Username != nil && *u.Username == *user.Username {
			return errors.New("duplicate username")
		}
	}
	f.nextID++
	user.ID = f.nextID
	detail.UserID = user.ID
	user.UserDetail = *detail
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id uint64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username != nil && *u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetUsersByIDs(ctx context.Context, ids []uint64) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*model.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			cp := *u
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (f *fakeUserRepo) UpdateUserDetail(ctx context.Context, detail *model.UserDetail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[detail.UserID]; ok {
		u.UserDetail = *detail
	}
	return nil
}

func (f *fakeUserRepo) ListCandidates(ctx context.Context, userID uint64, limit, offset int) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*model.User
	for _, u := range f.users {
		if u.ID == userID || u.IsBan || u.IsDelete {
			continue
		}
		cp := *u
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (f *fakeUserRepo) MarkDeleted(ctx context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.IsDelete = true
	}
	return nil
}

// ---- 配对仓储桩 ----

type fakeMatchRepo struct {
	mu     sync.Mutex
	nextID uint64
	recs   map[uint64]*model.MatchRecord
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{recs: map[uint64]*model.MatchRecord{}}
}

func (f *fakeMatchRepo) findPair(low, high uint64) *model.MatchRecord {
	for _, r := range f.recs {
		if r.UserLowID == low && r.UserHighID == high {
			return r
		}
	}
	return nil
}

func (f *fakeMatchRepo) CreateIfAbsent(ctx context.Context, rec *model.MatchRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findPair(rec.UserLowID, rec.UserHighID) != nil {
		return false, nil
	}
	f.nextID++
	rec.ID = f.nextID
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	cp := *rec
	f.recs[rec.ID] = &cp
	return true, nil
}

func (f *fakeMatchRepo) GetByPair(ctx context.Context, lowID, highID uint64) (*model.MatchRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.findPair(lowID, highID)
	if r == nil {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeMatchRepo) GetByID(ctx context.Context, id uint64) (*model.MatchRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recs[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeMatchRepo) MarkMatched(ctx context.Context, id uint64, expectInitiator uint64, matchedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recs[id]
	if !ok || r.Status != model.MatchStatusPending || r.InitiatorID != expectInitiator {
		return false, nil
	}
	r.Status = model.MatchStatusMatched
	at := matchedAt
	r.MatchedAt = &at
	r.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeMatchRepo) MarkRejected(ctx context.Context, id uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recs[id]
	if !ok || r.Status != model.MatchStatusPending {
		return false, nil
	}
	r.Status = model.MatchStatusRejected
	r.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeMatchRepo) SetConversation(ctx context.Context, id uint64, convID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.recs[id]; ok && r.Status == model.MatchStatusMatched {
		r.ConversationID = convID
	}
	return nil
}

func (f *fakeMatchRepo) ToggleBookmark(ctx context.Context, id uint64, lowSide bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if lowSide {
		r.LowBookmarked = 1 - r.LowBookmarked
	} else {
		r.HighBookmarked = 1 - r.HighBookmarked
	}
	return nil
}

func (f *fakeMatchRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]*model.MatchRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*model.MatchRecord
	for _, r := range f.recs {
		if r.UserLowID == userID || r.UserHighID == userID {
			cp := *r
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].UpdatedAt.After(res[j].UpdatedAt) })
	if offset >= len(res) {
		return nil, nil
	}
	res = res[offset:]
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (f *fakeMatchRepo) DeleteRejectedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, r := range f.recs {
		if r.Status == model.MatchStatusRejected && r.UpdatedAt.Before(cutoff) {
			delete(f.recs, id)
			deleted++
		}
	}
	return deleted, nil
}

// ---- 会话仓储桩 ----

type fakeConvRepo struct {
	mu      sync.Mutex
	nextID  uint64
	convs   map[uint64]*model.Conversation
	byPeer  map[string]uint64
	members map[uint64]map[uint64]*model.ConversationMember

	// getConvErr 模拟会话查询时的底层故障
	getConvErr error
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{
		convs:   map[uint64]*model.Conversation{},
		byPeer:  map[string]uint64{},
		members: map[uint64]map[uint64]*model.ConversationMember{},
	}
}

func (f *fakeConvRepo) CreateConversation(ctx context.Context, conv *model.Conversation, memberIDs []uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byPeer[conv.PeerKey]; exists {
		return false, nil
	}
	f.nextID++
	conv.ID = f.nextID
	cp := *conv
	f.convs[conv.ID] = &cp
	f.byPeer[conv.PeerKey] = conv.ID
	f.members[conv.ID] = map[uint64]*model.ConversationMember{}
	for _, uid := range memberIDs {
		f.members[conv.ID][uid] = &model.ConversationMember{
			ConversationID: conv.ID,
			UserID:         uid,
			JoinedAt:       time.Now(),
		}
	}
	return true, nil
}

func (f *fakeConvRepo) GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getConvErr != nil {
		return nil, f.getConvErr
	}
	c, ok := f.convs[convID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConvRepo) GetConversationByPeerKey(ctx context.Context, peerKey string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byPeer[peerKey]
	if !ok {
		return &model.Conversation{}, gorm.ErrRecordNotFound
	}
	cp := *f.convs[id]
	return &cp, nil
}

func (f *fakeConvRepo) IsMember(ctx context.Context, convID uint64, userID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.members[convID][userID]
	return ok, nil
}

func (f *fakeConvRepo) IncrMaxSeq(ctx context.Context, convID uint64, preview string, senderID uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[convID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	c.MaxMsgSeq++
	c.LastMsgContent = preview
	c.LastSenderID = senderID
	c.LastMsgSeq = c.MaxMsgSeq
	c.LastMessageAt = time.Now()
	if m, ok := f.members[convID][senderID]; ok && m.ReadMsgSeq < c.MaxMsgSeq {
		m.ReadMsgSeq = c.MaxMsgSeq
	}
	return c.MaxMsgSeq, nil
}

func (f *fakeConvRepo) AdvanceReadSeq(ctx context.Context, convID, userID, seq uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[convID][userID]
	if ok && m.ReadMsgSeq < seq {
		m.ReadMsgSeq = seq
	}
	return nil
}

func (f *fakeConvRepo) UpdatePreview(ctx context.Context, convID uint64, content string, senderID uint64, seq uint64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[convID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.LastMsgContent = content
	c.LastSenderID = senderID
	c.LastMsgSeq = seq
	c.LastMessageAt = at
	return nil
}

func (f *fakeConvRepo) memberView(convID, userID uint64) *model.ConversationMember {
	m, ok := f.members[convID][userID]
	if !ok {
		return nil
	}
	c := f.convs[convID]
	cp := *m
	cp.Conversation = *c
	cp.UnreadCount = c.MaxMsgSeq - m.ReadMsgSeq
	return &cp
}

func (f *fakeConvRepo) GetUserConversationMemList(ctx context.Context, userID uint64) ([]*model.ConversationMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*model.ConversationMember
	for convID, mems := range f.members {
		if _, ok := mems[userID]; ok {
			res = append(res, f.memberView(convID, userID))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Conversation.LastMessageAt.After(res[j].Conversation.LastMessageAt)
	})
	return res, nil
}

func (f *fakeConvRepo) GetMembersByConvIDs(ctx context.Context, convIDs []uint64, userID uint64) (map[uint64]*model.ConversationMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := map[uint64]*model.ConversationMember{}
	for _, convID := range convIDs {
		if m := f.memberView(convID, userID); m != nil {
			res[convID] = m
		}
	}
	return res, nil
}

// ---- 消息仓储桩 ----

type fakeMessageRepo struct {
	mu   sync.Mutex
	msgs []*mongo.Message
}

func newFakeMessageRepo() *fakeMessageRepo { return &fakeMessageRepo{} }

func (f *fakeMessageRepo) SaveMessage(ctx context.Context, msg *mongo.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	cp := *msg
	f.msgs = append(f.msgs, &cp)
	return nil
}

func (f *fakeMessageRepo) GetMessage(ctx context.Context, id primitive.ObjectID) (*mongo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeMessageRepo) GetHistory(ctx context.Context, convID uint64, beforeSeq uint64, pageSize int) ([]*mongo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*mongo.Message
	for _, m := range f.msgs {
		if m.ConversationID != convID {
			continue
		}
		if beforeSeq > 0 && m.Seq >= beforeSeq {
			continue
		}
		cp := *m
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Seq > res[j].Seq })
	if pageSize > 0 && len(res) > pageSize {
		res = res[:pageSize]
	}
	return res, nil
}

func (f *fakeMessageRepo) GetLatest(ctx context.Context, convID uint64) (*mongo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *mongo.Message
	for _, m := range f.msgs {
		if m.ConversationID != convID {
			continue
		}
		if latest == nil || m.Seq > latest.Seq {
			latest = m
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeMessageRepo) MarkRead(ctx context.Context, convID uint64, receiverID uint64, readAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var modified int64
	for _, m := range f.msgs {
		if m.ConversationID == convID && m.ReceiverID == receiverID &&
			(m.Status == mongo.MessageStatusSent || m.Status == mongo.MessageStatusDelivered) {
			m.Status = mongo.MessageStatusRead
			at := readAt
			m.ReadAt = &at
			modified++
		}
	}
	return modified, nil
}

func (f *fakeMessageRepo) MarkDelivered(ctx context.Context, convID uint64, receiverID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ConversationID == convID && m.ReceiverID == receiverID && m.Status == mongo.MessageStatusSent {
			m.Status = mongo.MessageStatusDelivered
		}
	}
	return nil
}

func (f *fakeMessageRepo) DeleteBySender(ctx context.Context, id primitive.ObjectID, senderID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.msgs {
		if m.ID == id && m.SenderID == senderID {
			f.msgs = append(f.msgs[:i], f.msgs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
