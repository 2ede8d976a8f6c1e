package service

import (
	"DevTinder/internal/model"
	"DevTinder/internal/pkg/consts"
	"DevTinder/internal/pkg/kafka"
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type matchFixture struct {
	svc       MatchService
	matchRepo *fakeMatchRepo
	userRepo  *fakeUserRepo
	convRepo  *fakeConvRepo
	emitter   *fakeEmitter
	rec       *publishRecorder
	alice     uint64
	bob       uint64
}

func newMatchFixture(t *testing.T) *matchFixture {
	t.Helper()
	f := &matchFixture{
		matchRepo: newFakeMatchRepo(),
		userRepo:  newFakeUserRepo(),
		convRepo:  newFakeConvRepo(),
		emitter:   &fakeEmitter{},
		rec:       stubRedis(t),
	}
	f.svc = NewMatchService(f.matchRepo, f.userRepo, f.convRepo, f.emitter)
	f.alice = f.userRepo.addUser("alice")
	f.bob = f.userRepo.addUser("bob")
	return f
}

func TestLikeCreatesPendingRecord(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	res, err := f.svc.Like(ctx, f.alice, f.bob)
	require.NoError(t, err)
	assert.False(t, res.IsMatch)
	assert.NotZero(t, res.MatchID)

	rec, err := f.matchRepo.GetByPair(ctx, f.alice, f.bob)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.MatchStatusPending, rec.Status)
	assert.Equal(t, f.alice, rec.InitiatorID)
	assert.Equal(t, 1, f.emitter.count(kafka.SwipeEventLike))
}

func TestLikeIsIdempotent(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	first, err := f.svc.Like(ctx, f.alice, f.bob)
	require.NoError(t, err)
	second, err := f.svc.Like(ctx, f.alice, f.bob)
	require.NoError(t, err)

	assert.Equal(t, first.MatchID, second.MatchID)
	assert.False(t, second.IsMatch)
	// 重复喜欢不产生第二条记录，也不重复上报事件
	assert.Len(t, f.matchRepo.recs, 1)
	assert.Equal(t, 1, f.emitter.count(kafka.SwipeEventLike))
}

func TestMutualLikeCreatesMatchAndConversation(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	_, err := f.svc.Like(ctx, f.alice, f.bob)
	require.NoError(t, err)

	res, err := f.svc.Like(ctx, f.bob, f.alice)
	require.NoError(t, err)
	assert.True(t, res.IsMatch)
	require.NotZero(t, res.ConversationID)

	rec, err := f.matchRepo.GetByPair(ctx, f.alice, f.bob)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusMatched, rec.Status)
	assert.Equal(t, res.ConversationID, rec.ConversationID)
	require.NotNil(t, rec.MatchedAt)

	// 会话由两人共享，且双方都是成员
	for _, uid := range []uint64{f.alice, f.bob} {
		ok, err := f.convRepo.IsMember(ctx, res.ConversationID, uid)
		require.NoError(t, err)
		assert.True(t, ok, "user %d should be a conversation member", uid)
	}

	// 双方个人频道各收到一条 match_created
	for _, uid := range []uint64{f.alice, f.bob} {
		channel := consts.IMUserKey + strconv.FormatUint(uid, 10)
		assert.Equal(t, 1, f.rec.countContaining(channel, consts.EventMatchCreated))
	}

	assert.Equal(t, 1, f.emitter.count(kafka.SwipeEventMatch))
	assert.Equal(t, 2, f.emitter.count(kafka.SwipeEventLike))
}

func TestLikeOrderIndependence(t *testing.T) {
	// 谁先谁后不影响落库形态：同一无序对始终只有一行
	f := newMatchFixture(t)
	ctx := context.Background()

	_, err := f.svc.Like(ctx, f.bob, f.alice)
	require.NoError(t, err)
	res, err := f.svc.Like(ctx, f.alice, f.bob)
	require.NoError(t, err)

	assert.True(t, res.IsMatch)
	assert.Len(t, f.matchRepo.recs, 1)

	rec, _ := f.matchRepo.GetByPair(ctx, f.alice, f.bob)
	assert.Equal(t, f.bob, rec.InitiatorID)
}

func TestLikeAfterMatchedConflicts(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	_, err := f.svc.Like(ctx, f.alice, f.bob)
	require.NoError(t, err)
	_, err = f.svc.Like(ctx, f.bob, f.alice)
	require.NoError(t, err)

	_, err = f.svc.Like(ctx, f.alice, f.bob)
	assert.ErrorIs(t, err, ErrAlreadyMatched)
}

func TestFirstActionDislikeIsTerminal(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Dislike(ctx, f.alice, f.bob))

	rec, err := f.matchRepo.GetByPair(ctx, f.alice, f.bob)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusRejected, rec.Status)
	assert.Equal(t, 1, f.emitter.count(kafka.SwipeEventPass))

	t.Run("subsequent like is refused", func(t *testing.T) {
		_, err := f.svc.Like(ctx, f.bob, f.alice)
		assert.ErrorIs(t, err, ErrPairRejected)
	})

	t.Run("repeated dislike is a no-op", func(t *testing.T) {
		require.NoError(t, f.svc.Dislike(ctx, f.bob, f.alice))
		assert.Len(t, f.matchRepo.recs, 1)
	})
}

func TestDislikeOnPendingFromOtherRejects(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	_, err := f.svc.Like(ctx, f.alice, f.bob)
	require.NoError(t, err)
	require.NoError(t, f.svc.Dislike(ctx, f.bob, f.alice))

	rec, _ := f.matchRepo.GetByPair(ctx, f.alice, f.bob)
	assert.Equal(t, model.MatchStatusRejected, rec.Status)
}

func TestDislikeKeepsOwnPendingLike(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	_, err := f.svc.Like(ctx, f.alice, f.bob)
	require.NoError(t, err)
	// 自己先喜欢后又不喜欢：喜欢不撤回
	require.NoError(t, f.svc.Dislike(ctx, f.alice, f.bob))

	rec, _ := f.matchRepo.GetByPair(ctx, f.alice, f.bob)
	assert.Equal(t, model.MatchStatusPending, rec.Status)

	// 对方仍可完成匹配
	res, err := f.svc.Like(ctx, f.bob, f.alice)
	require.NoError(t, err)
	assert.True(t, res.IsMatch)
}

func TestDislikeAfterMatchedConflicts(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	_, err := f.svc.Like(ctx, f.alice, f.bob)
	require.NoError(t, err)
	_, err = f.svc.Like(ctx, f.bob, f.alice)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Dislike(ctx, f.alice, f.bob), ErrAlreadyMatched)
}

func TestSwipeValidation(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	t.Run("self swipe", func(t *testing.T) {
		_, err := f.svc.Like(ctx, f.alice, f.alice)
		assert.ErrorIs(t, err, ErrSwipeSelf)
	})

	t.Run("zero id", func(t *testing.T) {
		_, err := f.svc.Like(ctx, f.alice, 0)
		assert.ErrorIs(t, err, ErrParamInvalid)
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := f.svc.Like(ctx, f.alice, 999)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("banned target", func(t *testing.T) {
		banned := f.userRepo.addUser("banned")
		f.userRepo.users[banned].IsBan = true
		_, err := f.svc.Like(ctx, f.alice, banned)
		assert.ErrorIs(t, err, ErrUserBan)
	})

	t.Run("deleted target", func(t *testing.T) {
		gone := f.userRepo.addUser("gone")
		require.NoError(t, f.userRepo.MarkDeleted(ctx, gone))
		_, err := f.svc.Like(ctx, f.alice, gone)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestConcurrentMutualLikeSingleRecord(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = f.svc.Like(ctx, f.alice, f.bob)
	}()
	go func() {
		defer wg.Done()
		_, _ = f.svc.Like(ctx, f.bob, f.alice)
	}()
	wg.Wait()

	// 唯一索引语义保证无序对至多一行，终态只可能是 pending 或 matched
	assert.Len(t, f.matchRepo.recs, 1)
	rec, err := f.matchRepo.GetByPair(ctx, f.alice, f.bob)
	require.NoError(t, err)
	assert.Contains(t, []int8{model.MatchStatusPending, model.MatchStatusMatched}, rec.Status)
}

func TestGetMatchesAssemblesPeerAndUnread(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	_, err := f.svc.Like(ctx, f.alice, f.bob)
	require.NoError(t, err)
	res, err := f.svc.Like(ctx, f.bob, f.alice)
	require.NoError(t, err)

	// 产生两条未读消息后再看列表
	_, err = f.convRepo.IncrMaxSeq(ctx, res.ConversationID, "hi", f.bob)
	require.NoError(t, err)
	_, err = f.convRepo.IncrMaxSeq(ctx, res.ConversationID, "there", f.bob)
	require.NoError(t, err)

	list, err := f.svc.GetMatches(ctx, f.alice, 20, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	m := list[0]
	assert.Equal(t, "matched", m.Status)
	assert.Equal(t, res.ConversationID, m.ConversationID)
	require.NotNil(t, m.OtherUser)
	assert.Equal(t, f.bob, m.OtherUser.UserID)
	assert.Equal(t, "bob", m.OtherUser.Nickname)
	assert.Equal(t, uint64(2), m.UnreadCount)
	assert.Equal(t, "there", m.LastMessage)
	require.NotNil(t, m.MatchedAt)
}

func TestGetMatchMembershipGate(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()
	carol := f.userRepo.addUser("carol")

	res, err := f.svc.Like(ctx, f.alice, f.bob)
	require.NoError(t, err)

	t.Run("member sees detail", func(t *testing.T) {
		d, err := f.svc.GetMatch(ctx, f.alice, res.MatchID)
		require.NoError(t, err)
		assert.Equal(t, "pending", d.Status)
	})

	t.Run("outsider is rejected", func(t *testing.T) {
		_, err := f.svc.GetMatch(ctx, carol, res.MatchID)
		assert.ErrorIs(t, err, ErrNotPairMember)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := f.svc.GetMatch(ctx, f.alice, 404)
		assert.ErrorIs(t, err, ErrMatchNotFound)
	})
}

func TestToggleBookmarkPerSide(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	res, err := f.svc.Like(ctx, f.alice, f.bob)
	require.NoError(t, err)

	require.NoError(t, f.svc.ToggleBookmark(ctx, f.alice, res.MatchID))
	d, err := f.svc.GetMatch(ctx, f.alice, res.MatchID)
	require.NoError(t, err)
	assert.True(t, d.IsBookmarked)

	// 书签是单侧视角，对方不受影响
	d, err = f.svc.GetMatch(ctx, f.bob, res.MatchID)
	require.NoError(t, err)
	assert.False(t, d.IsBookmarked)

	// 再翻转一次回到未收藏
	require.NoError(t, f.svc.ToggleBookmark(ctx, f.alice, res.MatchID))
	d, err = f.svc.GetMatch(ctx, f.alice, res.MatchID)
	require.NoError(t, err)
	assert.False(t, d.IsBookmarked)
}
