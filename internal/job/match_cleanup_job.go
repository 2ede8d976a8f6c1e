package job

import (
	"DevTinder/internal/repository"
	"context"
	log "log/slog"
	"time"
)

// 被拒配对的保留期，超期后由维护任务清理。
// 正常业务路径从不删除配对记录，这里是唯一的删除入口。
const rejectedRetention = 180 * 24 * time.Hour

// MatchCleanupJob 清理长期处于 rejected 状态的配对记录
type MatchCleanupJob struct {
	matchRepo repository.MatchRepo
}

func NewMatchCleanupJob(matchRepo repository.MatchRepo) *MatchCleanupJob {
	return &MatchCleanupJob{matchRepo: matchRepo}
}

func (s *MatchCleanupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-rejectedRetention)
	deleted, err := s.matchRepo.DeleteRejectedBefore(ctx, cutoff)
	if err != nil {
		log.Error("match cleanup job failed", "err", err)
		return
	}
	log.Info("match cleanup job finished", "deleted", deleted, "cutoff", cutoff)
}
