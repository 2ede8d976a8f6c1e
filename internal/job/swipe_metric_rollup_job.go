package job

import (
	"DevTinder/internal/repository"
	"context"
	log "log/slog"
	"time"
)

// 滑动指标明细保留 90 天
const metricRetentionDays = 90

// SwipeMetricRollupJob 归档清理过期的按天滑动指标
type SwipeMetricRollupJob struct {
	metricRepo repository.SwipeMetricRepo
}

func NewSwipeMetricRollupJob(metricRepo repository.SwipeMetricRepo) *SwipeMetricRollupJob {
	return &SwipeMetricRollupJob{metricRepo: metricRepo}
}

func (s *SwipeMetricRollupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -metricRetentionDays).Format("2006-01-02")
	deleted, err := s.metricRepo.DeleteBefore(ctx, cutoff)
	if err != nil {
		log.Error("swipe metric rollup job failed", "err", err)
		return
	}
	log.Info("swipe metric rollup job finished", "deleted", deleted, "cutoff", cutoff)
}
