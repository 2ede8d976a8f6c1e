package service

import (
	"DevTinder/internal/api/dto"
	"DevTinder/internal/model"
	"DevTinder/internal/pkg/consts"
	"DevTinder/internal/repository"
	"context"
	log "log/slog"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// SwipeMetricService 滑动指标查询服务
type SwipeMetricService interface {
	GetLast7Days(ctx context.Context, userID uint64) (*dto.SwipeTrendDTO, error)
}

type SwipeMetricServiceImpl struct {
	metricRepo repository.SwipeMetricRepo
}

func NewSwipeMetricService(metricRepo repository.SwipeMetricRepo) SwipeMetricService {
	return &SwipeMetricServiceImpl{metricRepo: metricRepo}
}

// GetLast7Days 近 7 天滑动趋势，短 TTL 缓存容忍消费延迟
func (s *SwipeMetricServiceImpl) GetLast7Days(ctx context.Context, userID uint64) (*dto.SwipeTrendDTO, error) {
	key := consts.SwipeMetrics7dKey + strconv.FormatUint(userID, 10)
	if value, err := cacheGet(ctx, key); err == nil && value != "" {
		trend := &dto.SwipeTrendDTO{}
		if err = json.Unmarshal([]byte(value), trend); err == nil {
			return trend, nil
		}
	}

	now := time.Now()
	fromDay := now.AddDate(0, 0, -6).Format("2006-01-02")
	toDay := now.Format("2006-01-02")

	rows, err := s.metricRepo.GetRange(ctx, userID, fromDay, toDay)
	if err != nil {
		return nil, err
	}
	rowMap := make(map[string]*model.SwipeDailyMetric, len(rows))
	for _, row := range rows {
		rowMap[row.Day] = row
	}

	// 逐天补零，缺失日期也要有数据点
	list := make([]*dto.SwipeMetricDTO, 0, 7)
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		point := &dto.SwipeMetricDTO{Date: day}
		if row, ok := rowMap[day]; ok {
			point.LikesSent = int(row.LikesSent)
			point.LikesReceived = int(row.LikesReceived)
			point.PassesSent = int(row.PassesSent)
			point.Matches = int(row.Matches)
		}
		list = append(list, point)
	}

	trend := &dto.SwipeTrendDTO{UserID: userID, Days: 7, List: list}
	if data, err := json.Marshal(trend); err == nil {
		if err = cacheSet(ctx, key, data, time.Minute); err != nil {
			log.Error("cache swipe trend failed", "key", key, "err", err)
		}
	}
	return trend, nil
}
