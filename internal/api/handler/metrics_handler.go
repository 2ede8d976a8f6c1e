package handler

import (
	"DevTinder/internal/pkg/response"
	"DevTinder/internal/service"

	"github.com/gin-gonic/gin"
)

type MetricsHandler struct {
	metricSvc service.SwipeMetricService
}

func NewMetricsHandler(metricSvc service.SwipeMetricService) *MetricsHandler {
	return &MetricsHandler{metricSvc: metricSvc}
}

// GetSwipeTrend7d 近 7 天滑动指标趋势
func (s *MetricsHandler) GetSwipeTrend7d(c *gin.Context) {
	userID := c.GetUint64("user_id")

	res, err := s.metricSvc.GetLast7Days(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
