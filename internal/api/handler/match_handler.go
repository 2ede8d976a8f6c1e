package handler

import (
	"DevTinder/internal/pkg/response"
	"DevTinder/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type MatchHandler struct {
	matchSvc service.MatchService
}

func NewMatchHandler(matchSvc service.MatchService) *MatchHandler {
	return &MatchHandler{matchSvc: matchSvc}
}

// Like 喜欢目标用户
func (s *MatchHandler) Like(c *gin.Context) {
	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	actorID := c.GetUint64("user_id")
	res, err := s.matchSvc.Like(c.Request.Context(), actorID, targetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Dislike 不喜欢目标用户，终态操作
func (s *MatchHandler) Dislike(c *gin.Context) {
	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	actorID := c.GetUint64("user_id")
	if err := s.matchSvc.Dislike(c.Request.Context(), actorID, targetID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// GetMatches 配对列表
func (s *MatchHandler) GetMatches(c *gin.Context) {
	userID := c.GetUint64("user_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	res, err := s.matchSvc.GetMatches(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetMatch 单条配对详情
func (s *MatchHandler) GetMatch(c *gin.Context) {
	matchID, err := strconv.ParseUint(c.Param("match_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	res, err := s.matchSvc.GetMatch(c.Request.Context(), userID, matchID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// ToggleBookmark 翻转当前用户一侧的书签
func (s *MatchHandler) ToggleBookmark(c *gin.Context) {
	matchID, err := strconv.ParseUint(c.Param("match_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	if err := s.matchSvc.ToggleBookmark(c.Request.Context(), userID, matchID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
