package handler

import (
	"DevTinder/internal/api/dto"
	"DevTinder/internal/pkg/response"
	"DevTinder/internal/service"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userSvc service.UserService
}

func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// Register 用户注册接口
func (s *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	if err := s.userSvc.Register(c.Request.Context(), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Login 用户登录接口，成功返回 JWT
func (s *UserHandler) Login(c *gin.Context) {
	var req dto.LoginDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	token, err := s.userSvc.Login(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"token": token})
}

// Logout 注销接口，token 签名进入黑名单
func (s *UserHandler) Logout(c *gin.Context) {
	token := strings.TrimPrefix(c.Request.Header.Get("Authorization"), "Bearer ")

	if err := s.userSvc.Logout(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// GetUserInfo 获取当前登录用户资料
func (s *UserHandler) GetUserInfo(c *gin.Context) {
	userID := c.GetUint64("user_id")

	res, err := s.userSvc.GetUserInfo(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// UpdateUserInfo 更新当前登录用户资料
func (s *UserHandler) UpdateUserInfo(c *gin.Context) {
	var req dto.UserDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	if err := s.userSvc.UpdateUserInfo(c.Request.Context(), userID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// CancelUser 注销账号，软删除后立即吊销当前 token
func (s *UserHandler) CancelUser(c *gin.Context) {
	userID := c.GetUint64("user_id")

	if err := s.userSvc.CancelUser(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}

	token := strings.TrimPrefix(c.Request.Header.Get("Authorization"), "Bearer ")
	if err := s.userSvc.Logout(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Discover 推荐候选列表
func (s *UserHandler) Discover(c *gin.Context) {
	userID := c.GetUint64("user_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	res, err := s.userSvc.Discover(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
