package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
)

var (
	ErrParamInvalid            = errors.New("参数错误")
	ErrUserNotFound            = errors.New("用户不存在")
	ErrUserBan                 = errors.New("用户已被封禁")
	ErrUserExist               = errors.New("用户已存在")
	ErrUserUsernameExist       = errors.New("用户名已存在")
	ErrPasswordIncorrect       = errors.New("密码错误")
	ErrMissingLoginCredentials = errors.New("缺少登录凭据")
	ErrFileNotSupported        = errors.New("不支持的文件类型")
	ErrSwipeSelf               = errors.New("不能对自己进行滑动操作")
	ErrAlreadyMatched          = errors.New("双方已经匹配")
	ErrPairRejected            = errors.New("该配对已被拒绝")
	ErrMatchNotFound           = errors.New("配对记录不存在")
	ErrNotMatched              = errors.New("双方尚未匹配")
	ErrNotPairMember           = errors.New("不是该配对的成员")
	ErrConversationNotFound    = errors.New("会话不存在")
	ErrNotConversationMember   = errors.New("不是该会话的成员")
	ErrMessageNotFound         = errors.New("消息不存在")
	ErrNotMessageSender        = errors.New("只能删除自己发送的消息")
	ErrMessageEmpty            = errors.New("消息内容不能为空")
	UnauthorizedError          = errors.New("权限不足")
	UnExpectedError            = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:            BadRequest,
	ErrUserNotFound:            NotFound,
	ErrUserBan:                 Unauthorized,
	ErrUserExist:               BadRequest,
	ErrUserUsernameExist:       BadRequest,
	ErrPasswordIncorrect:       Unauthorized,
	ErrMissingLoginCredentials: Unauthorized,
	ErrFileNotSupported:        BadRequest,
	ErrSwipeSelf:               BadRequest,
	ErrAlreadyMatched:          Conflict,
	ErrPairRejected:            Conflict,
	ErrMatchNotFound:           NotFound,
	ErrNotMatched:              Forbidden,
	ErrNotPairMember:           Forbidden,
	ErrConversationNotFound:    NotFound,
	ErrNotConversationMember:   Forbidden,
	ErrMessageNotFound:         NotFound,
	ErrNotMessageSender:        Forbidden,
	ErrMessageEmpty:            BadRequest,
	UnauthorizedError:          Unauthorized,
	UnExpectedError:            InternalServerError,
}
