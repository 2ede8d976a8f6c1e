package util

import (
	"errors"
	"fmt"
)

var ErrInvalidPair = errors.New("配对需要两个不同的有效用户ID")

// PairKey 将两个用户 ID 归一化为升序对，配对关系与操作方向无关
func PairKey(a, b uint64) (low uint64, high uint64, err error) {
	if a == 0 || b == 0 || a == b {
		return 0, 0, ErrInvalidPair
	}
	if a < b {
		return a, b, nil
	}
	return b, a, nil
}

// PairString 生成 low_high 形式的唯一键，作为会话与匹配记录的自然约束
func PairString(a, b uint64) (string, error) {
	low, high, err := PairKey(a, b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d_%d", low, high), nil
}

// ParsePeer 从 low_high 键中解析出对手方 ID
func ParsePeer(pairKey string, currentUserID uint64) (uint64, error) {
	var u1, u2 uint64
	if _, err := fmt.Sscanf(pairKey, "%d_%d", &u1, &u2); err != nil {
		return 0, err
	}
	if u1 == currentUserID {
		return u2, nil
	}
	return u1, nil
}
