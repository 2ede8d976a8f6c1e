package consts

const (
	UserInfoKey        = "user:info:"
	UserLikedKey       = "user:liked:"
	UserMatchedKey     = "user:matched:"
	SwipeMetrics7dKey  = "swipe:metrics:7days:"
	IMUserKey          = "im:user:"
	IMConversationKey  = "im:conversation:"
	SwipeActionLockKey = "swipe:lock:"
)
