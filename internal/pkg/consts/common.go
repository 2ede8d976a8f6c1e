package consts

const (
	MimePrefixImage = "image"
)

// 推送到客户端的实时事件类型
const (
	EventMatchCreated   = "match_created"
	EventReceiveMessage = "receive_message"
	EventNewMessage     = "new_message"
	EventMessagesRead   = "messages_read"
	EventUserTyping     = "user_typing"
	EventUserStopTyping = "user_stop_typing"
)

const (
	DefaultAvatarURL = "default_avatar.png"
)
