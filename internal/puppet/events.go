package puppet

import "github.com/wechatferry/ferry/internal/model"

// EventKind 生命周期事件类型
type EventKind string

const (
	EventLogin      EventKind = "login"
	EventLogout     EventKind = "logout"
	EventReady      EventKind = "ready"
	EventMessage    EventKind = "message"
	EventRoomInvite EventKind = "room-invite"
	EventError      EventKind = "error"
	EventDong       EventKind = "dong"
)

// Event 对上层暴露的生命周期事件
// 消息类事件只带消息 ID,载荷通过 MessagePayload 按需取
type Event struct {
	Kind      EventKind
	MessageID string
	User      *model.UserInfo
	Data      string
	Err       error
}
