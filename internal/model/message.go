package model

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"
)

const (
	// MessageTypeText 文本
	MessageTypeText = 1

	// MessageTypeImage 图片
	MessageTypeImage = 3

	// MessageTypeVoice 语音
	MessageTypeVoice = 34

	// MessageTypeCard 名片
	MessageTypeCard = 42

	// MessageTypeVideo 视频
	MessageTypeVideo = 43

	// MessageTypeAnimation 动画表情
	MessageTypeAnimation = 47

	// MessageTypeLocation 位置
	MessageTypeLocation = 48

	// MessageTypeShare 分享，子类型见 appmsg XML
	MessageTypeShare = 49

	// MessageTypeInvite 入群邀请，需配合内容标记判断
	MessageTypeInvite = 14

	// MessageTypeSystem 系统消息，群成员变更
	MessageTypeSystem = 10000

	// MessageTypeSystemExt 系统消息扩展，群成员变更
	MessageTypeSystemExt = 10002
)

const (
	// MessageSubTypeLink 链接分享
	MessageSubTypeLink = 4

	// MessageSubTypeLink2 链接分享
	MessageSubTypeLink2 = 5

	// MessageSubTypeFile 文件
	MessageSubTypeFile = 6

	// MessageSubTypeMiniProgram 小程序
	MessageSubTypeMiniProgram = 33

	// MessageSubTypeMiniProgram2 小程序
	MessageSubTypeMiniProgram2 = 36
)

// InviteMarker 入群邀请消息的内容标记
const InviteMarker = "邀请你加入群聊"

// MessageType 规范化后的消息类型
type MessageType int

const (
	MessageUnknown MessageType = iota
	MessageText
	MessageImage
	MessageVideo
	MessageAudio
	MessageAttachment
	MessageEmoticon
	MessageURL
	MessageMiniProgram
	MessageLocation
	MessageContactCard
	MessageRoomInvite
	MessageRoomOp
)

func (t MessageType) String() string {
	switch t {
	case MessageText:
		return "text"
	case MessageImage:
		return "image"
	case MessageVideo:
		return "video"
	case MessageAudio:
		return "audio"
	case MessageAttachment:
		return "attachment"
	case MessageEmoticon:
		return "emoticon"
	case MessageURL:
		return "url"
	case MessageMiniProgram:
		return "miniProgram"
	case MessageLocation:
		return "location"
	case MessageContactCard:
		return "contactCard"
	case MessageRoomInvite:
		return "roomInvite"
	case MessageRoomOp:
		return "roomOp"
	}
	return "unknown"
}

// RawMessage wcferry 回调推送的原始消息
type RawMessage struct {
	IsSelf  bool   `json:"is_self"`
	IsGroup bool   `json:"is_group"`
	ID      int64  `json:"id"`
	Type    int64  `json:"type"`
	Ts      int64  `json:"ts"`
	RoomID  string `json:"roomid"`
	Content string `json:"content"`
	Sender  string `json:"sender"`
	Sign    string `json:"sign"`
	Thumb   string `json:"thumb"`
	Extra   string `json:"extra"`
	XML     string `json:"xml"`
}

// IsRoomOp 是否为群成员变更类系统消息
func (m *RawMessage) IsRoomOp() bool {
	return m.Type == MessageTypeSystem || m.Type == MessageTypeSystemExt
}

// IsRoomInvite 是否为入群邀请消息
func (m *RawMessage) IsRoomInvite() bool {
	return m.Type == MessageTypeInvite && strings.Contains(m.Content, InviteMarker)
}

// UserInfo 登录账号信息
type UserInfo struct {
	WxID         string `json:"wxid"`
	Name         string `json:"name"`
	Mobile       string `json:"mobile"`
	Home         string `json:"home"`
	BigHeadURL   string `json:"big_head_url"`
	SmallHeadURL string `json:"small_head_url"`
}

// Message 规范化后的消息，入缓存后不再修改
// RoomID 与 ListenerID 恰好只有一个非空
type Message struct {
	ID         string      `json:"id"`
	Type       MessageType `json:"type"`
	Text       string      `json:"text"`
	TalkerID   string      `json:"talkerId"`
	ListenerID string      `json:"listenerId"`
	RoomID     string      `json:"roomId"`
	Timestamp  int64       `json:"timestamp"`
}

// appMsg 类型 49 消息的 appmsg XML，只取子类型判断所需字段
type appMsg struct {
	XMLName xml.Name `xml:"msg"`
	App     struct {
		Type  int    `xml:"type"`
		Title string `xml:"title"`
		URL   string `xml:"url"`
	} `xml:"appmsg"`
}

// NormalizeMessage 将原始消息规范化为领域消息
// 类型 49 需要预解析 appmsg XML 以区分链接、文件和小程序
func NormalizeMessage(raw *RawMessage) *Message {
	content := raw.Content
	msgType := MessageUnknown

	switch raw.Type {
	case MessageTypeText:
		msgType = MessageText
	case MessageTypeImage:
		msgType = MessageImage
	case MessageTypeVoice:
		msgType = MessageAudio
	case MessageTypeCard:
		msgType = MessageContactCard
	case MessageTypeVideo:
		msgType = MessageVideo
	case MessageTypeAnimation:
		msgType = MessageEmoticon
	case MessageTypeLocation:
		msgType = MessageLocation
	case MessageTypeShare:
		msgType = normalizeAppMsg(content)
	case MessageTypeInvite:
		if raw.IsRoomInvite() {
			msgType = MessageRoomInvite
		}
	case MessageTypeSystem, MessageTypeSystemExt:
		msgType = MessageRoomOp
	}

	roomID := ""
	if raw.IsGroup {
		roomID = raw.RoomID
	}

	listenerID := ""
	if roomID == "" {
		listenerID = raw.Sender
	}

	ts := raw.Ts
	if ts == 0 {
		ts = time.Now().Unix()
	}

	return &Message{
		ID:         strconv.FormatInt(raw.ID, 10),
		Type:       msgType,
		Text:       content,
		TalkerID:   raw.Sender,
		ListenerID: listenerID,
		RoomID:     roomID,
		Timestamp:  ts,
	}
}

func normalizeAppMsg(content string) MessageType {
	var msg appMsg
	if err := xml.Unmarshal([]byte(content), &msg); err != nil {
		return MessageURL
	}
	switch msg.App.Type {
	case MessageSubTypeFile:
		return MessageAttachment
	case MessageSubTypeMiniProgram, MessageSubTypeMiniProgram2:
		return MessageMiniProgram
	case MessageSubTypeLink, MessageSubTypeLink2:
		return MessageURL
	}
	return MessageURL
}

// CREATE TABLE MSG (
// localId INTEGER PRIMARY KEY AUTOINCREMENT,
// TalkerId INT DEFAULT 0,
// MsgSvrID INT,
// Type INT,
// SubType INT,
// IsSender INT,
// CreateTime INT,
// StrTalker TEXT,
// StrContent TEXT,
// BytesExtra BLOB,
// ... )
//
// HistoryMessageRow 是历史消息查询结果行
type HistoryMessageRow struct {
	LocalID      int64  `json:"localId"`
	TalkerID     int64  `json:"TalkerId"`
	MsgSvrID     int64  `json:"MsgSvrID"`
	Type         int64  `json:"Type"`
	SubType      int64  `json:"SubType"`
	IsSender     int    `json:"IsSender"`
	CreateTime   int64  `json:"CreateTime"`
	Sequence     int64  `json:"Sequence"`
	StatusEx     int64  `json:"StatusEx"`
	FlagEx       int64  `json:"FlagEx"`
	Status       int64  `json:"Status"`
	MsgServerSeq int64  `json:"MsgServerSeq"`
	MsgSequence  int64  `json:"MsgSequence"`
	StrTalker    string `json:"StrTalker"`
	StrContent   string `json:"StrContent"`
	BytesExtra   []byte `json:"BytesExtra"`

	// TalkerWxid 由 BytesExtra 解码得到的群内发送人 wxid
	TalkerWxid string `json:"talkerWxid"`
}
