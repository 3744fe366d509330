package model

import "strings"

// IsRoomID 群聊 ID 统一带 @chatroom 后缀
func IsRoomID(id string) bool {
	return strings.HasSuffix(id, "@chatroom")
}

// Room 群聊。整体刷新，不做增量修补：members 永远由最近一次
// 刷新时的 memberIdList 与联系人信息重建
type Room struct {
	ID           string       `json:"id"`
	Topic        string       `json:"topic"`
	Announce     string       `json:"announce"`
	Avatar       string       `json:"avatar"`
	MemberIDList []string     `json:"memberIdList"`
	Members      []RoomMember `json:"members"`

	// NeedsHydration 含义同 Contact
	NeedsHydration bool `json:"needsHydration,omitempty"`
}

// RoomMember 群成员投影
type RoomMember struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// FindMember 按 ID 查找群成员，找不到时返回 nil
func (r *Room) FindMember(id string) *RoomMember {
	for i := range r.Members {
		if r.Members[i].ID == id {
			return &r.Members[i]
		}
	}
	return nil
}

// ChatRoomRow 是 ChatRoomInfo join Contact / ChatRoom / ContactHeadImgUrl
// 的查询结果行，RoomData 为 protobuf 二进制
type ChatRoomRow struct {
	Announcement            string `json:"Announcement"`
	AnnouncementEditor      string `json:"AnnouncementEditor"`
	AnnouncementPublishTime int64  `json:"AnnouncementPublishTime"`
	InfoVersion             int64  `json:"InfoVersion"`
	NickName                string `json:"NickName"`
	UserName                string `json:"UserName"`
	RoomData                []byte `json:"RoomData"`
	SmallHeadImgUrl         string `json:"smallHeadImgUrl"`

	// MemberIDList 由 RoomData 解码得到，不直接来自查询列
	MemberIDList []string `json:"memberIdList"`
}

func (r *ChatRoomRow) Wrap() *Room {
	return &Room{
		ID:           r.UserName,
		Topic:        r.NickName,
		Announce:     r.Announcement,
		Avatar:       r.SmallHeadImgUrl,
		MemberIDList: r.MemberIDList,
	}
}
