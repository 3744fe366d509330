package model

import "strings"

// ContactType 联系人类型，按微信 ID 前缀推断
type ContactType int

const (
	ContactTypeUnknown ContactType = iota
	ContactTypeIndividual
	ContactTypeOfficial
	ContactTypeCorporation
)

func (t ContactType) String() string {
	switch t {
	case ContactTypeIndividual:
		return "individual"
	case ContactTypeOfficial:
		return "official"
	case ContactTypeCorporation:
		return "corporation"
	}
	return "unknown"
}

// TypeOfContactID 按 ID 前缀推断联系人类型
// gh_ 前缀为公众号，@openim 前缀为企业微信联系人，其余为个人
func TypeOfContactID(id string) ContactType {
	switch {
	case strings.HasPrefix(id, "gh_"):
		return ContactTypeOfficial
	case strings.HasPrefix(id, "@openim"):
		return ContactTypeCorporation
	}
	return ContactTypeIndividual
}

// Contact 联系人，首次观察到即建立，只覆盖不删除
type Contact struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Type   ContactType `json:"type"`
	Friend bool        `json:"friend"`
	Avatar string      `json:"avatar"`
	Alias  string      `json:"alias,omitempty"`
	Phone  []string    `json:"phone,omitempty"`

	// NeedsHydration 表示该记录是消息处理过程中插入的浅记录，
	// 只有 ID，等待后续补全
	NeedsHydration bool `json:"needsHydration,omitempty"`
}

// CREATE TABLE Contact(
// UserName TEXT PRIMARY KEY ,
// Alias TEXT,
// Type INTEGER DEFAULT 0,
// VerifyFlag INTEGER DEFAULT 0,
// Remark TEXT,
// NickName TEXT,
// PYInitial TEXT,
// RemarkPYInitial TEXT,
// ... )
//
// ContactRow 是 Contact 表 left join ContactHeadImgUrl 的查询结果行
type ContactRow struct {
	UserName        string `json:"UserName"`
	NickName        string `json:"NickName"`
	Alias           string `json:"Alias"`
	Remark          string `json:"Remark"`
	PYInitial       string `json:"PYInitial"`
	RemarkPYInitial string `json:"RemarkPYInitial"`
	SmallHeadImgUrl string `json:"smallHeadImgUrl"`
}

func (r *ContactRow) Wrap() *Contact {
	return &Contact{
		ID:     r.UserName,
		Name:   r.NickName,
		Type:   TypeOfContactID(r.UserName),
		Friend: true,
		Avatar: r.SmallHeadImgUrl,
		Alias:  r.Alias,
	}
}

func (c *Contact) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}
