// Package wxproto 解码微信数据库内嵌的两种 protobuf 二进制：
// ChatRoom.RoomData（群成员元数据）与 MSG.BytesExtra（消息发送人元数据）。
// 字段布局固定，直接按 wire format 解析，无需运行期加载 schema。
package wxproto

import (
	"github.com/wechatferry/ferry/internal/errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// message RoomData {
//   message RoomMember {
//     string wxID = 1;
//     optional string displayName = 2;
//     optional int32 state = 3;
//   }
//   repeated RoomMember members = 1;
//   int32 memberCount = 2;
//   int32 capacity = 4;
// }
const (
	roomDataFieldMembers     = 1
	roomDataFieldMemberCount = 2
	roomDataFieldCapacity    = 4

	roomMemberFieldWxID        = 1
	roomMemberFieldDisplayName = 2
	roomMemberFieldState       = 3
)

// RoomData 群成员元数据
type RoomData struct {
	Members     []RoomMember
	MemberCount int32
	Capacity    int32
}

// RoomMember 单个群成员
type RoomMember struct {
	WxID        string
	DisplayName string
	State       int32
}

// MemberIDList 返回成员 wxid 列表，成员缺失时返回空切片而非 nil
func (rd *RoomData) MemberIDList() []string {
	ids := make([]string, 0, len(rd.Members))
	for _, m := range rd.Members {
		ids = append(ids, m.WxID)
	}
	return ids
}

// UnmarshalRoomData 解码 RoomData 二进制
// members 缺失表示"成员未知"，不视为错误
func UnmarshalRoomData(b []byte) (*RoomData, error) {
	rd := &RoomData{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.DecodeRoomData(protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == roomDataFieldMembers && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, errors.DecodeRoomData(protowire.ParseError(m))
			}
			member, err := unmarshalRoomMember(v)
			if err != nil {
				return nil, err
			}
			rd.Members = append(rd.Members, *member)
			b = b[m:]
		case num == roomDataFieldMemberCount && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, errors.DecodeRoomData(protowire.ParseError(m))
			}
			rd.MemberCount = int32(v)
			b = b[m:]
		case num == roomDataFieldCapacity && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, errors.DecodeRoomData(protowire.ParseError(m))
			}
			rd.Capacity = int32(v)
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, errors.DecodeRoomData(protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
	return rd, nil
}

func unmarshalRoomMember(b []byte) (*RoomMember, error) {
	member := &RoomMember{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.DecodeRoomData(protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == roomMemberFieldWxID && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return nil, errors.DecodeRoomData(protowire.ParseError(m))
			}
			member.WxID = v
			b = b[m:]
		case num == roomMemberFieldDisplayName && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return nil, errors.DecodeRoomData(protowire.ParseError(m))
			}
			member.DisplayName = v
			b = b[m:]
		case num == roomMemberFieldState && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, errors.DecodeRoomData(protowire.ParseError(m))
			}
			member.State = int32(v)
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, errors.DecodeRoomData(protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
	return member, nil
}
