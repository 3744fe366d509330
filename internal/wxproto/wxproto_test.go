package wxproto

import (
	"testing"

	"github.com/wechatferry/ferry/internal/errors"

	"google.golang.org/protobuf/encoding/protowire"
)

func appendRoomMember(b []byte, wxid, displayName string, state int32) []byte {
	var member []byte
	member = protowire.AppendTag(member, roomMemberFieldWxID, protowire.BytesType)
	member = protowire.AppendString(member, wxid)
	if displayName != "" {
		member = protowire.AppendTag(member, roomMemberFieldDisplayName, protowire.BytesType)
		member = protowire.AppendString(member, displayName)
	}
	member = protowire.AppendTag(member, roomMemberFieldState, protowire.VarintType)
	member = protowire.AppendVarint(member, uint64(state))

	b = protowire.AppendTag(b, roomDataFieldMembers, protowire.BytesType)
	return protowire.AppendBytes(b, member)
}

func appendProperty(b []byte, propType int64, value string) []byte {
	var prop []byte
	prop = protowire.AppendTag(prop, propertyFieldType, protowire.VarintType)
	prop = protowire.AppendVarint(prop, uint64(propType))
	prop = protowire.AppendTag(prop, propertyFieldValue, protowire.BytesType)
	prop = protowire.AppendString(prop, value)

	b = protowire.AppendTag(b, bytesExtraFieldProperties, protowire.BytesType)
	return protowire.AppendBytes(b, prop)
}

func TestUnmarshalRoomData(t *testing.T) {
	var b []byte
	b = appendRoomMember(b, "wxid_alice", "Alice", 0)
	b = appendRoomMember(b, "wxid_bob", "", 0)
	b = protowire.AppendTag(b, roomDataFieldMemberCount, protowire.VarintType)
	b = protowire.AppendVarint(b, 2)
	b = protowire.AppendTag(b, roomDataFieldCapacity, protowire.VarintType)
	b = protowire.AppendVarint(b, 500)

	rd, err := UnmarshalRoomData(b)
	if err != nil {
		t.Fatalf("UnmarshalRoomData() error = %v", err)
	}
	if len(rd.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(rd.Members))
	}
	if rd.Members[0].WxID != "wxid_alice" || rd.Members[0].DisplayName != "Alice" {
		t.Errorf("member[0] = %+v", rd.Members[0])
	}
	if rd.Members[1].WxID != "wxid_bob" || rd.Members[1].DisplayName != "" {
		t.Errorf("member[1] = %+v", rd.Members[1])
	}
	if rd.MemberCount != 2 || rd.Capacity != 500 {
		t.Errorf("memberCount = %d, capacity = %d", rd.MemberCount, rd.Capacity)
	}

	ids := rd.MemberIDList()
	if len(ids) != 2 || ids[0] != "wxid_alice" || ids[1] != "wxid_bob" {
		t.Errorf("MemberIDList() = %v", ids)
	}
}

func TestUnmarshalRoomDataEmpty(t *testing.T) {
	// 无成员字段不是错误，表示"成员未知"
	rd, err := UnmarshalRoomData(nil)
	if err != nil {
		t.Fatalf("UnmarshalRoomData(nil) error = %v", err)
	}
	if len(rd.Members) != 0 {
		t.Errorf("members = %d, want 0", len(rd.Members))
	}
	if ids := rd.MemberIDList(); ids == nil || len(ids) != 0 {
		t.Errorf("MemberIDList() = %v, want empty non-nil", ids)
	}
}

func TestUnmarshalRoomDataMalformed(t *testing.T) {
	// 长度前缀超出剩余字节数
	var b []byte
	b = protowire.AppendTag(b, roomDataFieldMembers, protowire.BytesType)
	b = protowire.AppendVarint(b, 100)
	b = append(b, 0x01)

	_, err := UnmarshalRoomData(b)
	if err == nil {
		t.Fatal("UnmarshalRoomData() expected error for malformed input")
	}
	if !errors.Is(err, errors.ErrTypeDecode) {
		t.Errorf("error type = %v, want decode", err)
	}
}

func TestSenderID(t *testing.T) {
	tests := []struct {
		name  string
		props []struct {
			t int64
			v string
		}
		want string
	}{
		{
			name: "plain wxid",
			props: []struct {
				t int64
				v string
			}{{1, "wxid_sender"}},
			want: "wxid_sender",
		},
		{
			name: "wxid with colon suffix",
			props: []struct {
				t int64
				v string
			}{{1, "wxid_sender:extra:data"}},
			want: "wxid_sender",
		},
		{
			name: "first match wins",
			props: []struct {
				t int64
				v string
			}{{7, "other"}, {1, "wxid_first"}, {1, "wxid_second"}},
			want: "wxid_first",
		},
		{
			name: "no matching tag",
			props: []struct {
				t int64
				v string
			}{{2, "xml blob"}, {4, "path"}},
			want: "",
		},
		{
			name: "empty",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b []byte
			for _, p := range tt.props {
				b = appendProperty(b, p.t, p.v)
			}

			be, err := UnmarshalBytesExtra(b)
			if err != nil {
				t.Fatalf("UnmarshalBytesExtra() error = %v", err)
			}
			if got := be.SenderID(); got != tt.want {
				t.Errorf("SenderID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnmarshalBytesExtraSkipsUnknownFields(t *testing.T) {
	var b []byte
	// 未知 varint 字段
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 42)
	b = appendProperty(b, 1, "wxid_x:ancillary")
	// 未知 bytes 字段
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("opaque"))

	be, err := UnmarshalBytesExtra(b)
	if err != nil {
		t.Fatalf("UnmarshalBytesExtra() error = %v", err)
	}
	if got := be.SenderID(); got != "wxid_x" {
		t.Errorf("SenderID() = %q, want wxid_x", got)
	}
}

func TestUnmarshalBytesExtraMalformed(t *testing.T) {
	_, err := UnmarshalBytesExtra([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	if err == nil {
		t.Fatal("UnmarshalBytesExtra() expected error for malformed input")
	}
	if !errors.Is(err, errors.ErrTypeDecode) {
		t.Errorf("error type = %v, want decode", err)
	}
}
