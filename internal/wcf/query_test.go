package wcf

import (
	"strings"
	"testing"
)

func TestContactListQuerySQL(t *testing.T) {
	sqlStr, err := toRawSQL(contactListQuery())
	if err != nil {
		t.Fatalf("toRawSQL() error = %v", err)
	}

	wants := []string{
		"FROM Contact",
		"LEFT JOIN ContactHeadImgUrl ON Contact.UserName = ContactHeadImgUrl.usrName",
		"VerifyFlag = 0",
		"(Type = 3 OR Type > 50)",
		"Type <> 2050",
		"UserName NOT IN ('qmessage', 'tmessage')",
		"UserName NOT LIKE '%chatroom%'",
		"ORDER BY Remark DESC",
	}
	for _, want := range wants {
		if !strings.Contains(sqlStr, want) {
			t.Errorf("sql missing %q:\n%s", want, sqlStr)
		}
	}
}

func TestChatRoomDetailQuerySQL(t *testing.T) {
	sqlStr, err := toRawSQL(chatRoomDetailQuery("45677@chatroom"))
	if err != nil {
		t.Fatalf("toRawSQL() error = %v", err)
	}
	for _, want := range []string{
		"FROM ChatRoomInfo",
		"ChatRoom.RoomData",
		"ChatRoomInfo.ChatRoomName = '45677@chatroom'",
	} {
		if !strings.Contains(sqlStr, want) {
			t.Errorf("sql missing %q:\n%s", want, sqlStr)
		}
	}

	// 全量查询不应带 WHERE
	sqlStr, err = toRawSQL(chatRoomDetailQuery(""))
	if err != nil {
		t.Fatalf("toRawSQL() error = %v", err)
	}
	if strings.Contains(sqlStr, "WHERE") {
		t.Errorf("list query should not have WHERE:\n%s", sqlStr)
	}
}

func TestTalkerIDQuerySQL(t *testing.T) {
	sqlStr, err := toRawSQL(talkerIDQuery("wxid_abc"))
	if err != nil {
		t.Fatalf("toRawSQL() error = %v", err)
	}
	for _, want := range []string{
		"WITH TalkerId AS (SELECT ROW_NUMBER() OVER (ORDER BY (SELECT 0)) AS TalkerId, * FROM Name2ID)",
		"FROM TalkerId",
		"UsrName = 'wxid_abc'",
	} {
		if !strings.Contains(sqlStr, want) {
			t.Errorf("sql missing %q:\n%s", want, sqlStr)
		}
	}
}

func TestHistoryMessageQuerySQL(t *testing.T) {
	sqlStr, err := toRawSQL(historyMessageQuery(42))
	if err != nil {
		t.Fatalf("toRawSQL() error = %v", err)
	}
	for _, want := range []string{
		"BytesExtra",
		"FROM MSG",
		"TalkerId = 42",
		"ORDER BY CreateTime DESC",
	} {
		if !strings.Contains(sqlStr, want) {
			t.Errorf("sql missing %q:\n%s", want, sqlStr)
		}
	}
}

func TestSQLLiteral(t *testing.T) {
	tests := []struct {
		arg  any
		want string
	}{
		{nil, "NULL"},
		{"plain", "'plain'"},
		{"it's", "'it''s'"},
		{[]byte{0xde, 0xad}, "X'dead'"},
		{true, "1"},
		{false, "0"},
		{42, "42"},
		{int64(-7), "-7"},
	}
	for _, tt := range tests {
		got, err := sqlLiteral(tt.arg)
		if err != nil {
			t.Errorf("sqlLiteral(%v) error = %v", tt.arg, err)
			continue
		}
		if got != tt.want {
			t.Errorf("sqlLiteral(%v) = %s, want %s", tt.arg, got, tt.want)
		}
	}

	if _, err := sqlLiteral(struct{}{}); err == nil {
		t.Error("sqlLiteral(struct{}{}) expected error")
	}
}

func TestChatRoomListQuerySQL(t *testing.T) {
	sqlStr, err := toRawSQL(chatRoomListQuery())
	if err != nil {
		t.Fatalf("toRawSQL() error = %v", err)
	}

	wants := []string{
		"FROM Contact",
		"Type IN (2,2050)",
		"Type = 3 AND UserName LIKE '%chatroom%'",
	}
	for _, want := range wants {
		if !strings.Contains(sqlStr, want) {
			t.Errorf("sql missing %q:\n%s", want, sqlStr)
		}
	}
}

func TestChatRoomMembersQuerySQL(t *testing.T) {
	sqlStr, err := toRawSQL(chatRoomMembersQuery([]string{"wxid_a", "wxid_b"}))
	if err != nil {
		t.Fatalf("toRawSQL() error = %v", err)
	}
	if !strings.Contains(sqlStr, "UserName IN ('wxid_a','wxid_b')") {
		t.Errorf("sql missing member filter:\n%s", sqlStr)
	}
}
