package wcf

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/wechatferry/ferry/internal/errors"

	sq "github.com/Masterminds/squirrel"
	"google.golang.org/protobuf/encoding/protowire"
)

type sqlRequest struct {
	DB  string `json:"db"`
	SQL string `json:"sql"`
}

// fakeBackend 模拟 wcferry 控制接口，按 SQL 片段分发查询结果
type fakeBackend struct {
	t        *testing.T
	hits     atomic.Int64
	requests []sqlRequest
	handle   func(req sqlRequest) (any, bool)
}

func (f *fakeBackend) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)

		switch r.URL.Path {
		case "/islogin":
			writeEnvelope(w, 0, "", true)
		case "/userinfo":
			writeEnvelope(w, 0, "", map[string]string{"wxid": "wxid_self", "name": "Self"})
		case "/sql":
			var req sqlRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				f.t.Errorf("bad sql request: %v", err)
			}
			f.requests = append(f.requests, req)
			if f.handle != nil {
				if data, ok := f.handle(req); ok {
					writeEnvelope(w, 0, "", data)
					return
				}
			}
			writeEnvelope(w, 0, "", []any{})
		case "/text", "/image", "/file", "/forward-msg":
			writeEnvelope(w, 0, "", nil)
		default:
			writeEnvelope(w, 1, "unknown path", nil)
		}
	}))
}

func writeEnvelope(w http.ResponseWriter, status int, errMsg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"error":  errMsg,
		"data":   data,
	})
}

func newTestClient(t *testing.T, backend *fakeBackend) (*Client, *httptest.Server) {
	t.Helper()
	srv := backend.server()
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL}), srv
}

func TestIsLoggedIn(t *testing.T) {
	backend := &fakeBackend{t: t}
	client, _ := newTestClient(t, backend)

	ok, err := client.IsLoggedIn(context.Background())
	if err != nil {
		t.Fatalf("IsLoggedIn() error = %v", err)
	}
	if !ok {
		t.Error("IsLoggedIn() = false, want true")
	}
}

func TestEnvelopeStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 10, "not logged in", nil)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})
	_, err := client.UserInfo(context.Background())
	if err == nil {
		t.Fatal("UserInfo() expected error for non-zero status")
	}
	if !errors.Is(err, errors.ErrTypeBackend) {
		t.Errorf("error type = %v, want backend", err)
	}
}

func TestTransportError(t *testing.T) {
	// 地址不可达，传输层失败也映射为 backend 错误
	client := NewClient(Options{BaseURL: "http://127.0.0.1:1"})
	_, err := client.IsLoggedIn(context.Background())
	if err == nil {
		t.Fatal("IsLoggedIn() expected transport error")
	}
	if !errors.Is(err, errors.ErrTypeBackend) {
		t.Errorf("error type = %v, want backend", err)
	}
}

func TestChatRoomDetailListDecodesMembers(t *testing.T) {
	roomData := appendTestMember(nil, "wxid_alice")
	roomData = appendTestMember(roomData, "wxid_bob")

	backend := &fakeBackend{t: t}
	backend.handle = func(req sqlRequest) (any, bool) {
		if strings.Contains(req.SQL, "ChatRoomInfo") {
			return []map[string]any{{
				"UserName":     "88@chatroom",
				"NickName":     "测试群",
				"Announcement": "notice",
				"RoomData":     roomData, // json 编码为 base64
			}}, true
		}
		return nil, false
	}
	client, _ := newTestClient(t, backend)

	rows, err := client.ChatRoomDetailList(context.Background())
	if err != nil {
		t.Fatalf("ChatRoomDetailList() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	got := rows[0].MemberIDList
	if len(got) != 2 || got[0] != "wxid_alice" || got[1] != "wxid_bob" {
		t.Errorf("MemberIDList = %v", got)
	}
}

func TestChatRoomInfoCorruptRoomData(t *testing.T) {
	backend := &fakeBackend{t: t}
	backend.handle = func(req sqlRequest) (any, bool) {
		if strings.Contains(req.SQL, "ChatRoomInfo") {
			return []map[string]any{{
				"UserName": "88@chatroom",
				"RoomData": []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
			}}, true
		}
		return nil, false
	}
	client, _ := newTestClient(t, backend)

	// 解码失败按"成员未知"处理，不报错
	row, err := client.ChatRoomInfo(context.Background(), "88@chatroom")
	if err != nil {
		t.Fatalf("ChatRoomInfo() error = %v", err)
	}
	if len(row.MemberIDList) != 0 {
		t.Errorf("MemberIDList = %v, want empty", row.MemberIDList)
	}
}

func TestHistoryMessageListGuard(t *testing.T) {
	backend := &fakeBackend{t: t}
	client, _ := newTestClient(t, backend)

	// 自定义查询丢掉了 BytesExtra 列，必须在发请求前失败
	_, err := client.HistoryMessageList(context.Background(), "wxid_abc", func(b sq.SelectBuilder) sq.SelectBuilder {
		return sq.Select("localId", "StrContent").From("MSG").Where(sq.Eq{"TalkerId": 1})
	})
	if err == nil {
		t.Fatal("HistoryMessageList() expected guard error")
	}
	if !errors.Is(err, errors.ErrTypeInvalidArg) {
		t.Errorf("error type = %v, want invalid_argument", err)
	}
	// TalkerID 解析也不应发生：零网络请求
	if got := backend.hits.Load(); got != 0 {
		t.Errorf("backend hits = %d, want 0", got)
	}
}

func TestHistoryMessageListRecoversWxid(t *testing.T) {
	var be []byte
	var prop []byte
	prop = protowire.AppendTag(prop, 1, protowire.VarintType) // type
	prop = protowire.AppendVarint(prop, 1)
	prop = protowire.AppendTag(prop, 2, protowire.BytesType) // value
	prop = protowire.AppendString(prop, "wxid_sender:room_announce")
	be = protowire.AppendTag(be, 3, protowire.BytesType)
	be = protowire.AppendBytes(be, prop)

	backend := &fakeBackend{t: t}
	backend.handle = func(req sqlRequest) (any, bool) {
		if strings.Contains(req.SQL, "Name2ID") {
			return []map[string]any{{"TalkerId": 7, "UsrName": "wxid_abc"}}, true
		}
		if strings.Contains(req.SQL, "FROM MSG") {
			return []map[string]any{{
				"MsgSvrID":   123,
				"StrContent": "hello",
				"BytesExtra": be,
			}}, true
		}
		return nil, false
	}
	client, _ := newTestClient(t, backend)

	rows, err := client.HistoryMessageList(context.Background(), "wxid_abc", nil)
	if err != nil {
		t.Fatalf("HistoryMessageList() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].TalkerWxid != "wxid_sender" {
		t.Errorf("TalkerWxid = %q, want wxid_sender", rows[0].TalkerWxid)
	}

	// talkerId 查询必须限定在 MSG0.db
	if backend.requests[0].DB != DBMsg {
		t.Errorf("talkerId db = %s, want %s", backend.requests[0].DB, DBMsg)
	}
}

func TestTalkerIDNotFound(t *testing.T) {
	backend := &fakeBackend{t: t}
	client, _ := newTestClient(t, backend)

	_, err := client.TalkerID(context.Background(), "wxid_missing")
	if err == nil {
		t.Fatal("TalkerID() expected error")
	}
	if !errors.Is(err, errors.ErrTypeNotFound) {
		t.Errorf("error type = %v, want not_found", err)
	}
}

func TestSendTextJoinsAters(t *testing.T) {
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		writeEnvelope(w, 0, "", nil)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})
	err := client.SendText(context.Background(), "88@chatroom", "hi", []string{"wxid_a", "wxid_b"})
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if body["aters"] != "wxid_a,wxid_b" {
		t.Errorf("aters = %q, want wxid_a,wxid_b", body["aters"])
	}
	if body["receiver"] != "88@chatroom" || body["msg"] != "hi" {
		t.Errorf("body = %v", body)
	}
}

// appendTestMember 构造 RoomData 的单个成员条目
func appendTestMember(b []byte, wxid string) []byte {
	var member []byte
	member = protowire.AppendTag(member, 1, protowire.BytesType)
	member = protowire.AppendString(member, wxid)

	b = protowire.AppendTag(b, 1, protowire.BytesType)
	return protowire.AppendBytes(b, member)
}

func TestChatRoomList(t *testing.T) {
	backend := &fakeBackend{t: t}
	backend.handle = func(req sqlRequest) (any, bool) {
		if strings.Contains(req.SQL, "IN (2,2050)") {
			return []map[string]any{{"UserName": "88@chatroom", "NickName": "测试群"}}, true
		}
		return nil, false
	}
	client, _ := newTestClient(t, backend)

	rows, err := client.ChatRoomList(context.Background())
	if err != nil {
		t.Fatalf("ChatRoomList() error = %v", err)
	}
	if len(rows) != 1 || rows[0].UserName != "88@chatroom" {
		t.Errorf("rows = %+v", rows)
	}
}
