package agent

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wechatferry/ferry/internal/model"

	"github.com/gin-gonic/gin"
)

func newWebhookServer(h Handler) (*Remote, *httptest.Server) {
	remote := &Remote{handler: h}
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.NoRoute(remote.handleWebhook)
	return remote, httptest.NewServer(engine)
}

func TestWebhookAcceptsMessage(t *testing.T) {
	handler := &recordingHandler{}
	_, srv := newWebhookServer(handler)
	defer srv.Close()

	body := `{"is_self":false,"is_group":true,"id":42,"type":1,"ts":1700000000,` +
		`"roomid":"88@chatroom","content":"hello","sender":"wxid_abc","xml":""}`
	resp, err := http.Post(srv.URL+"/callback", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(handler.messages))
	}
	msg := handler.messages[0]
	if msg.ID != 42 || msg.Sender != "wxid_abc" || !msg.IsGroup {
		t.Errorf("message = %+v", msg)
	}
}

func TestWebhookAnyPathAnyMethod(t *testing.T) {
	handler := &recordingHandler{}
	_, srv := newWebhookServer(handler)
	defer srv.Close()

	body := `{"id":7,"type":1,"sender":"wxid_abc","content":"x"}`
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/anything/goes", strings.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT error = %v", err)
	}
	defer resp.Body.Close()

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.messages) != 1 {
		t.Errorf("messages = %d, want 1", len(handler.messages))
	}
}

func TestWebhookRejectsGarbage(t *testing.T) {
	handler := &recordingHandler{}
	_, srv := newWebhookServer(handler)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/callback", "application/json", strings.NewReader("not json"))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	// 解析失败不能把回调打挂,照样回 200,但不产生事件
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.messages) != 0 {
		t.Errorf("messages = %d, want 0", len(handler.messages))
	}
}

func TestInjectWithoutServer(t *testing.T) {
	handler := &recordingHandler{}
	remote := &Remote{handler: handler}

	remote.Inject(&model.RawMessage{ID: 9, Type: model.MessageTypeText})
	if len(handler.messages) != 1 || handler.messages[0].ID != 9 {
		t.Errorf("messages = %+v", handler.messages)
	}
}
