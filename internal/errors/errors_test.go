package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestErrorCreation(t *testing.T) {
	// 测试创建基本错误
	err := New("test", "test message", nil, http.StatusBadRequest)
	if err.Type != "test" || err.Message != "test message" || err.Code != http.StatusBadRequest {
		t.Errorf("New() created incorrect error: %v", err)
	}

	// 测试创建带原因的错误
	cause := fmt.Errorf("original error")
	err = New("test", "test with cause", cause, http.StatusInternalServerError)
	if err.Cause != cause {
		t.Errorf("New() did not set cause correctly: %v", err)
	}

	// 测试错误消息格式
	expected := "test: test with cause: original error"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestErrorWrapping(t *testing.T) {
	// 测试包装普通错误
	original := fmt.Errorf("original error")
	wrapped := Wrap(original, "wrapped", "wrapped message", http.StatusBadRequest)

	if wrapped.Type != "wrapped" || wrapped.Message != "wrapped message" {
		t.Errorf("Wrap() created incorrect error: %v", wrapped)
	}

	if wrapped.Cause != original {
		t.Errorf("Wrap() did not set cause correctly")
	}

	// 测试包装 AppError
	appErr := New("app", "app error", nil, http.StatusNotFound)
	rewrapped := Wrap(appErr, "ignored", "new message", http.StatusBadRequest)

	if rewrapped.Type != "app" {
		t.Errorf("Wrap() did not preserve original AppError type: got %s, want %s",
			rewrapped.Type, appErr.Type)
	}

	if rewrapped.Code != appErr.Code {
		t.Errorf("Wrap() did not preserve original status code: got %d, want %d",
			rewrapped.Code, appErr.Code)
	}
}

func TestDomainConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     *AppError
		errType string
		code    int
	}{
		{"backend request", BackendRequest("/sql", fmt.Errorf("conn refused")), ErrTypeBackend, http.StatusBadGateway},
		{"backend status", BackendStatus("/text", 1, "send failed"), ErrTypeBackend, http.StatusBadGateway},
		{"decode room data", DecodeRoomData(fmt.Errorf("bad wire")), ErrTypeDecode, http.StatusInternalServerError},
		{"contact not found", ContactNotFound("wxid_123"), ErrTypeNotFound, http.StatusNotFound},
		{"room not found", RoomNotFound("123@chatroom"), ErrTypeNotFound, http.StatusNotFound},
		{"unsupported", Unsupported("set alias"), ErrTypeUnsupported, http.StatusNotImplemented},
		{"history guard", HistoryQueryMissingBytesExtra(), ErrTypeInvalidArg, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.errType {
				t.Errorf("Type = %s, want %s", tt.err.Type, tt.errType)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %d, want %d", tt.err.Code, tt.code)
			}
			if !Is(tt.err, tt.errType) {
				t.Errorf("Is() failed for %s", tt.name)
			}
		})
	}
}
