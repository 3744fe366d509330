package errors

import (
	"fmt"
	"net/http"
)

// 后端（wcferry 控制接口）相关错误

// BackendRequest 创建后端请求失败错误，不重试，直接上抛
func BackendRequest(path string, cause error) *AppError {
	return New(ErrTypeBackend, fmt.Sprintf("backend request failed: %s", path), cause, http.StatusBadGateway).WithStack()
}

// BackendStatus 创建后端业务状态错误（status != 0）
func BackendStatus(path string, status int, message string) *AppError {
	return New(ErrTypeBackend, fmt.Sprintf("backend status %d on %s: %s", status, path, message), nil, http.StatusBadGateway).WithStack()
}

// QueryFailed 创建 SQL 查询失败错误
func QueryFailed(db string, cause error) *AppError {
	return New(ErrTypeBackend, fmt.Sprintf("query failed on %s", db), cause, http.StatusBadGateway).WithStack()
}

// 二进制解码相关错误

// DecodeRoomData 创建 RoomData 解码失败错误
func DecodeRoomData(cause error) *AppError {
	return New(ErrTypeDecode, "malformed RoomData blob", cause, http.StatusInternalServerError).WithStack()
}

// DecodeBytesExtra 创建 BytesExtra 解码失败错误
func DecodeBytesExtra(cause error) *AppError {
	return New(ErrTypeDecode, "malformed BytesExtra blob", cause, http.StatusInternalServerError).WithStack()
}

// 缓存查找相关错误

func ContactNotFound(id string) *AppError {
	return New(ErrTypeNotFound, fmt.Sprintf("contact not found: %s", id), nil, http.StatusNotFound).WithStack()
}

func RoomNotFound(id string) *AppError {
	return New(ErrTypeNotFound, fmt.Sprintf("room not found: %s", id), nil, http.StatusNotFound).WithStack()
}

func RoomMemberNotFound(roomID, memberID string) *AppError {
	return New(ErrTypeNotFound, fmt.Sprintf("room member not found: %s in %s", memberID, roomID), nil, http.StatusNotFound).WithStack()
}

func MessageNotFound(id string) *AppError {
	return New(ErrTypeNotFound, fmt.Sprintf("message not found: %s", id), nil, http.StatusNotFound).WithStack()
}

func TalkerNotFound(userName string) *AppError {
	return New(ErrTypeNotFound, fmt.Sprintf("talker not found: %s", userName), nil, http.StatusNotFound).WithStack()
}

// Unsupported 创建无后端实现的操作错误，属于永久性失败
func Unsupported(op string) *AppError {
	return New(ErrTypeUnsupported, fmt.Sprintf("not support %s", op), nil, http.StatusNotImplemented).WithStack()
}

// 历史消息查询保护：自定义查询必须保留 BytesExtra 列，
// 否则无法从结果恢复 talkerWxid，提前失败避免白跑一次网络请求
func HistoryQueryMissingBytesExtra() *AppError {
	return New(ErrTypeInvalidArg, "history query must select BytesExtra", nil, http.StatusBadRequest).WithStack()
}
