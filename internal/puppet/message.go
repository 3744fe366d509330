package puppet

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wechatferry/ferry/internal/errors"
	"github.com/wechatferry/ferry/internal/model"
)

// imageExts 按扩展名区分图片与普通文件
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
}

// MessagePayload 取缓存中的规范化消息
func (p *Puppet) MessagePayload(ctx context.Context, id string) (*model.Message, error) {
	msg, ok, err := p.getMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.MessageNotFound(id)
	}
	return msg, nil
}

// MessageSendText 发文本,群聊时先做 @ 标记解析
func (p *Puppet) MessageSendText(ctx context.Context, conversationID, text string) error {
	var aters []string
	if model.IsRoomID(conversationID) {
		text, aters = p.renderMentions(ctx, conversationID, text)
	}
	return p.backend.SendText(ctx, conversationID, text, aters)
}

// MessageSendFile 发文件,图片扩展名走图片通道
func (p *Puppet) MessageSendFile(ctx context.Context, conversationID, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if imageExts[ext] {
		return p.backend.SendImage(ctx, conversationID, path)
	}
	return p.backend.SendFile(ctx, conversationID, path)
}

// MessageForward 转发缓存中的消息
func (p *Puppet) MessageForward(ctx context.Context, conversationID, messageID string) error {
	// 先确认消息在缓存里,避免把无效 ID 丢给后端
	if _, err := p.MessagePayload(ctx, messageID); err != nil {
		return err
	}
	id, err := strconv.ParseInt(messageID, 10, 64)
	if err != nil {
		return errors.ErrInvalidArg("messageID")
	}
	return p.backend.ForwardMsg(ctx, id, conversationID)
}

// MessageRecall 后端没有撤回接口
func (p *Puppet) MessageRecall(ctx context.Context, messageID string) error {
	return errors.Unsupported("messageRecall")
}
