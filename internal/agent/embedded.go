package agent

import (
	"context"
	"time"

	"github.com/wechatferry/ferry/internal/model"
)

// DefaultEmbeddedPollInterval 进程内模式登录轮询间隔
// 进程内探测没有网络开销,可以更勤快
const DefaultEmbeddedPollInterval = 5 * time.Second

// Backend 进程内 wcferry 绑定需要实现的接口
// 消息通过 Messages 通道推送,通道关闭视为绑定退出
type Backend interface {
	IsLoggedIn(ctx context.Context) (bool, error)
	UserInfo(ctx context.Context) (*model.UserInfo, error)
	Messages() <-chan *model.RawMessage
}

// Embedded 进程内代理:消息从 Backend 的通道直接取,不走 webhook
type Embedded struct {
	backend Backend
	poller  *loginPoller

	handler Handler
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewEmbedded 创建进程内代理,interval 为零取默认轮询间隔
func NewEmbedded(backend Backend, interval time.Duration) *Embedded {
	if interval == 0 {
		interval = DefaultEmbeddedPollInterval
	}
	return &Embedded{
		backend: backend,
		poller:  newLoginPoller(backend, interval),
	}
}

// Start 启动登录轮询与消息泵
func (e *Embedded) Start(ctx context.Context, h Handler) error {
	e.handler = h
	e.poller.start(ctx, h)

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.pump(ctx, h)
	return nil
}

func (e *Embedded) pump(ctx context.Context, h Handler) {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-e.backend.Messages():
			if !ok {
				return
			}
			h.OnMessage(msg)
		}
	}
}

// Stop 停掉消息泵与轮询,已登录时发 Logout
func (e *Embedded) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
		<-e.done
		e.cancel = nil
	}
	e.poller.stop(e.handler)
	return nil
}
