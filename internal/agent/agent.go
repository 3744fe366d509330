// Package agent 对接 wcferry 侧的事件来源。
// 两种形态:远程 webhook(Remote)与进程内绑定(Embedded),
// 共用同一套登录轮询状态机。
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/wechatferry/ferry/internal/model"

	"github.com/rs/zerolog/log"
)

// Handler 接收代理产生的领域事件
// 回调在代理自己的 goroutine 上执行,实现方自行保证并发安全
type Handler interface {
	OnMessage(msg *model.RawMessage)
	OnLogin(user *model.UserInfo)
	OnLogout()
	OnError(err error)
}

// Agent 事件来源的统一抽象
type Agent interface {
	Start(ctx context.Context, h Handler) error
	Stop(ctx context.Context) error
}

// loginProbe 登录态探测接口,wcf.Client 与 Backend 均满足
type loginProbe interface {
	IsLoggedIn(ctx context.Context) (bool, error)
	UserInfo(ctx context.Context) (*model.UserInfo, error)
}

// loginPoller 登录轮询状态机
// 启动后立即探测一次,之后按 interval 轮询;
// 探测到登录后只发一次 Login 事件,定时器随即停止
type loginPoller struct {
	probe    loginProbe
	interval time.Duration

	mu       sync.Mutex
	loggedIn bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func newLoginPoller(probe loginProbe, interval time.Duration) *loginPoller {
	return &loginPoller{probe: probe, interval: interval}
}

func (p *loginPoller) start(ctx context.Context, h Handler) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.done = make(chan struct{})
	p.mu.Unlock()

	go p.loop(ctx, h)
}

func (p *loginPoller) loop(ctx context.Context, h Handler) {
	defer close(p.done)

	if p.checkOnce(ctx, h) {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.checkOnce(ctx, h) {
				return
			}
		}
	}
}

// checkOnce 返回 true 表示已登录,轮询可以结束
func (p *loginPoller) checkOnce(ctx context.Context, h Handler) bool {
	ok, err := p.probe.IsLoggedIn(ctx)
	if err != nil {
		// 探测失败不算未登录,下个周期重试
		log.Warn().Err(err).Msg("login probe failed")
		return false
	}
	if !ok {
		return false
	}

	user, err := p.probe.UserInfo(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("fetch user info failed")
		return false
	}

	p.mu.Lock()
	p.loggedIn = true
	p.mu.Unlock()

	h.OnLogin(user)
	return true
}

// stop 停止轮询;已登录时补发 Logout
func (p *loginPoller) stop(h Handler) {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	loggedIn := p.loggedIn
	p.loggedIn = false
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if loggedIn {
		h.OnLogout()
	}
}
