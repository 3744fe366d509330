package agent

import (
	"context"
	"net/http"
	"time"

	"github.com/wechatferry/ferry/internal/errors"
	"github.com/wechatferry/ferry/internal/model"
	"github.com/wechatferry/ferry/internal/wcf"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultWebhookAddr webhook 监听地址
	DefaultWebhookAddr = "0.0.0.0:10011"

	// DefaultRemotePollInterval 远程模式登录轮询间隔
	DefaultRemotePollInterval = 30 * time.Second
)

// RemoteOptions 远程代理配置
type RemoteOptions struct {
	// Addr webhook 监听地址,空值取默认
	Addr string
	// PollInterval 登录轮询间隔,零值取默认
	PollInterval time.Duration
	// DisableServer 不启动 webhook,消息由调用方通过 Inject 注入
	DisableServer bool
}

// Remote 远程代理:轮询 wcferry 控制接口的登录态,
// 同时起一个 webhook 接收消息回调
type Remote struct {
	client *wcf.Client
	opts   RemoteOptions
	poller *loginPoller

	handler Handler
	srv     *http.Server
}

// NewRemote 创建远程代理
func NewRemote(client *wcf.Client, opts RemoteOptions) *Remote {
	if opts.Addr == "" {
		opts.Addr = DefaultWebhookAddr
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = DefaultRemotePollInterval
	}
	return &Remote{
		client: client,
		opts:   opts,
		poller: newLoginPoller(client, opts.PollInterval),
	}
}

// Start 启动登录轮询与 webhook
func (r *Remote) Start(ctx context.Context, h Handler) error {
	r.handler = h
	r.poller.start(ctx, h)

	if r.opts.DisableServer {
		return nil
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(errors.ErrorHandlerMiddleware(), errors.RecoveryMiddleware())
	// wcferry 回调的路径和方法可配,全部收下
	engine.NoRoute(r.handleWebhook)

	r.srv = &http.Server{Addr: r.opts.Addr, Handler: engine}
	go func() {
		log.Info().Str("addr", r.opts.Addr).Msg("webhook listening")
		if err := r.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.OnError(errors.Internal("webhook server", err))
		}
	}()
	return nil
}

// Stop 停掉 webhook 与轮询,已登录时发 Logout
func (r *Remote) Stop(ctx context.Context) error {
	if r.srv != nil {
		if err := r.srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("webhook shutdown failed")
		}
		r.srv = nil
	}
	r.poller.stop(r.handler)
	return nil
}

// Inject 直接注入一条原始消息,DisableServer 模式下由调用方使用
func (r *Remote) Inject(msg *model.RawMessage) {
	if r.handler != nil {
		r.handler.OnMessage(msg)
	}
}

func (r *Remote) handleWebhook(c *gin.Context) {
	var msg model.RawMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		log.Debug().Err(err).Msg("webhook body is not a message")
		c.JSON(http.StatusOK, gin.H{"status": 1, "message": "无法解析消息: " + err.Error()})
		return
	}

	r.handler.OnMessage(&msg)
	c.JSON(http.StatusOK, gin.H{"status": 0, "message": "成功"})
}
