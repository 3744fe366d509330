// Package ferry 把配置、存储、后端客户端、代理和 puppet
// 装配成一个可运行的服务。
package ferry

import (
	"context"
	"fmt"

	"github.com/wechatferry/ferry/internal/agent"
	"github.com/wechatferry/ferry/internal/errors"
	"github.com/wechatferry/ferry/internal/ferry/conf"
	"github.com/wechatferry/ferry/internal/puppet"
	"github.com/wechatferry/ferry/internal/puppet/storage"
	"github.com/wechatferry/ferry/internal/wcf"

	"github.com/rs/zerolog/log"
)

// Manager 服务装配与生命周期
type Manager struct {
	conf   *conf.Config
	store  storage.Storage
	client *wcf.Client
	agent  *agent.Remote
	puppet *puppet.Puppet
}

// New 按配置装配服务
func New(ctx context.Context, c *conf.Config) (*Manager, error) {
	store, err := newStorage(ctx, c)
	if err != nil {
		return nil, err
	}

	client := wcf.NewClient(wcf.Options{BaseURL: c.GetBackendURL()})
	remote := agent.NewRemote(client, agent.RemoteOptions{
		Addr:          c.GetWebhookAddr(),
		PollInterval:  c.GetPollInterval(),
		DisableServer: c.WebhookDisabled,
	})

	return &Manager{
		conf:   c,
		store:  store,
		client: client,
		agent:  remote,
		puppet: puppet.New(client, remote, store),
	}, nil
}

func newStorage(ctx context.Context, c *conf.Config) (storage.Storage, error) {
	switch c.Storage {
	case "", "memory":
		return storage.NewMemory(), nil
	case "redis":
		return storage.NewRedis(ctx, storage.RedisOptions{
			Addr:      c.RedisAddr,
			Password:  c.RedisPassword,
			DB:        c.RedisDB,
			KeyPrefix: c.RedisKeyPrefix,
		})
	default:
		return nil, errors.Config(fmt.Sprintf("unknown storage type %q", c.Storage), nil)
	}
}

// Puppet 暴露引擎,供上层适配器接事件和下命令
func (m *Manager) Puppet() *puppet.Puppet {
	return m.puppet
}

// Run 启动服务并阻塞消费事件,ctx 取消后停机
// 信号处理由调用方在进程边界接好,这里只认 ctx
func (m *Manager) Run(ctx context.Context) error {
	if err := m.puppet.Start(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return m.shutdown()
		case ev := <-m.puppet.Events():
			m.logEvent(ev)
		}
	}
}

func (m *Manager) shutdown() error {
	// 用独立的 ctx 收尾,外层的已经取消了
	if err := m.puppet.Stop(context.Background()); err != nil {
		log.Warn().Err(err).Msg("puppet stop failed")
	}
	if err := m.store.Close(); err != nil {
		log.Warn().Err(err).Msg("storage close failed")
	}
	log.Info().Msg("ferry stopped")
	return nil
}

func (m *Manager) logEvent(ev puppet.Event) {
	switch ev.Kind {
	case puppet.EventLogin:
		log.Info().Str("wxid", ev.User.WxID).Str("name", ev.User.Name).Msg("logged in")
	case puppet.EventLogout:
		log.Info().Msg("logged out")
	case puppet.EventReady:
		log.Info().Msg("caches loaded, ready")
	case puppet.EventMessage:
		log.Debug().Str("message", ev.MessageID).Msg("message")
	case puppet.EventRoomInvite:
		log.Info().Str("message", ev.MessageID).Msg("room invite")
	case puppet.EventDong:
		log.Debug().Str("data", ev.Data).Msg("dong")
	case puppet.EventError:
		log.Error().Err(ev.Err).Msg("agent error")
	}
}
