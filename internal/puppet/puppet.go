// Package puppet 是翻译与缓存核心:订阅 agent 事件,
// 把后端的原始消息规范化成领域模型,维护联系人 / 群聊 / 消息
// 三个命名空间的缓存,并对上层暴露查询与发送命令。
package puppet

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/wechatferry/ferry/internal/agent"
	"github.com/wechatferry/ferry/internal/errors"
	"github.com/wechatferry/ferry/internal/model"
	"github.com/wechatferry/ferry/internal/puppet/storage"

	"github.com/rs/zerolog/log"
)

const (
	prefixContact = "contact:"
	prefixRoom    = "room:"
	prefixMessage = "message:"

	// hydrateBatchSize 详情回填的并发上限,批内并发、批间串行
	hydrateBatchSize = 15

	eventBufferSize = 128
)

// Backend puppet 需要的后端能力,由 wcf.Client 实现
type Backend interface {
	ContactList(ctx context.Context) ([]*model.ContactRow, error)
	ContactInfo(ctx context.Context, userName string) (*model.ContactRow, error)
	ChatRoomDetailList(ctx context.Context) ([]*model.ChatRoomRow, error)
	ChatRoomInfo(ctx context.Context, userName string) (*model.ChatRoomRow, error)
	ChatRoomMembers(ctx context.Context, userName string) ([]*model.ContactRow, error)
	SendText(ctx context.Context, receiver, content string, aters []string) error
	SendImage(ctx context.Context, receiver, path string) error
	SendFile(ctx context.Context, receiver, path string) error
	ForwardMsg(ctx context.Context, id int64, receiver string) error
}

// Puppet 核心引擎
type Puppet struct {
	backend Backend
	agent   agent.Agent
	store   storage.Storage

	events chan Event

	// mu 串行化消息处理与批量加载:轮询定时器和 webhook
	// 是两个独立事件源,缓存变更不允许交叠
	mu   sync.Mutex
	ctx  context.Context
	user *model.UserInfo
}

// New 创建 puppet,store 为 nil 时退化为进程内存储
func New(backend Backend, ag agent.Agent, store storage.Storage) *Puppet {
	if store == nil {
		store = storage.NewMemory()
	}
	return &Puppet{
		backend: backend,
		agent:   ag,
		store:   store,
		events:  make(chan Event, eventBufferSize),
	}
}

// Events 生命周期事件通道
func (p *Puppet) Events() <-chan Event {
	return p.events
}

// Start 订阅 agent 并启动
func (p *Puppet) Start(ctx context.Context) error {
	p.ctx = ctx
	return p.agent.Start(ctx, p)
}

// Stop 停掉 agent,不清缓存
func (p *Puppet) Stop(ctx context.Context) error {
	return p.agent.Stop(ctx)
}

// UserInfo 当前登录账号,未登录时为 nil
func (p *Puppet) UserInfo() *model.UserInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user
}

// Ding 连通性自检,原样回一个 dong 事件
func (p *Puppet) Ding(data string) {
	p.emit(Event{Kind: EventDong, Data: data})
}

func (p *Puppet) emit(ev Event) {
	select {
	case p.events <- ev:
	default:
		// 消费方跟不上时丢事件,不能阻塞消息处理
		log.Warn().Str("kind", string(ev.Kind)).Msg("event buffer full, dropped")
	}
}

// OnLogin 实现 agent.Handler:登录后做全量加载,完成后宣告就绪
// 加载失败只记录日志,缓存不全是可接受的降级状态
func (p *Puppet) OnLogin(user *model.UserInfo) {
	p.mu.Lock()
	p.user = user
	p.mu.Unlock()

	p.emit(Event{Kind: EventLogin, User: user})

	if err := p.loadContacts(p.ctx); err != nil {
		log.Warn().Err(err).Msg("contact bulk load failed")
	}
	if err := p.loadRooms(p.ctx); err != nil {
		log.Warn().Err(err).Msg("room bulk load failed")
	}

	p.emit(Event{Kind: EventReady})
}

// OnLogout 实现 agent.Handler
func (p *Puppet) OnLogout() {
	p.mu.Lock()
	p.user = nil
	p.mu.Unlock()
	p.emit(Event{Kind: EventLogout})
}

// OnError 实现 agent.Handler
func (p *Puppet) OnError(err error) {
	p.emit(Event{Kind: EventError, Err: err})
}

// OnMessage 实现 agent.Handler
func (p *Puppet) OnMessage(raw *model.RawMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgHandler(p.ctx, raw)
}

// msgHandler 消息处理主路径,缓存写入先于事件发出
func (p *Puppet) msgHandler(ctx context.Context, raw *model.RawMessage) {
	// 发送人没见过就先插一条浅记录,不阻塞消息处理等全量补水
	if raw.Sender != "" {
		if _, ok, _ := p.getContact(ctx, raw.Sender); !ok {
			stub := &model.Contact{
				ID:             raw.Sender,
				Type:           model.TypeOfContactID(raw.Sender),
				NeedsHydration: true,
			}
			if err := p.putContact(ctx, stub); err != nil {
				log.Warn().Err(err).Str("contact", raw.Sender).Msg("stub insert failed")
			}
		}
	}

	msg := model.NormalizeMessage(raw)

	if msg.RoomID != "" {
		if _, ok, _ := p.getRoom(ctx, msg.RoomID); !ok {
			stub := &model.Room{ID: msg.RoomID, NeedsHydration: true}
			if err := p.putRoom(ctx, stub); err != nil {
				log.Warn().Err(err).Str("room", msg.RoomID).Msg("stub insert failed")
			}
		}
	}

	switch {
	case raw.IsRoomOp():
		// 成员增删不做增量修补,整个群强制刷新一遍
		if msg.RoomID != "" {
			if _, err := p.refreshRoom(ctx, msg.RoomID); err != nil {
				log.Warn().Err(err).Str("room", msg.RoomID).Msg("room refresh after topology change failed")
			}
		}
		p.persistAndEmit(ctx, msg, EventMessage)
	case raw.IsRoomInvite():
		p.persistAndEmit(ctx, msg, EventRoomInvite)
	default:
		p.persistAndEmit(ctx, msg, EventMessage)
	}
}

func (p *Puppet) persistAndEmit(ctx context.Context, msg *model.Message, kind EventKind) {
	if err := p.putMessage(ctx, msg); err != nil {
		log.Warn().Err(err).Str("message", msg.ID).Msg("message cache write failed")
	}
	p.emit(Event{Kind: kind, MessageID: msg.ID})
}

// loadContacts 联系人全量加载:先浅插全部,再分批并发补详情
func (p *Puppet) loadContacts(ctx context.Context) error {
	rows, err := p.backend.ContactList(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if err := p.putContact(ctx, row.Wrap()); err != nil {
			return err
		}
		ids = append(ids, row.UserName)
	}
	log.Info().Int("count", len(ids)).Msg("contacts loaded, hydrating")

	forEachBatch(ids, func(id string) {
		row, err := p.backend.ContactInfo(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("contact", id).Msg("contact hydrate failed")
			return
		}
		if err := p.putContact(ctx, row.Wrap()); err != nil {
			log.Warn().Err(err).Str("contact", id).Msg("contact cache write failed")
		}
	})
	return nil
}

// loadRooms 群聊全量加载,批量方式与联系人一致
func (p *Puppet) loadRooms(ctx context.Context) error {
	rows, err := p.backend.ChatRoomDetailList(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("count", len(rows)).Msg("rooms loaded, hydrating members")

	forEachBatch(rows, func(row *model.ChatRoomRow) {
		if _, err := p.refreshRoomFromRow(ctx, row); err != nil {
			log.Warn().Err(err).Str("room", row.UserName).Msg("room hydrate failed")
		}
	})
	return nil
}

// forEachBatch 有界扇出:每批最多 hydrateBatchSize 个并发,
// 等整批完成再取下一批
func forEachBatch[T any](items []T, fn func(T)) {
	for start := 0; start < len(items); start += hydrateBatchSize {
		end := start + hydrateBatchSize
		if end > len(items) {
			end = len(items)
		}
		var wg sync.WaitGroup
		for _, item := range items[start:end] {
			wg.Add(1)
			go func(item T) {
				defer wg.Done()
				fn(item)
			}(item)
		}
		wg.Wait()
	}
}

// refreshRoom 按 ID 强制刷新群记录
func (p *Puppet) refreshRoom(ctx context.Context, roomID string) (*model.Room, error) {
	row, err := p.backend.ChatRoomInfo(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return p.refreshRoomFromRow(ctx, row)
}

// refreshRoomFromRow 由查询行重建群记录并落缓存
// 成员列表永远整体重建,不增量修补
func (p *Puppet) refreshRoomFromRow(ctx context.Context, row *model.ChatRoomRow) (*model.Room, error) {
	room := row.Wrap()

	memberRows, err := p.backend.ChatRoomMembers(ctx, row.UserName)
	if err != nil {
		log.Warn().Err(err).Str("room", row.UserName).Msg("member fetch failed, keeping id list only")
	} else {
		room.Members = make([]model.RoomMember, 0, len(memberRows))
		for _, member := range memberRows {
			contact := member.Wrap()
			room.Members = append(room.Members, model.RoomMember{
				ID:     contact.ID,
				Name:   contact.DisplayName(),
				Avatar: contact.Avatar,
			})
		}
	}

	if err := p.putRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// 缓存读写:值一律 JSON 编码,key 带命名空间前缀

func (p *Puppet) getContact(ctx context.Context, id string) (*model.Contact, bool, error) {
	var contact model.Contact
	ok, err := p.cacheGet(ctx, prefixContact+id, &contact)
	return &contact, ok, err
}

func (p *Puppet) putContact(ctx context.Context, contact *model.Contact) error {
	return p.cachePut(ctx, prefixContact+contact.ID, contact)
}

func (p *Puppet) getRoom(ctx context.Context, id string) (*model.Room, bool, error) {
	var room model.Room
	ok, err := p.cacheGet(ctx, prefixRoom+id, &room)
	return &room, ok, err
}

func (p *Puppet) putRoom(ctx context.Context, room *model.Room) error {
	return p.cachePut(ctx, prefixRoom+room.ID, room)
}

func (p *Puppet) getMessage(ctx context.Context, id string) (*model.Message, bool, error) {
	var msg model.Message
	ok, err := p.cacheGet(ctx, prefixMessage+id, &msg)
	return &msg, ok, err
}

func (p *Puppet) putMessage(ctx context.Context, msg *model.Message) error {
	return p.cachePut(ctx, prefixMessage+msg.ID, msg)
}

func (p *Puppet) cacheGet(ctx context.Context, key string, out any) (bool, error) {
	data, ok, err := p.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, errors.Storage("cache entry decode failed", err)
	}
	return true, nil
}

func (p *Puppet) cachePut(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Storage("cache entry encode failed", err)
	}
	return p.store.Set(ctx, key, data)
}
