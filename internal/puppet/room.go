package puppet

import (
	"context"
	"strings"

	"github.com/wechatferry/ferry/internal/errors"
	"github.com/wechatferry/ferry/internal/model"
)

// RoomPayload 取群聊,浅记录或强制刷新时走一次完整重建
func (p *Puppet) RoomPayload(ctx context.Context, id string, force bool) (*model.Room, error) {
	if !force {
		if room, ok, err := p.getRoom(ctx, id); err == nil && ok && !room.NeedsHydration {
			return room, nil
		}
	}

	room, err := p.refreshRoom(ctx, id)
	if err != nil {
		if errors.Is(err, errors.ErrTypeNotFound) {
			return nil, errors.RoomNotFound(id)
		}
		return nil, err
	}
	return room, nil
}

// RoomIDList 缓存中的全部群聊 ID
func (p *Puppet) RoomIDList(ctx context.Context) ([]string, error) {
	keys, err := p.store.Keys(ctx, prefixRoom)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, prefixRoom))
	}
	return ids, nil
}

// RoomSearch 按 ID / 群名子串检索
func (p *Puppet) RoomSearch(ctx context.Context, query string) ([]string, error) {
	ids, err := p.RoomIDList(ctx)
	if err != nil {
		return nil, err
	}

	var hits []string
	for _, id := range ids {
		room, ok, err := p.getRoom(ctx, id)
		if err != nil || !ok {
			continue
		}
		if strings.Contains(room.ID, query) || strings.Contains(room.Topic, query) {
			hits = append(hits, id)
		}
	}
	return hits, nil
}

// RoomMemberIDList 群成员 ID 列表
func (p *Puppet) RoomMemberIDList(ctx context.Context, roomID string) ([]string, error) {
	room, err := p.RoomPayload(ctx, roomID, false)
	if err != nil {
		return nil, err
	}
	return room.MemberIDList, nil
}

// RoomMemberPayload 取单个群成员投影
func (p *Puppet) RoomMemberPayload(ctx context.Context, roomID, memberID string) (*model.RoomMember, error) {
	room, err := p.RoomPayload(ctx, roomID, false)
	if err != nil {
		return nil, err
	}
	member := room.FindMember(memberID)
	if member == nil {
		return nil, errors.RoomMemberNotFound(roomID, memberID)
	}
	return member, nil
}

// RoomMemberSearch 按展示名子串检索群成员
func (p *Puppet) RoomMemberSearch(ctx context.Context, roomID, name string) ([]string, error) {
	room, err := p.RoomPayload(ctx, roomID, false)
	if err != nil {
		return nil, err
	}
	var hits []string
	for _, member := range room.Members {
		if strings.Contains(member.Name, name) {
			hits = append(hits, member.ID)
		}
	}
	return hits, nil
}

// RoomTopic 读群名
func (p *Puppet) RoomTopic(ctx context.Context, roomID string) (string, error) {
	room, err := p.RoomPayload(ctx, roomID, false)
	if err != nil {
		return "", err
	}
	return room.Topic, nil
}

// RoomAnnounce 读群公告
func (p *Puppet) RoomAnnounce(ctx context.Context, roomID string) (string, error) {
	room, err := p.RoomPayload(ctx, roomID, false)
	if err != nil {
		return "", err
	}
	return room.Announce, nil
}
