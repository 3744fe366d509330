package puppet

import (
	"context"
	"strings"

	"github.com/wechatferry/ferry/internal/errors"
	"github.com/wechatferry/ferry/internal/model"
)

// ContactPayload 取联系人,缓存命中且未强制刷新时不碰后端
func (p *Puppet) ContactPayload(ctx context.Context, id string, force bool) (*model.Contact, error) {
	if !force {
		if contact, ok, err := p.getContact(ctx, id); err == nil && ok {
			return contact, nil
		}
	}

	row, err := p.backend.ContactInfo(ctx, id)
	if err != nil {
		if errors.Is(err, errors.ErrTypeNotFound) {
			return nil, errors.ContactNotFound(id)
		}
		return nil, err
	}
	contact := row.Wrap()
	if err := p.putContact(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// ContactIDList 缓存中的全部联系人 ID
func (p *Puppet) ContactIDList(ctx context.Context) ([]string, error) {
	keys, err := p.store.Keys(ctx, prefixContact)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, prefixContact))
	}
	return ids, nil
}

// ContactSearch 按 ID / 昵称 / 别名子串检索,返回命中的 ID
func (p *Puppet) ContactSearch(ctx context.Context, query string) ([]string, error) {
	ids, err := p.ContactIDList(ctx)
	if err != nil {
		return nil, err
	}

	var hits []string
	for _, id := range ids {
		contact, ok, err := p.getContact(ctx, id)
		if err != nil || !ok {
			continue
		}
		if strings.Contains(contact.ID, query) ||
			strings.Contains(contact.Name, query) ||
			strings.Contains(contact.Alias, query) {
			hits = append(hits, id)
		}
	}
	return hits, nil
}

// ContactAlias 读联系人别名
func (p *Puppet) ContactAlias(ctx context.Context, id string) (string, error) {
	contact, err := p.ContactPayload(ctx, id, false)
	if err != nil {
		return "", err
	}
	return contact.Alias, nil
}

// ContactAliasSet 后端没有改别名的接口
func (p *Puppet) ContactAliasSet(ctx context.Context, id, alias string) error {
	return errors.Unsupported("contactAlias.set")
}

// ContactPhone 读联系人电话列表
func (p *Puppet) ContactPhone(ctx context.Context, id string) ([]string, error) {
	contact, err := p.ContactPayload(ctx, id, false)
	if err != nil {
		return nil, err
	}
	return contact.Phone, nil
}

// ContactPhoneSet 后端没有改电话的接口
func (p *Puppet) ContactPhoneSet(ctx context.Context, id string, phones []string) error {
	return errors.Unsupported("contactPhone.set")
}

// ContactAvatar 读头像 URL
func (p *Puppet) ContactAvatar(ctx context.Context, id string) (string, error) {
	contact, err := p.ContactPayload(ctx, id, false)
	if err != nil {
		return "", err
	}
	return contact.Avatar, nil
}

// ContactAvatarSet 后端没有改头像的接口
func (p *Puppet) ContactAvatarSet(ctx context.Context, id, path string) error {
	return errors.Unsupported("contactAvatar.set")
}
