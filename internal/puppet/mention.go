package puppet

import (
	"context"
	"regexp"
	"strings"
)

// 出站文本里的 @ 标记:@[mention:wxid_xxx]
var mentionPattern = regexp.MustCompile(`@\[mention:([^\]]+)\]`)

const (
	mentionAllToken = "@all"
	// mentionAllDisplay 微信端"所有人"的展示写法
	mentionAllDisplay = "@所有人"
	// mentionAllAter 后端保留的全员提醒标识
	mentionAllAter = "notify@all"
)

// renderMentions 把带标记的文本转成可见文本与 aters 列表
// 只对群聊生效,单聊调用方不应进来
func (p *Puppet) renderMentions(ctx context.Context, roomID, text string) (string, []string) {
	if strings.Contains(text, mentionAllToken) {
		return strings.Replace(text, mentionAllToken, mentionAllDisplay, 1), []string{mentionAllAter}
	}

	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, match[1])
	}

	stripped := strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))

	// 从群成员缓存解析展示名,解析不到的静默跳过
	var mentionText strings.Builder
	room, ok, err := p.getRoom(ctx, roomID)
	if err == nil && ok {
		for _, id := range ids {
			if member := room.FindMember(id); member != nil {
				mentionText.WriteString("@" + member.Name + " ")
			}
		}
	}

	return mentionText.String() + stripped, ids
}
