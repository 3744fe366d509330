package wcf

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/wechatferry/ferry/internal/errors"

	sq "github.com/Masterminds/squirrel"
)

// 后端的 /sql 通道只接受完整 SQL 文本，这里统一用 squirrel
// 构造查询再内联参数值

func contactListQuery() sq.SelectBuilder {
	return sq.Select(
		"NickName", "UserName", "Alias", "Remark", "PYInitial", "RemarkPYInitial",
		"ContactHeadImgUrl.smallHeadImgUrl",
	).
		From("Contact").
		LeftJoin("ContactHeadImgUrl ON Contact.UserName = ContactHeadImgUrl.usrName").
		Where(sq.Eq{"VerifyFlag": 0}).
		Where(sq.Or{sq.Eq{"Type": 3}, sq.Gt{"Type": 50}}).
		Where(sq.NotEq{"Type": 2050}).
		Where("UserName NOT IN (?, ?)", "qmessage", "tmessage").
		Where("UserName NOT LIKE ?", "%chatroom%").
		OrderBy("Remark DESC")
}

func contactInfoQuery(userName string) sq.SelectBuilder {
	return sq.Select(
		"NickName", "UserName", "Alias", "Remark", "PYInitial", "RemarkPYInitial",
		"ContactHeadImgUrl.smallHeadImgUrl",
	).
		From("Contact").
		LeftJoin("ContactHeadImgUrl ON Contact.UserName = ContactHeadImgUrl.usrName").
		Where(sq.Eq{"UserName": userName})
}

func chatRoomListQuery() sq.SelectBuilder {
	return sq.Select("NickName", "UserName", "Remark", "PYInitial", "RemarkPYInitial").
		From("Contact").
		Where(sq.Or{
			sq.Eq{"Type": []int{2, 2050}},
			sq.And{sq.Eq{"Type": 3}, sq.Like{"UserName": "%chatroom%"}},
		})
}

// chatRoomDetailQuery 群聊详情查询，userName 为空时查全量
func chatRoomDetailQuery(userName string) sq.SelectBuilder {
	b := sq.Select(
		"Announcement", "AnnouncementEditor", "AnnouncementPublishTime", "InfoVersion",
		"Contact.NickName", "Contact.UserName",
		"ChatRoom.RoomData",
		"ContactHeadImgUrl.smallHeadImgUrl",
	).
		From("ChatRoomInfo").
		LeftJoin("Contact ON ChatRoomInfo.ChatRoomName = Contact.UserName").
		LeftJoin("ChatRoom ON ChatRoomInfo.ChatRoomName = ChatRoom.ChatRoomName").
		LeftJoin("ContactHeadImgUrl ON Contact.UserName = ContactHeadImgUrl.usrName")

	if userName != "" {
		b = b.Where(sq.Eq{"ChatRoomInfo.ChatRoomName": userName})
	}
	return b
}

func chatRoomMembersQuery(memberIDList []string) sq.SelectBuilder {
	return sq.Select("NickName", "UserName", "ContactHeadImgUrl.smallHeadImgUrl").
		From("Contact").
		LeftJoin("ContactHeadImgUrl ON Contact.UserName = ContactHeadImgUrl.usrName").
		Where(sq.Eq{"UserName": memberIDList})
}

// talkerIDQuery Name2ID 表没有显式 ID 列，
// 用 ROW_NUMBER 物化行号视图后按 UsrName 过滤
func talkerIDQuery(userName string) sq.SelectBuilder {
	return sq.Select("*").
		From("TalkerId").
		Where(sq.Eq{"UsrName": userName}).
		Prefix("WITH TalkerId AS (SELECT ROW_NUMBER() OVER (ORDER BY (SELECT 0)) AS TalkerId, * FROM Name2ID)")
}

func historyMessageQuery(talkerID int64) sq.SelectBuilder {
	return sq.Select(
		"localId", "TalkerId", "MsgSvrID", "Type", "SubType", "IsSender",
		"CreateTime", "Sequence", "StatusEx", "FlagEx", "Status",
		"MsgServerSeq", "MsgSequence", "StrTalker", "StrContent", "BytesExtra",
	).
		From("MSG").
		Where(sq.Eq{"TalkerId": talkerID}).
		OrderBy("CreateTime DESC")
}

// toRawSQL 生成参数内联后的完整 SQL 文本
// 构造出的查询不会在字符串字面量里出现 ?，按顺序替换即可
func toRawSQL(query sq.Sqlizer) (string, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTypeInternal, "build query failed", 500)
	}

	var buf strings.Builder
	argIdx := 0
	for _, r := range sqlStr {
		if r != '?' {
			buf.WriteRune(r)
			continue
		}
		if argIdx >= len(args) {
			return "", errors.Internal("placeholder count mismatch", nil)
		}
		literal, err := sqlLiteral(args[argIdx])
		if err != nil {
			return "", err
		}
		buf.WriteString(literal)
		argIdx++
	}
	if argIdx != len(args) {
		return "", errors.Internal("placeholder count mismatch", nil)
	}
	return buf.String(), nil
}

func sqlLiteral(arg any) (string, error) {
	switch v := arg.(type) {
	case nil:
		return "NULL", nil
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", nil
	case []byte:
		return "X'" + hex.EncodeToString(v) + "'", nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	default:
		return "", errors.Internal(fmt.Sprintf("unsupported query arg type %T", arg), nil)
	}
}
