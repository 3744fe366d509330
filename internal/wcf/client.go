// Package wcf 封装 wcferry 后端的 HTTP 控制接口与 SQL 查询通道。
// 所有请求失败直接上抛，不做重试。
package wcf

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/wechatferry/ferry/internal/errors"
	"github.com/wechatferry/ferry/internal/model"
	"github.com/wechatferry/ferry/internal/wxproto"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL wcferry 控制接口默认地址
	DefaultBaseURL = "http://127.0.0.1:10010"

	// DBMicroMsg 联系人 / 群聊元数据库
	DBMicroMsg = "MicroMsg.db"

	// DBMsg 消息历史库
	DBMsg = "MSG0.db"
)

// Options 客户端配置
type Options struct {
	BaseURL string
	Timeout time.Duration
}

// Client wcferry 控制接口客户端
type Client struct {
	http *resty.Client
}

// envelope 控制接口统一响应格式
type envelope struct {
	Status int             `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

// NewClient 创建客户端
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Client{
		http: resty.New().
			SetBaseURL(opts.BaseURL).
			SetTimeout(opts.Timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return errors.BackendRequest(path, err)
	}
	return c.unwrap(path, resp.Body(), out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		return errors.BackendRequest(path, err)
	}
	return c.unwrap(path, resp.Body(), out)
}

func (c *Client) unwrap(path string, body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return errors.BackendRequest(path, err)
	}
	if env.Status != 0 {
		return errors.BackendStatus(path, env.Status, env.Error)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.BackendRequest(path, err)
	}
	return nil
}

// UserInfo 登录账号信息
func (c *Client) UserInfo(ctx context.Context) (*model.UserInfo, error) {
	var info model.UserInfo
	if err := c.get(ctx, "/userinfo", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// IsLoggedIn 登录态
func (c *Client) IsLoggedIn(ctx context.Context) (bool, error) {
	var loggedIn bool
	if err := c.get(ctx, "/islogin", &loggedIn); err != nil {
		return false, err
	}
	return loggedIn, nil
}

// QuerySQL 将查询路由到指定逻辑库执行
func (c *Client) QuerySQL(ctx context.Context, db string, query sq.Sqlizer, out any) error {
	if db != DBMicroMsg && db != DBMsg {
		return errors.ErrInvalidArg("db: " + db)
	}
	sqlStr, err := toRawSQL(query)
	if err != nil {
		return err
	}
	return c.querySQLRaw(ctx, db, sqlStr, out)
}

func (c *Client) querySQLRaw(ctx context.Context, db, sqlStr string, out any) error {
	err := c.post(ctx, "/sql", map[string]string{"db": db, "sql": sqlStr}, out)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeBackend, "query failed on "+db, errors.GetCode(err))
	}
	return nil
}

// ContactList 联系人列表
func (c *Client) ContactList(ctx context.Context) ([]*model.ContactRow, error) {
	var rows []*model.ContactRow
	if err := c.QuerySQL(ctx, DBMicroMsg, contactListQuery(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ContactInfo 联系人信息，userName 为 wxid 或群 ID
func (c *Client) ContactInfo(ctx context.Context, userName string) (*model.ContactRow, error) {
	var rows []*model.ContactRow
	if err := c.QuerySQL(ctx, DBMicroMsg, contactInfoQuery(userName), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.ContactNotFound(userName)
	}
	return rows[0], nil
}

// ChatRoomList 群聊列表（仅 Contact 表视角，不含成员）
func (c *Client) ChatRoomList(ctx context.Context) ([]*model.ContactRow, error) {
	var rows []*model.ContactRow
	if err := c.QuerySQL(ctx, DBMicroMsg, chatRoomListQuery(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ChatRoomDetailList 群聊详细列表，RoomData 解码后回填 MemberIDList
func (c *Client) ChatRoomDetailList(ctx context.Context) ([]*model.ChatRoomRow, error) {
	var rows []*model.ChatRoomRow
	if err := c.QuerySQL(ctx, DBMicroMsg, chatRoomDetailQuery(""), &rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		row.MemberIDList = c.decodeMemberIDList(row)
	}
	return rows, nil
}

// ChatRoomInfo 单个群聊信息
func (c *Client) ChatRoomInfo(ctx context.Context, userName string) (*model.ChatRoomRow, error) {
	var rows []*model.ChatRoomRow
	if err := c.QuerySQL(ctx, DBMicroMsg, chatRoomDetailQuery(userName), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.RoomNotFound(userName)
	}
	row := rows[0]
	row.MemberIDList = c.decodeMemberIDList(row)
	return row, nil
}

// decodeMemberIDList 解码 RoomData 成员列表
// 解码失败只记录日志，按"成员未知"处理，不影响调用方
func (c *Client) decodeMemberIDList(row *model.ChatRoomRow) []string {
	if len(row.RoomData) == 0 {
		return []string{}
	}
	rd, err := wxproto.UnmarshalRoomData(row.RoomData)
	if err != nil {
		log.Warn().Err(err).Str("room", row.UserName).Msg("decode RoomData failed")
		return []string{}
	}
	return rd.MemberIDList()
}

// ChatRoomMembers 群成员联系人记录
func (c *Client) ChatRoomMembers(ctx context.Context, userName string) ([]*model.ContactRow, error) {
	info, err := c.ChatRoomInfo(ctx, userName)
	if err != nil {
		return nil, err
	}
	if len(info.MemberIDList) == 0 {
		return []*model.ContactRow{}, nil
	}

	var rows []*model.ContactRow
	if err := c.QuerySQL(ctx, DBMicroMsg, chatRoomMembersQuery(info.MemberIDList), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// TalkerID 解析会话对象的数字 ID，用于收敛历史消息查询范围
// 每次调用重新计算，行号视图的结果依赖 Name2ID 当前内容
func (c *Client) TalkerID(ctx context.Context, userName string) (int64, error) {
	var rows []struct {
		TalkerID int64 `json:"TalkerId"`
	}
	if err := c.QuerySQL(ctx, DBMsg, talkerIDQuery(userName), &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, errors.TalkerNotFound(userName)
	}
	return rows[0].TalkerID, nil
}

// QueryCustomizer 注入查询条件，不注入时全量查询会非常慢
type QueryCustomizer func(sq.SelectBuilder) sq.SelectBuilder

// HistoryMessageList 历史聊天记录
// 自定义查询必须保留 BytesExtra 列，缺失时在发起网络请求前直接失败
func (c *Client) HistoryMessageList(ctx context.Context, userName string, customize QueryCustomizer) ([]*model.HistoryMessageRow, error) {
	// 先用占位 talkerId 渲染一次，校验列完整性，避免无效查询浪费一次 talkerId 解析
	probe := historyMessageQuery(0)
	if customize != nil {
		probe = customize(probe)
	}
	probeSQL, err := toRawSQL(probe)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(probeSQL, "BytesExtra") {
		return nil, errors.HistoryQueryMissingBytesExtra()
	}

	talkerID, err := c.TalkerID(ctx, userName)
	if err != nil {
		return nil, err
	}

	query := historyMessageQuery(talkerID)
	if customize != nil {
		query = customize(query)
	}
	sqlStr, err := toRawSQL(query)
	if err != nil {
		return nil, err
	}

	var rows []*model.HistoryMessageRow
	if err := c.querySQLRaw(ctx, DBMsg, sqlStr, &rows); err != nil {
		return nil, err
	}

	for _, row := range rows {
		if len(row.BytesExtra) == 0 {
			continue
		}
		be, err := wxproto.UnmarshalBytesExtra(row.BytesExtra)
		if err != nil {
			log.Warn().Err(err).Int64("msg", row.MsgSvrID).Msg("decode BytesExtra failed")
			continue
		}
		row.TalkerWxid = be.SenderID()
	}
	return rows, nil
}

// SendText 发送文本消息，aters 为要 @ 的 wxid 列表
func (c *Client) SendText(ctx context.Context, receiver, content string, aters []string) error {
	return c.post(ctx, "/text", map[string]string{
		"msg":      content,
		"receiver": receiver,
		"aters":    strings.Join(aters, ","),
	}, nil)
}

// SendImage 发送图片
func (c *Client) SendImage(ctx context.Context, receiver, path string) error {
	return c.post(ctx, "/image", map[string]string{
		"path":     path,
		"receiver": receiver,
	}, nil)
}

// SendFile 发送文件
func (c *Client) SendFile(ctx context.Context, receiver, path string) error {
	return c.post(ctx, "/file", map[string]string{
		"path":     path,
		"receiver": receiver,
	}, nil)
}

// ForwardMsg 转发消息
func (c *Client) ForwardMsg(ctx context.Context, id int64, receiver string) error {
	return c.post(ctx, "/forward-msg", map[string]any{
		"id":       id,
		"receiver": receiver,
	}, nil)
}
