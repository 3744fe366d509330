package wxproto

import (
	"strings"

	"github.com/wechatferry/ferry/internal/errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// message BytesExtra {
//   message Property {
//     int32 type = 1;
//     string value = 2;
//   }
//   repeated Property properties = 3;
// }
//
// 其余字段为未知用途，解析时跳过
const (
	bytesExtraFieldProperties = 3

	propertyFieldType  = 1
	propertyFieldValue = 2
)

// PropertySenderID 发送人 wxid 所在的属性类型
const PropertySenderID = 1

// BytesExtra 消息附加元数据
type BytesExtra struct {
	Properties []Property
}

// Property 一条附加属性
type Property struct {
	Type  int64
	Value string
}

// SenderID 返回消息发送人 wxid
// 扫描属性集合，取第一个类型为 PropertySenderID 的条目，
// 并在第一个冒号处截断（后端用冒号拼接了附属数据）
// 没有匹配条目时返回空字符串
func (be *BytesExtra) SenderID() string {
	for _, p := range be.Properties {
		if p.Type == PropertySenderID {
			id, _, _ := strings.Cut(p.Value, ":")
			return id
		}
	}
	return ""
}

// UnmarshalBytesExtra 解码 BytesExtra 二进制
func UnmarshalBytesExtra(b []byte) (*BytesExtra, error) {
	be := &BytesExtra{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.DecodeBytesExtra(protowire.ParseError(n))
		}
		b = b[n:]

		if num == bytesExtraFieldProperties && typ == protowire.BytesType {
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, errors.DecodeBytesExtra(protowire.ParseError(m))
			}
			prop, err := unmarshalProperty(v)
			if err != nil {
				return nil, err
			}
			be.Properties = append(be.Properties, *prop)
			b = b[m:]
			continue
		}

		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return nil, errors.DecodeBytesExtra(protowire.ParseError(m))
		}
		b = b[m:]
	}
	return be, nil
}

func unmarshalProperty(b []byte) (*Property, error) {
	prop := &Property{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.DecodeBytesExtra(protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == propertyFieldType && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, errors.DecodeBytesExtra(protowire.ParseError(m))
			}
			prop.Type = int64(v)
			b = b[m:]
		case num == propertyFieldValue && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return nil, errors.DecodeBytesExtra(protowire.ParseError(m))
			}
			prop.Value = v
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, errors.DecodeBytesExtra(protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
	return prop, nil
}
