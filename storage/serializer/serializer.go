// Package serializer 定义持久化值的编解码方式。
package serializer

import (
	"encoding/json"

	"github.com/genbit2025/durable-objects-test-v2/xerrors"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	MsgPack = "msgpack"
	JSON    = "json"
)

// ErrUnsupportedSerializer 不支持的序列化器类型
var ErrUnsupportedSerializer = xerrors.New("serializer: unsupported type")

// Serializer 定义序列化接口
type Serializer interface {
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte, dest any) error
	Name() string
}

type jsonSerializer struct{}

func (jsonSerializer) Marshal(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (jsonSerializer) Unmarshal(data []byte, dest any) error {
	return json.Unmarshal(data, dest)
}

func (jsonSerializer) Name() string { return JSON }

type msgpackSerializer struct{}

func (msgpackSerializer) Marshal(value any) ([]byte, error) {
	return msgpack.Marshal(value)
}

func (msgpackSerializer) Unmarshal(data []byte, dest any) error {
	return msgpack.Unmarshal(data, dest)
}

func (msgpackSerializer) Name() string { return MsgPack }

// New 创建序列化器
//
// 支持的序列化器类型:
//   - "msgpack": 默认，二进制紧凑
//   - "json": 便于在 redis-cli 或数据库中直接查看
func New(name string) (Serializer, error) {
	switch name {
	case MsgPack, "":
		return msgpackSerializer{}, nil
	case JSON:
		return jsonSerializer{}, nil
	default:
		return nil, xerrors.Wrapf(ErrUnsupportedSerializer, "%q", name)
	}
}
