package durable

import (
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
	"github.com/google/uuid"
)

// objectIDSpace UUIDv5 的命名空间，固定值保证同名对象在各进程得到相同 ID
var objectIDSpace = uuid.MustParse("6f1c3a52-7d0e-5b9a-9a43-2f4c1d7e8b60")

// ID 对象的全局唯一标识
type ID struct {
	uuid uuid.UUID
	name string
}

func newNameID(namespace, name string) ID {
	return ID{
		uuid: uuid.NewSHA1(objectIDSpace, []byte(namespace+"/"+name)),
		name: name,
	}
}

func newUniqueID() ID {
	return ID{uuid: uuid.New()}
}

func parseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, xerrors.Wrapf(ErrInvalidID, "%q: %v", s, err)
	}
	return ID{uuid: u}, nil
}

// String 返回 ID 的规范字符串形式
func (id ID) String() string {
	return id.uuid.String()
}

// Name 返回通过 IDFromName 创建时使用的名字，其他方式创建的 ID 返回空串
func (id ID) Name() string {
	return id.name
}

// Equals 只比较标识本身，不比较名字
func (id ID) Equals(other ID) bool {
	return id.uuid == other.uuid
}
