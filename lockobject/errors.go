package lockobject

import "github.com/genbit2025/durable-objects-test-v2/xerrors"

var (
	// ErrKeyEmpty 锁 key 为空
	ErrKeyEmpty = xerrors.New("lockobject: key is empty")
)
