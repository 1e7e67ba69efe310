package durable

import "github.com/genbit2025/durable-objects-test-v2/xerrors"

var (
	// ErrNamespaceClosed 命名空间已关闭
	ErrNamespaceClosed = xerrors.New("durable: namespace closed")

	// ErrInvalidID 无法解析的对象 ID
	ErrInvalidID = xerrors.New("durable: invalid object id")

	// ErrFactoryNil 未提供对象构造函数
	ErrFactoryNil = xerrors.New("durable: factory is nil")

	// ErrObjectPanic 对象方法发生 panic
	ErrObjectPanic = xerrors.New("durable: object panicked")
)
