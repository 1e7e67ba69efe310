package storage

import "github.com/genbit2025/durable-objects-test-v2/xerrors"

var (
	// ErrBackendNil 未提供存储后端
	ErrBackendNil = xerrors.New("storage: backend is nil")

	// ErrKeyEmpty key 为空
	ErrKeyEmpty = xerrors.New("storage: key is empty")

	// ErrUnsupportedDriver 未知的存储驱动
	ErrUnsupportedDriver = xerrors.New("storage: unsupported driver")

	// ErrConnectorNil 所选驱动缺少对应的连接器
	ErrConnectorNil = xerrors.New("storage: connector is nil")
)
