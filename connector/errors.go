package connector

import "github.com/genbit2025/durable-objects-test-v2/xerrors"

// Sentinel Errors - 连接器专用的哨兵错误
var (
	ErrConnection  = xerrors.New("connector: connection failed")
	ErrConfig      = xerrors.New("connector: invalid config")
	ErrHealthCheck = xerrors.New("connector: health check failed")
	ErrClientNil   = xerrors.New("connector: client is nil")
)
