package db

import "github.com/genbit2025/durable-objects-test-v2/xerrors"

// CodeBreakerOpen ErrBreakerOpen 的错误码
const CodeBreakerOpen = "DB_BREAKER_OPEN"

var (
	// ErrConnectorNil 未提供数据库连接器
	ErrConnectorNil = xerrors.New("db: connector is nil")

	// ErrBreakerOpen 查询熔断器处于打开状态
	ErrBreakerOpen = xerrors.WithCode(
		xerrors.Wrap(xerrors.ErrUnavailable, "db: circuit breaker is open"), CodeBreakerOpen)
)
