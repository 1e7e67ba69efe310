package dlock

import "github.com/genbit2025/durable-objects-test-v2/xerrors"

// CodeAcquireTimeout ErrAcquireTimeout 的错误码
const CodeAcquireTimeout = "LOCK_ACQUIRE_TIMEOUT"

var (
	// ErrAcquirerNil 未提供锁对象
	ErrAcquirerNil = xerrors.New("dlock: acquirer is nil")

	// ErrAcquireTimeout 在超时或次数上限内未能获取锁
	ErrAcquireTimeout = xerrors.WithCode(xerrors.New("dlock: acquire timeout"), CodeAcquireTimeout)

	// errLockHeld 单次尝试被拒绝，只用于驱动重试
	errLockHeld = xerrors.New("dlock: lock held")
)
