package config

import "github.com/genbit2025/durable-objects-test-v2/xerrors"

// ErrValidationFailed 验证失败
var ErrValidationFailed = xerrors.New("config: validation failed")

// IsInvalidInput 检查错误是否为配置格式无效或验证失败
func IsInvalidInput(err error) bool {
	return xerrors.Is(err, ErrValidationFailed) || xerrors.Is(err, xerrors.ErrInvalidInput)
}
