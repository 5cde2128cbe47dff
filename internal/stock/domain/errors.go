package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 解析完成但上游没有对应标的
	ErrNotFound = errors.New("stock not found")
	// ErrDatasetUnavailable 别名数据集加载失败
	ErrDatasetUnavailable = errors.New("alias dataset unavailable")
)

// UpstreamError 上游服务不可达、超时或返回了无法解析的数据
type UpstreamError struct {
	// 上游名称（yahoo、backend）
	Provider string
	// 操作名称（chart、search、quote 等）
	Op string
	// HTTP 状态码，传输层失败时为 0
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsNotFound 判断错误链中是否包含 ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
