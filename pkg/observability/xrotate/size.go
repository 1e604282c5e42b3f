package xrotate

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"
)

// ParseSize 解析人类可读的大小字符串为字节数
//
// 使用二进制单位（1KB = 1024），与配置文件习惯一致：
//
//	ParseSize("10MB")     // 10485760
//	ParseSize("10240000") // 10240000
//	ParseSize("512k")     // 524288
//
// 结果必须 > 0。
func ParseSize(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidSize)
	}
	n, err := units.RAMInBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidSize, s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidSize, s)
	}
	return n, nil
}

// FormatSize 以二进制单位格式化字节数，如 "9.766MiB"
func FormatSize(bytes int64) string {
	return units.BytesSize(float64(bytes))
}
