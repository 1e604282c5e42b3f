package xrotate

import "io"

// 编译时断言：Rotator 接口是 io.WriteCloser 的超集
var _ io.WriteCloser = (Rotator)(nil)

// Rotator 日志轮转器接口
//
// 隐式实现 [io.WriteCloser]，可直接作为 xlog 的输出目标。
// 额外提供 Rotate 方法用于手动触发轮转。
//
// 实现约定：
//   - Write 必须是并发安全的
//   - Close 后调用 Write 或 Rotate 应返回 [ErrClosed]，重复 Close 也返回 [ErrClosed]
//   - Rotate 可以在任意时刻调用
type Rotator interface {
	// Write 写入日志数据，满足轮转条件时自动轮转
	Write(p []byte) (n int, err error)

	// Close 关闭轮转器，释放资源
	Close() error

	// Rotate 手动触发轮转
	Rotate() error
}

// 编译时断言
var (
	_ Rotator = (*DailyRotator)(nil)
	_ Rotator = (*lumberjackRotator)(nil)
)
