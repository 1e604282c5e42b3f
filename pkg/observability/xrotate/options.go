package xrotate

import (
	"os"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// options 两种 Rotator 实现共用的配置
//
// 每个构造函数只读取与自己相关的字段，其余字段被忽略。
type options struct {
	// 通用
	localTime bool
	fileMode  os.FileMode
	onError   func(error)

	// NewDailySink / NewDaily
	rotationSize  int64
	autoFlush     bool
	dirMode       os.FileMode
	meterProvider metric.MeterProvider
	now           func() time.Time

	// NewLumberjack
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	compress   bool
}

// Option 配置选项函数
type Option func(*options)

func applyOptions(o *options, opts []Option) {
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
}

// WithLocalTime 设置日期/备份文件名是否使用本地时间（默认 UTC）
func WithLocalTime(local bool) Option {
	return func(o *options) {
		o.localTime = local
	}
}

// WithFileMode 设置日志文件权限
//
// 仅允许权限位（0000~0777）。DailySink 在创建文件时直接使用该权限
// （受 umask 影响）；lumberjack 实现在写入后通过 chmod 调整。
func WithFileMode(mode os.FileMode) Option {
	return func(o *options) {
		o.fileMode = mode
	}
}

// WithOnError 设置内部错误回调
//
// 不使用 slog 记录内部错误：Rotator 本身就是日志输出目标，
// 写失败再打日志会递归。回调不得向同一 Rotator 写入数据，
// 回调 panic 会被 recover 隔离。
func WithOnError(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithRotationSize 设置单个日志文件的软上限（字节），必须 > 0
//
// 写入前检查：已写字节 + 本条长度 >= 上限时先轮转再写。
func WithRotationSize(bytes int64) Option {
	return func(o *options) {
		o.rotationSize = bytes
	}
}

// WithAutoFlush 设置是否每条记录后立即刷出缓冲区（默认 true）
//
// 关闭后记录先进入进程内缓冲区，轮转或 Close 时落盘，吞吐更高，
// 但进程崩溃会丢失缓冲区内的记录。
func WithAutoFlush(enable bool) Option {
	return func(o *options) {
		o.autoFlush = enable
	}
}

// WithDirMode 设置按月目录的权限（默认 0750），必须包含所有者执行位
func WithDirMode(mode os.FileMode) Option {
	return func(o *options) {
		o.dirMode = mode
	}
}

// WithMeterProvider 设置 OpenTelemetry MeterProvider（默认使用全局 provider）
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *options) {
		if provider != nil {
			o.meterProvider = provider
		}
	}
}

// WithClock 设置 Write 路径使用的时钟（默认 time.Now）
//
// 只影响 [DailyRotator.Write]；Consume 始终使用调用方传入的记录时间。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMaxSize 设置 lumberjack 单个日志文件最大大小（MB）
func WithMaxSize(mb int) Option {
	return func(o *options) {
		o.maxSizeMB = mb
	}
}

// WithMaxBackups 设置 lumberjack 保留的备份文件数量
func WithMaxBackups(n int) Option {
	return func(o *options) {
		o.maxBackups = n
	}
}

// WithMaxAge 设置 lumberjack 保留备份的天数
func WithMaxAge(days int) Option {
	return func(o *options) {
		o.maxAgeDays = days
	}
}

// WithCompress 设置 lumberjack 是否 gzip 压缩备份文件
func WithCompress(compress bool) Option {
	return func(o *options) {
		o.compress = compress
	}
}
