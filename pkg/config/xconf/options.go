package xconf

import "time"

type options struct {
	delim string
	tag   string
}

// Option 配置加载选项
type Option func(*options)

func defaultOptions() options {
	return options{delim: ".", tag: "koanf"}
}

// WithDelim 设置配置键分隔符，默认 "."，如 "sink.target_root"
func WithDelim(delim string) Option {
	return func(o *options) {
		if delim != "" {
			o.delim = delim
		}
	}
}

// WithTag 设置 Unmarshal 使用的结构体标签，默认 "koanf"
func WithTag(tag string) Option {
	return func(o *options) {
		if tag != "" {
			o.tag = tag
		}
	}
}

type watchOptions struct {
	debounce      time.Duration
	retryAttempts uint
	retryDelay    time.Duration
}

// WatchOption 监视器选项
type WatchOption func(*watchOptions)

// 监视器默认值
const (
	// DefaultDebounce 默认防抖时间
	DefaultDebounce = 100 * time.Millisecond

	// DefaultReloadAttempts 单次变更最多尝试重载的次数
	DefaultReloadAttempts uint = 3

	// DefaultReloadRetryDelay 重载失败后的重试间隔
	DefaultReloadRetryDelay = 50 * time.Millisecond
)

// WithDebounce 设置防抖时间，窗口内的多次变更只触发一次重载
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithReloadRetry 设置重载失败时的重试
//
// 编辑器保存或 ConfigMap 更新过程中可能读到写了一半的文件，
// 短暂重试后通常能读到完整内容。attempts 为 1 表示不重试。
func WithReloadRetry(attempts uint, delay time.Duration) WatchOption {
	return func(o *watchOptions) {
		if attempts > 0 {
			o.retryAttempts = attempts
		}
		if delay >= 0 {
			o.retryDelay = delay
		}
	}
}
