package xlog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omeyang/xdaylog/pkg/observability/xrotate"
)

// ReplaceAttrFunc 属性替换函数类型
//
// 用于字段重命名、脱敏、过滤。返回空 Key 的 Attr 时该属性被移除。
//
//	func(groups []string, a slog.Attr) slog.Attr {
//	    if a.Key == "password" {
//	        return slog.String("password", "***")
//	    }
//	    return a
//	}
type ReplaceAttrFunc func(groups []string, a slog.Attr) slog.Attr

// Builder 日志配置构建器
//
// 输出目标三选一，后设置的覆盖先设置的：
//   - SetOutput: 任意 io.Writer，按 SetFormat 输出 text/json
//   - SetRotation: lumberjack 按大小轮转的单文件，按 SetFormat 输出
//   - SetSink / SetDailySink: 渲染为单行记录交给 Consumer（按天按大小轮转）
//
// 遇到第一个配置错误后，后续错误被忽略，Build 返回第一个错误。
type Builder struct {
	output      io.Writer
	levelVar    *slog.LevelVar
	format      string
	addSource   bool
	replaceAttr ReplaceAttrFunc
	onError     func(error)

	sink      Consumer
	app       string
	version   string
	localTime bool
	closers   []io.Closer // Build 的 cleanup 负责关闭
	err       error
}

// New 创建配置构建器，默认 stderr、Info 级别、text 格式
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)

	return &Builder{
		output:   os.Stderr,
		levelVar: levelVar,
		format:   "text",
	}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// SetOutput 设置日志输出目标
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if w == nil {
		return b.fail(ErrNilWriter)
	}
	b.output = w
	b.sink = nil
	return b
}

// SetLevel 设置日志级别
func (b *Builder) SetLevel(level Level) *Builder {
	b.levelVar.Set(slog.Level(level))
	return b
}

// SetLevelString 通过字符串设置日志级别
func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		return b.fail(err)
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json，空值视为 text
//
// 对 SetSink 设置的 Consumer 无效，记录行格式是固定的。
func (b *Builder) SetFormat(format string) *Builder {
	normalized := strings.ToLower(strings.TrimSpace(format))
	if normalized == "" {
		b.format = "text"
		return b
	}
	if normalized != "text" && normalized != "json" {
		return b.fail(fmt.Errorf("%w: %q", ErrUnknownFormat, format))
	}
	b.format = normalized
	return b
}

// SetAddSource 是否在日志中添加源码位置
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetLocalTime 记录行中的日期时间是否使用本地时区（默认 UTC）
//
// 只影响 SetSink 的记录行；文件名时区由 xrotate.WithLocalTime 单独控制。
func (b *Builder) SetLocalTime(local bool) *Builder {
	b.localTime = local
	return b
}

// SetRotation 输出到 lumberjack 按大小轮转的文件
func (b *Builder) SetRotation(filename string, opts ...xrotate.Option) *Builder {
	rotator, err := xrotate.NewLumberjack(filename, opts...)
	if err != nil {
		return b.fail(err)
	}
	b.closers = append(b.closers, rotator)
	b.output = rotator
	b.sink = nil
	return b
}

// SetSink 把记录渲染为 "app,version,日期,时间,级别,消息" 单行交给 consumer
//
// Builder 不接管 consumer 的生命周期，调用方负责关闭。
func (b *Builder) SetSink(consumer Consumer, app, version string) *Builder {
	if consumer == nil {
		return b.fail(ErrNilConsumer)
	}
	b.sink = consumer
	b.app = app
	b.version = version
	return b
}

// SetDailySink 创建 xrotate.DailySink 并作为 Consumer，cleanup 时关闭
//
// 文件布局为 <targetRoot>/<YYYY-MM>/<YYYY-MM-DD>[n]_<suffix>.log。
// RecordHandler 已串行化写入，这里直接使用非并发安全的 DailySink。
func (b *Builder) SetDailySink(targetRoot, suffix, app, version string, opts ...xrotate.Option) *Builder {
	sink, err := xrotate.NewDailySink(targetRoot, suffix, opts...)
	if err != nil {
		return b.fail(err)
	}
	b.closers = append(b.closers, sink)
	return b.SetSink(sink, app, version)
}

// SetOnError 设置内部错误回调
//
// Handler.Handle 失败时同步调用，回调 panic 被隔离。回调内部再次
// 触发的日志错误不会递归进入回调。
func (b *Builder) SetOnError(fn func(error)) *Builder {
	b.onError = fn
	return b
}

// SetReplaceAttr 设置属性替换函数
func (b *Builder) SetReplaceAttr(fn ReplaceAttrFunc) *Builder {
	b.replaceAttr = fn
	return b
}

// Build 构建 Logger 实例
//
// 返回值：
//   - LoggerWithLevel: 日志实例，同时支持动态级别控制
//   - func() error: 清理函数，关闭 Builder 创建的文件，可重复调用
//   - error: 配置错误
//
// 出错时已创建的文件会被关闭。
func (b *Builder) Build() (LoggerWithLevel, func() error, error) {
	cleanup := b.createCleanup()
	if b.err != nil {
		_ = cleanup()
		return nil, nil, b.err
	}

	handler, err := b.newHandler()
	if err != nil {
		_ = cleanup()
		return nil, nil, err
	}

	logger := &xlogger{
		handler:        handler,
		levelVar:       b.levelVar,
		onError:        b.onError,
		errorCount:     new(atomic.Uint64),
		addSource:      b.addSource,
		inErrorHandler: new(atomic.Bool),
	}
	return logger, cleanup, nil
}

func (b *Builder) newHandler() (slog.Handler, error) {
	if b.sink != nil {
		loc := time.UTC
		if b.localTime {
			loc = time.Local
		}
		return NewRecordHandler(b.sink, b.app, b.version, &RecordHandlerOptions{
			Level:       b.levelVar,
			AddSource:   b.addSource,
			ReplaceAttr: b.replaceAttr,
			Location:    loc,
		})
	}

	replace := b.replaceAttr
	opts := &slog.HandlerOptions{
		Level:     b.levelVar,
		AddSource: b.addSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(Level(lvl).Label())
				}
				return a
			}
			if replace != nil {
				return replace(groups, a)
			}
			return a
		},
	}
	if b.format == "json" {
		return slog.NewJSONHandler(b.output, opts), nil
	}
	return slog.NewTextHandler(b.output, opts), nil
}

func (b *Builder) createCleanup() func() error {
	var (
		once sync.Once
		err  error
	)
	closers := b.closers
	return func() error {
		once.Do(func() {
			errs := make([]error, 0, len(closers))
			for _, c := range closers {
				errs = append(errs, c.Close())
			}
			err = errors.Join(errs...)
		})
		return err
	}
}
