package xlog

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Consumer 接收已格式化的日志行
//
// ts 为记录产生的时间，msg 不含换行符。*xrotate.DailySink 满足此接口。
// 实现不需要并发安全，RecordHandler 保证调用串行。
type Consumer interface {
	Consume(ts time.Time, msg string)
}

// ConsumerFunc 函数适配器
type ConsumerFunc func(ts time.Time, msg string)

// Consume 实现 Consumer 接口
func (f ConsumerFunc) Consume(ts time.Time, msg string) { f(ts, msg) }

// 日志行中日期与时间的固定格式，不受 locale 影响
const (
	recordDateLayout = "2006-01-02"
	recordTimeLayout = "15:04:05.000000"
)

// lineReplacer 换行替换为空格，用于消息、app/version 和分组名，保证一条记录一行
var lineReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// linePool 日志行缓冲区池
var linePool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, 256)
		return &buf
	},
}

// maxPooledLine 超过该容量的缓冲区不放回池中
const maxPooledLine = 16 * 1024

// RecordHandlerOptions RecordHandler 配置
type RecordHandlerOptions struct {
	// Level 最低级别，nil 表示 LevelInfo
	Level slog.Leveler

	// AddSource 在消息前加上 "file.go::Func:line,," 调用位置
	AddSource bool

	// ReplaceAttr 属性替换函数，语义同 slog.HandlerOptions.ReplaceAttr，
	// 但只作用于用户属性（时间、级别、消息是固定字段）
	ReplaceAttr ReplaceAttrFunc

	// Location 日志行中日期时间使用的时区，nil 表示 UTC
	Location *time.Location
}

// RecordHandler 把 slog 记录渲染为一行文本并交给 Consumer
//
// 行格式：
//
//	app,version,YYYY-MM-DD,HH:MM:SS.ffffff,Label,message key=value ...
//
// WithAttrs/WithGroup 派生的 handler 与父 handler 共享同一把锁，
// 所有对 Consumer 的调用都是串行的。
type RecordHandler struct {
	mu       *sync.Mutex
	consumer Consumer
	head     string // "app,version,"
	opts     RecordHandlerOptions

	preformatted []byte   // WithAttrs 预先渲染的属性
	groups       []string // WithGroup 累积的分组前缀
}

var _ slog.Handler = (*RecordHandler)(nil)

// NewRecordHandler 创建 RecordHandler
//
// consumer 不能为 nil。opts 为 nil 时使用默认值。
func NewRecordHandler(consumer Consumer, app, version string, opts *RecordHandlerOptions) (*RecordHandler, error) {
	if consumer == nil {
		return nil, ErrNilConsumer
	}
	h := &RecordHandler{
		mu:       new(sync.Mutex),
		consumer: consumer,
		head:     lineReplacer.Replace(app) + "," + lineReplacer.Replace(version) + ",",
	}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Location == nil {
		h.opts.Location = time.UTC
	}
	return h, nil
}

// Enabled 实现 slog.Handler
func (h *RecordHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle 实现 slog.Handler，渲染后同步调用 Consumer
func (h *RecordHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	bufp, ok := linePool.Get().(*[]byte)
	if !ok {
		buf := make([]byte, 0, 256)
		bufp = &buf
	}
	buf := (*bufp)[:0]

	t := ts.In(h.opts.Location)
	buf = append(buf, h.head...)
	buf = t.AppendFormat(buf, recordDateLayout)
	buf = append(buf, ',')
	buf = t.AppendFormat(buf, recordTimeLayout)
	buf = append(buf, ',')
	buf = append(buf, Level(r.Level).Label()...)
	buf = append(buf, ',')

	if h.opts.AddSource && r.PC != 0 {
		buf = appendSource(buf, r.PC)
	}
	buf = append(buf, lineReplacer.Replace(r.Message)...)
	buf = append(buf, h.preformatted...)

	r.Attrs(func(a slog.Attr) bool {
		buf = h.appendAttr(buf, h.groups, a)
		return true
	})

	line := string(buf)
	if cap(buf) <= maxPooledLine {
		*bufp = buf
		linePool.Put(bufp)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.consumer.Consume(ts, line)
	return nil
}

// WithAttrs 实现 slog.Handler
func (h *RecordHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := h.clone()
	for _, a := range attrs {
		h2.preformatted = h2.appendAttr(h2.preformatted, h2.groups, a)
	}
	return h2
}

// WithGroup 实现 slog.Handler
func (h *RecordHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.groups = append(h2.groups, lineReplacer.Replace(name))
	return h2
}

func (h *RecordHandler) clone() *RecordHandler {
	return &RecordHandler{
		mu:           h.mu,
		consumer:     h.consumer,
		head:         h.head,
		opts:         h.opts,
		preformatted: append([]byte(nil), h.preformatted...),
		groups:       append([]string(nil), h.groups...),
	}
}

// appendAttr 以 " key=value" 形式追加属性，分组用 "." 连接
func (h *RecordHandler) appendAttr(buf []byte, groups []string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() != slog.KindGroup && h.opts.ReplaceAttr != nil {
		a = h.opts.ReplaceAttr(groups, a)
		a.Value = a.Value.Resolve()
	}
	if a.Equal(slog.Attr{}) {
		return buf
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		if len(attrs) == 0 {
			return buf
		}
		if a.Key != "" {
			groups = append(groups[:len(groups):len(groups)], lineReplacer.Replace(a.Key))
		}
		for _, ga := range attrs {
			buf = h.appendAttr(buf, groups, ga)
		}
		return buf
	}

	buf = append(buf, ' ')
	for _, g := range groups {
		buf = append(buf, g...)
		buf = append(buf, '.')
	}
	buf = appendText(buf, a.Key)
	buf = append(buf, '=')
	return appendValue(buf, a.Value)
}

func appendValue(buf []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		return appendText(buf, v.String())
	case slog.KindInt64:
		return strconv.AppendInt(buf, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(buf, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(buf, v.Float64(), 'g', -1, 64)
	case slog.KindBool:
		return strconv.AppendBool(buf, v.Bool())
	case slog.KindDuration:
		return append(buf, v.Duration().String()...)
	case slog.KindTime:
		return v.Time().AppendFormat(buf, time.RFC3339Nano)
	default:
		if err, ok := v.Any().(error); ok {
			return appendText(buf, err.Error())
		}
		return appendText(buf, v.String())
	}
}

// appendText 含空白、引号、等号、逗号或非法 UTF-8 时加引号
func appendText(buf []byte, s string) []byte {
	if needsQuoting(s) {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	if !utf8.ValidString(s) {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '"' || r == '=' || r == ',' || r == 0x7f {
			return true
		}
	}
	return false
}

// appendSource 追加 "file.go::Func:line,,"
func appendSource(buf []byte, pc uintptr) []byte {
	frames := runtime.CallersFrames([]uintptr{pc})
	f, _ := frames.Next()
	if f.File == "" {
		return buf
	}
	fn := f.Function
	if i := strings.LastIndexByte(fn, '.'); i >= 0 {
		fn = fn[i+1:]
	}
	buf = append(buf, filepath.Base(f.File)...)
	buf = append(buf, "::"...)
	buf = append(buf, fn...)
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, int64(f.Line), 10)
	return append(buf, ",,"...)
}
