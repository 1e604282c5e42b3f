package xrotate

import (
	"bytes"
	"sync"
	"sync/atomic"
	"time"
)

// DailyRotator 并发安全的 DailySink 包装
//
// 以互斥锁把多个 goroutine 的写入串行化到同一个 DailySink，
// 同时实现 [Rotator]，可作为 slog Text/JSON handler 的输出目标。
type DailyRotator struct {
	mu      sync.Mutex
	sink    *DailySink
	now     func() time.Time
	pending []byte // Write 收到的尚未以换行结尾的数据

	closed atomic.Bool
}

// NewDaily 创建并发安全的按天轮转器
//
// 参数与 [NewDailySink] 相同，另外支持 WithClock 指定 Write 路径的时钟。
func NewDaily(targetRoot, suffix string, opts ...Option) (*DailyRotator, error) {
	sink, err := NewDailySink(targetRoot, suffix, opts...)
	if err != nil {
		return nil, err
	}
	cfg := options{now: time.Now}
	applyOptions(&cfg, opts)

	return &DailyRotator{sink: sink, now: cfg.now}, nil
}

// Consume 串行化地把一条记录交给底层 DailySink
//
// 关闭后的记录被静默丢弃，与 DailySink 不向调用方报错的约定一致。
func (r *DailyRotator) Consume(ts time.Time, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return
	}
	r.sink.Consume(ts, msg)
}

// Write 实现 io.Writer
//
// 按 '\n' 切分，每一行作为一条记录写入，时间取自 WithClock（默认 time.Now）。
// 不以换行结尾的尾部数据暂存，直到后续 Write 补齐或 Close 时写出。
// 底层 I/O 失败不会返回给调用方（见 [DailySink.Consume]），
// 返回值总是 len(p)，除非轮转器已关闭。
func (r *DailyRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return 0, ErrClosed
	}

	data := p
	if len(r.pending) > 0 {
		data = append(r.pending, p...)
		r.pending = nil
	}

	now := r.now()
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		r.sink.Consume(now, string(data[:i]))
		data = data[i+1:]
	}
	if len(data) > 0 {
		r.pending = append([]byte(nil), data...)
	}
	return len(p), nil
}

// Rotate 手动触发轮转
func (r *DailyRotator) Rotate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return ErrClosed
	}
	return r.sink.Rotate()
}

// Flush 刷出底层 DailySink 的缓冲区，不写出暂存的半行
func (r *DailyRotator) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return ErrClosed
	}
	return r.sink.Flush()
}

// Close 写出暂存的半行并关闭文件，重复调用返回 [ErrClosed]
func (r *DailyRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Swap(true) {
		return ErrClosed
	}
	if len(r.pending) > 0 {
		r.sink.Consume(r.now(), string(r.pending))
		r.pending = nil
	}
	return r.sink.Close()
}

// CurrentPath 返回当前打开的文件路径
func (r *DailyRotator) CurrentPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sink.CurrentPath()
}

// NextPath 返回 ts 对应的下一个文件路径（不打开文件）
func (r *DailyRotator) NextPath(ts time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sink.NextPath(ts)
}
