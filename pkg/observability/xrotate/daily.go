package xrotate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/omeyang/xdaylog/pkg/util/xfile"
)

// DailySink 默认配置值
const (
	// DefaultRotationSize 默认单个文件软上限（约 10MB）
	DefaultRotationSize int64 = 100 * 100 * 1024

	// DefaultAutoFlush 默认每条记录后刷出缓冲区
	DefaultAutoFlush = true

	// DefaultFileMode 默认日志文件权限
	DefaultFileMode os.FileMode = 0644

	// DefaultDirMode 默认按月目录权限
	DefaultDirMode os.FileMode = xfile.DefaultDirPerm

	// bufferSize autoFlush 关闭时的进程内缓冲区大小
	bufferSize = 64 * 1024
)

// logFile DailySink 对已打开文件的最小依赖，测试中可替换
type logFile interface {
	io.Writer
	Close() error
	Stat() (os.FileInfo, error)
}

func openLogFile(name string, flag int, perm os.FileMode) (logFile, error) {
	//#nosec G304 -- 路径由 targetRoot、日期和已校验的后缀拼接而成
	return os.OpenFile(name, flag, perm)
}

// DailySink 按天、按大小轮转的日志文件写入器
//
// 文件布局：
//
//	<targetRoot>/<YYYY-MM>/<YYYY-MM-DD>[<n>]_<suffix>.log
//
// 同一天同一后缀的第一个文件不带序号，之后依次为 [1]、[2]……
// 下一个序号总是通过列目录恢复，不在磁盘上保存任何索引状态，
// 因此进程重启后会接着已有的最大序号继续编号。
//
// DailySink 不做任何加锁，不能被并发调用。需要多 goroutine 写入时，
// 使用 [NewDaily] 返回的 [DailyRotator]，或由上层（如 xlog.RecordHandler）串行化。
type DailySink struct {
	root         string
	suffix       string
	rotationSize int64
	autoFlush    bool
	loc          *time.Location
	fileMode     os.FileMode
	dirMode      os.FileMode
	onError      func(error)
	metrics      *sinkMetrics

	path    string // 当前文件路径，未打开时为空
	day     string // 当前文件的日期前缀
	file    logFile
	w       *bufio.Writer
	written int64 // 当前文件已写字节数（重新打开已有文件时从文件大小开始）
	broken  bool  // 最近一次写入或刷盘失败

	// 可注入的文件系统操作，仅用于测试
	openFn  func(string, int, os.FileMode) (logFile, error)
	mkdirFn func(string, os.FileMode) error
	listFn  func(string) ([]string, error)
}

// NewDailySink 创建按天轮转的日志写入器
//
// 参数:
//   - targetRoot: 日志根目录（必需），相对路径会在此时解析为绝对路径
//   - suffix: 文件名后缀（必需），通常为应用名
//   - opts: WithRotationSize、WithAutoFlush、WithLocalTime、WithFileMode、
//     WithDirMode、WithOnError、WithMeterProvider
//
// 构造时不会创建任何目录或文件，第一条记录到达时才打开文件。
func NewDailySink(targetRoot, suffix string, opts ...Option) (*DailySink, error) {
	if targetRoot == "" {
		return nil, ErrEmptyTargetRoot
	}
	if suffix == "" {
		return nil, ErrEmptySuffix
	}
	if !validSuffix(suffix) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSuffix, suffix)
	}

	cfg := options{
		rotationSize: DefaultRotationSize,
		autoFlush:    DefaultAutoFlush,
		fileMode:     DefaultFileMode,
		dirMode:      DefaultDirMode,
	}
	applyOptions(&cfg, opts)

	if err := validateDailyOptions(&cfg); err != nil {
		return nil, err
	}

	root, err := xfile.CleanDir(targetRoot)
	if err != nil {
		return nil, err
	}

	m, err := newSinkMetrics(cfg.meterProvider, suffix)
	if err != nil {
		return nil, err
	}

	loc := time.UTC
	if cfg.localTime {
		loc = time.Local
	}

	return &DailySink{
		root:         root,
		suffix:       suffix,
		rotationSize: cfg.rotationSize,
		autoFlush:    cfg.autoFlush,
		loc:          loc,
		fileMode:     cfg.fileMode,
		dirMode:      cfg.dirMode,
		onError:      cfg.onError,
		metrics:      m,
		openFn:       openLogFile,
		mkdirFn:      xfile.EnsureDirWithPerm,
		listFn:       xfile.ListNames,
	}, nil
}

func validateDailyOptions(cfg *options) error {
	if cfg.rotationSize <= 0 {
		return fmt.Errorf("%w: got %d, want > 0", ErrInvalidRotationSize, cfg.rotationSize)
	}
	if cfg.fileMode&^os.FileMode(0o777) != 0 {
		return fmt.Errorf("%w: got %04o, only permission bits (0000~0777) allowed",
			ErrInvalidFileMode, cfg.fileMode)
	}
	if cfg.dirMode&^os.FileMode(0o777) != 0 || cfg.dirMode&0o100 == 0 {
		return fmt.Errorf("%w: directory mode %04o needs owner execute bit",
			ErrInvalidFileMode, cfg.dirMode)
	}
	return nil
}

// Consume 写入一条已格式化的记录
//
// msg 不应包含换行符，写入时会追加一个 '\n'。ts 只用于决定文件名
// 和按月目录，不做顺序校验。
//
// 处理顺序：
//  1. 已打开文件且 已写字节 + len(msg) >= 上限：先轮转
//  2. 否则已打开文件但上次写入失败：轮转（自愈）
//  3. 否则已打开文件但 ts 已是另一个日历日：轮转
//  4. 没有打开的文件：计算路径、建目录、打开；失败则丢弃本条记录
//  5. 写入 msg + "\n"
//  6. autoFlush 时刷出缓冲区
//
// Consume 从不返回错误也不 panic，失败通过 WithOnError 回调上报。
// 单条超过上限的记录仍会写入（新文件），下一条记录才会触发轮转。
func (s *DailySink) Consume(ts time.Time, msg string) {
	if s.file != nil {
		switch {
		case s.written+int64(len(msg)) >= s.rotationSize:
			s.rotate(reasonSize)
		case s.broken:
			s.rotate(reasonBroken)
		case DatePrefix(ts, s.loc) != s.day:
			s.rotate(reasonDay)
		}
	}

	if s.file == nil && !s.open(ts) {
		return
	}

	s.write(msg)
}

// open 计算路径并打开文件，失败时保持未打开状态
func (s *DailySink) open(ts time.Time) bool {
	path, err := s.NextPath(ts)
	if err != nil {
		s.metrics.drop(reasonOpen)
		s.report(fmt.Errorf("%w: %w", ErrFileOpen, err))
		return false
	}

	if err := s.mkdirFn(path, s.dirMode); err != nil {
		s.metrics.drop(reasonDirCreate)
		s.report(fmt.Errorf("%w: %s: %w", ErrDirCreate, filepath.Dir(path), err))
		return false
	}

	f, err := s.openFn(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, s.fileMode)
	if err != nil {
		s.metrics.drop(reasonOpen)
		s.report(fmt.Errorf("%w: %s: %w", ErrFileOpen, path, err))
		return false
	}

	// 计算路径与打开之间，同名文件可能已被另一个进程创建。O_APPEND 续写，
	// 计数从文件当前大小开始，轮转判断仍以磁盘上的实际大小为准。
	var size int64
	if info, statErr := f.Stat(); statErr == nil {
		size = info.Size()
	}

	s.file = f
	s.w = bufio.NewWriterSize(f, bufferSize)
	s.path = path
	s.day = DatePrefix(ts, s.loc)
	s.written = size
	s.broken = false
	return true
}

func (s *DailySink) write(msg string) {
	n, err := s.w.WriteString(msg)
	if err == nil {
		err = s.w.WriteByte('\n')
		if err == nil {
			n++
		}
	}
	s.written += int64(n)

	if err == nil && s.autoFlush {
		err = s.w.Flush()
	}
	if err != nil {
		s.broken = true
		s.report(fmt.Errorf("%w: %s: %w", ErrWrite, s.path, err))
		return
	}
	s.metrics.written(n)
}

// rotate 关闭当前文件并重置计数，错误只上报不返回
func (s *DailySink) rotate(reason string) {
	if err := s.closeFile(); err != nil {
		s.report(fmt.Errorf("%w: %w", ErrWrite, err))
	}
	s.metrics.rotated(reason)
}

// closeFile 刷出缓冲区并关闭当前文件，无论成功与否都回到未打开状态
func (s *DailySink) closeFile() error {
	if s.file == nil {
		return nil
	}
	var flushErr error
	if !s.broken {
		flushErr = s.w.Flush()
	}
	closeErr := s.file.Close()

	s.file = nil
	s.w = nil
	s.path = ""
	s.day = ""
	s.written = 0
	s.broken = false
	return errors.Join(flushErr, closeErr)
}

// Rotate 手动轮转：关闭当前文件，下一条记录会打开新文件
//
// 没有打开的文件时什么也不做。返回关闭文件时的错误。
func (s *DailySink) Rotate() error {
	if s.file == nil {
		return nil
	}
	err := s.closeFile()
	s.metrics.rotated(reasonManual)
	return err
}

// Flush 把缓冲区中的记录写入文件，未打开文件或已损坏时什么也不做
//
// 关闭 autoFlush 时可由调用方定期调用，限制崩溃时丢失的记录数。
func (s *DailySink) Flush() error {
	if s.file == nil || s.broken {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		s.broken = true
		return fmt.Errorf("%w: %s: %w", ErrWrite, s.path, err)
	}
	return nil
}

// Close 刷出缓冲区并关闭当前文件
//
// 关闭后再调用 Consume 会重新惰性打开文件；需要"关闭后拒绝写入"
// 语义时使用 [DailyRotator]。
func (s *DailySink) Close() error {
	return s.closeFile()
}

// CurrentPath 返回当前打开的文件路径，未打开时为空字符串
func (s *DailySink) CurrentPath() string {
	return s.path
}

// BytesWritten 返回当前文件已写入的字节数
func (s *DailySink) BytesWritten() int64 {
	return s.written
}

// TargetRoot 返回解析后的日志根目录
func (s *DailySink) TargetRoot() string {
	return s.root
}

// NextPath 计算 ts 对应的下一个不冲突的文件路径
//
// 日期前缀与按月目录来自同一时刻，避免月末跨越时目录与文件名不一致。
// 目录不存在视为当天没有文件；目录不可读同样按没有文件处理，
// 并通过 OnError 上报 [ErrDirScan]。
func (s *DailySink) NextPath(ts time.Time) (string, error) {
	t := ts.In(s.loc)
	datePrefix := t.Format(dateLayout)
	month := t.Format(monthLayout)

	monthPath, err := xfile.SafeJoin(s.root, month)
	if err != nil {
		return "", err
	}

	names, err := s.listFn(monthPath)
	if err != nil {
		s.report(fmt.Errorf("%w: %s: %w", ErrDirScan, monthPath, err))
		names = nil
	}

	name := FileName(datePrefix, NextIndex(names, datePrefix, s.suffix), s.suffix)
	return xfile.SafeJoin(monthPath, name)
}

// report 通过回调上报内部错误，回调 panic 被隔离
func (s *DailySink) report(err error) {
	if err == nil || s.onError == nil {
		return
	}
	defer func() { recover() }() //nolint:errcheck // recover 返回值无需检查
	s.onError(err)
}
