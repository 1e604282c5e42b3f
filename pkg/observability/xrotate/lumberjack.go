package xrotate

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xdaylog/pkg/util/xfile"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Lumberjack 默认配置值
const (
	// DefaultMaxSizeMB 默认单个文件最大大小（MB）
	DefaultMaxSizeMB = 100

	// DefaultMaxBackups 默认保留的备份文件数量
	DefaultMaxBackups = 7

	// DefaultMaxAgeDays 默认保留备份的天数
	DefaultMaxAgeDays = 30

	maxSizeMB  = 10240
	maxBackups = 1024
	maxAgeDays = 3650
)

// lumberjackRotator 单文件、按大小轮转的 Rotator
//
// 与 DailySink 不同，当前文件名固定，轮转时旧文件被重命名为带时间戳的
// 备份并按数量/天数清理。适合工具自身的诊断日志，业务日志使用 [NewDaily]。
type lumberjackRotator struct {
	logger   *lumberjack.Logger
	path     string
	fileMode os.FileMode // 0 表示沿用 lumberjack 默认的 0600
	onError  func(error)

	mu     sync.Mutex // 保护 Stat+Chmod
	closed atomic.Bool

	// lumberjack 自动轮转后新文件权限回到 0600，用累计字节数估算轮转时机，
	// 避免每次 Write 都 Stat。
	modeApplied  atomic.Bool
	maxSizeBytes int64
	bytesWritten atomic.Int64

	// 可注入的系统调用，仅用于测试
	statFn  func(string) (os.FileInfo, error)
	chmodFn func(string, os.FileMode) error
}

// NewLumberjack 创建基于 lumberjack 的按大小轮转器
//
// 支持的选项：WithMaxSize、WithMaxBackups、WithMaxAge、WithCompress、
// WithLocalTime、WithFileMode、WithOnError。父目录不存在时以 0750 创建。
func NewLumberjack(filename string, opts ...Option) (Rotator, error) {
	if filename == "" {
		return nil, ErrEmptyFilename
	}

	cfg := options{
		maxSizeMB:  DefaultMaxSizeMB,
		maxBackups: DefaultMaxBackups,
		maxAgeDays: DefaultMaxAgeDays,
	}
	applyOptions(&cfg, opts)

	if err := validateLumberjackOptions(&cfg); err != nil {
		return nil, err
	}

	if err := xfile.EnsureDir(filename); err != nil {
		return nil, err
	}

	return &lumberjackRotator{
		logger: &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    cfg.maxSizeMB,
			MaxBackups: cfg.maxBackups,
			MaxAge:     cfg.maxAgeDays,
			Compress:   cfg.compress,
			LocalTime:  cfg.localTime,
		},
		path:         filename,
		fileMode:     cfg.fileMode,
		onError:      cfg.onError,
		maxSizeBytes: int64(cfg.maxSizeMB) * 1024 * 1024,
	}, nil
}

func validateLumberjackOptions(cfg *options) error {
	if cfg.maxSizeMB <= 0 || cfg.maxSizeMB > maxSizeMB {
		return fmt.Errorf("%w: got %d, want 1~%d", ErrInvalidMaxSize, cfg.maxSizeMB, maxSizeMB)
	}
	if cfg.maxBackups < 0 || cfg.maxBackups > maxBackups {
		return fmt.Errorf("%w: got %d, want 0~%d", ErrInvalidMaxBackups, cfg.maxBackups, maxBackups)
	}
	if cfg.maxAgeDays < 0 || cfg.maxAgeDays > maxAgeDays {
		return fmt.Errorf("%w: got %d, want 0~%d", ErrInvalidMaxAge, cfg.maxAgeDays, maxAgeDays)
	}
	if cfg.maxBackups == 0 && cfg.maxAgeDays == 0 {
		return fmt.Errorf("%w: MaxBackups and MaxAgeDays cannot both be 0", ErrNoCleanupPolicy)
	}
	if cfg.fileMode&^os.FileMode(0o777) != 0 {
		return fmt.Errorf("%w: got %04o, only permission bits (0000~0777) allowed",
			ErrInvalidFileMode, cfg.fileMode)
	}
	return nil
}

// Write 实现 io.Writer 接口
func (r *lumberjackRotator) Write(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}

	n, err := r.logger.Write(p)
	if err != nil {
		// Close 可能在 logger.Write 执行期间完成，保证调用方拿到 ErrClosed
		if r.closed.Load() {
			return n, ErrClosed
		}
		return n, err
	}

	if r.fileMode != 0 {
		needCheck := !r.modeApplied.Load()
		if !needCheck && r.bytesWritten.Add(int64(n)) >= r.maxSizeBytes {
			needCheck = true
		}
		if needCheck {
			r.report(r.ensureFileMode())
		}
	}
	return n, nil
}

// ensureFileMode Stat 后按需 Chmod，成功后重置累计字节数
func (r *lumberjackRotator) ensureFileMode() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stat := r.statFn
	if stat == nil {
		stat = os.Stat
	}
	info, err := stat(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if info.Mode().Perm() != r.fileMode {
		chmod := r.chmodFn
		if chmod == nil {
			chmod = os.Chmod
		}
		//#nosec G302 -- 日志文件权限由调用方配置决定
		if err := chmod(r.path, r.fileMode); err != nil {
			return err
		}
	}

	r.modeApplied.Store(true)
	r.bytesWritten.Store(0)
	return nil
}

func (r *lumberjackRotator) report(err error) {
	if err != nil && r.onError != nil {
		defer func() { recover() }() //nolint:errcheck // recover 返回值无需检查
		r.onError(err)
	}
}

// Close 实现 io.Closer 接口，重复调用返回 [ErrClosed]
func (r *lumberjackRotator) Close() error {
	if r.closed.Swap(true) {
		return ErrClosed
	}
	return r.logger.Close()
}

// Rotate 手动触发轮转
func (r *lumberjackRotator) Rotate() error {
	if r.closed.Load() {
		return ErrClosed
	}
	if err := r.logger.Rotate(); err != nil {
		if r.closed.Load() {
			return ErrClosed
		}
		return err
	}
	if r.fileMode != 0 {
		r.modeApplied.Store(false)
		r.bytesWritten.Store(0)
		r.report(r.ensureFileMode())
	}
	return nil
}
