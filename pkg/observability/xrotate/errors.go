package xrotate

import "errors"

// 配置校验错误，由构造函数返回
var (
	// ErrEmptyFilename 文件名为空
	ErrEmptyFilename = errors.New("xrotate: filename is required")

	// ErrEmptyTargetRoot 日志根目录为空
	ErrEmptyTargetRoot = errors.New("xrotate: target root is required")

	// ErrEmptySuffix 文件名后缀为空
	ErrEmptySuffix = errors.New("xrotate: file name suffix is required")

	// ErrInvalidSuffix 文件名后缀包含路径分隔符、方括号或空字节
	ErrInvalidSuffix = errors.New("xrotate: invalid file name suffix")

	// ErrInvalidRotationSize 轮转大小必须 > 0
	ErrInvalidRotationSize = errors.New("xrotate: invalid rotation size")

	// ErrInvalidMaxSize MaxSizeMB 值无效（必须在 1~10240 范围内）
	ErrInvalidMaxSize = errors.New("xrotate: invalid MaxSizeMB")

	// ErrInvalidMaxBackups MaxBackups 值无效（必须在 0~1024 范围内）
	ErrInvalidMaxBackups = errors.New("xrotate: invalid MaxBackups")

	// ErrInvalidMaxAge MaxAgeDays 值无效（必须在 0~3650 范围内）
	ErrInvalidMaxAge = errors.New("xrotate: invalid MaxAgeDays")

	// ErrNoCleanupPolicy MaxBackups 和 MaxAgeDays 不能同时为 0
	ErrNoCleanupPolicy = errors.New("xrotate: no cleanup policy configured")

	// ErrInvalidFileMode 权限包含非权限位（仅允许 0000~0777）
	ErrInvalidFileMode = errors.New("xrotate: invalid file mode")

	// ErrInvalidSize 无法解析的大小字符串
	ErrInvalidSize = errors.New("xrotate: invalid size")

	// ErrClosed 轮转器已关闭
	ErrClosed = errors.New("xrotate: rotator is closed")
)

// DailySink 运行期错误
//
// DailySink.Consume 从不向调用方返回错误，这些错误只会包装后
// 交给 WithOnError 注册的回调，便于接入告警。
var (
	// ErrDirCreate 按月目录创建失败，本条记录被丢弃，下一条记录重试
	ErrDirCreate = errors.New("xrotate: create log directory failed")

	// ErrFileOpen 日志文件打开失败，本条记录被丢弃，下一条记录重新计算路径
	ErrFileOpen = errors.New("xrotate: open log file failed")

	// ErrWrite 写入或刷盘失败，下一条记录前会先轮转到新文件
	ErrWrite = errors.New("xrotate: write log file failed")

	// ErrDirScan 扫描按月目录失败，按"当天没有已存在文件"处理
	ErrDirScan = errors.New("xrotate: scan log directory failed")
)
