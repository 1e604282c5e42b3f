package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xdaylog/pkg/config/xconf"
	"github.com/omeyang/xdaylog/pkg/lifecycle/xrun"
	"github.com/omeyang/xdaylog/pkg/observability/xlog"
	"github.com/omeyang/xdaylog/pkg/observability/xrotate"
)

// maxLineSize 单行上限，超过时 write 以错误退出
const maxLineSize = 1 << 20

// createWriteCommand 创建 write 子命令。
func createWriteCommand() *cli.Command {
	return &cli.Command{
		Name:  "write",
		Usage: "逐行读取标准输入并写入日志目录",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "app",
				Usage: "记录行中的应用名（默认取 suffix 或配置文件 app）",
			},
			&cli.StringFlag{
				Name:  "app-version",
				Usage: "记录行中的版本号（默认取配置文件 version）",
				Value: "0.0.0",
			},
			&cli.StringFlag{
				Name:    "level",
				Aliases: []string{"l"},
				Usage:   "每行记录使用的级别",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "threshold",
				Usage: "最低输出级别（默认取配置文件 level，否则 info）",
			},
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "原样写入每一行，不加 app/version/时间/级别前缀",
			},
			&cli.BoolFlag{
				Name:  "no-auto-flush",
				Usage: "关闭每条记录后的刷盘，改为按 --flush-interval 定期刷盘",
			},
			&cli.DurationFlag{
				Name:  "flush-interval",
				Usage: "关闭自动刷盘时的定期刷盘间隔",
				Value: time.Second,
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "监视配置文件，level 变更后立即生效（需要 --config）",
			},
			&cli.StringFlag{
				Name:  "self-log",
				Usage: "xdaylogctl 自身日志文件（lumberjack 轮转），默认写 stderr",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			opts, err := writeOptionsFrom(cmd, s)
			if err != nil {
				return err
			}
			return cmdWrite(ctx, cmd.Root().Reader, cmd.Root().ErrWriter, s, opts)
		},
	}
}

// writeOptions write 命令的参数
type writeOptions struct {
	app           string
	version       string
	level         xlog.Level
	threshold     xlog.Level
	raw           bool
	flushInterval time.Duration // 0 表示每条记录后刷盘
	watch         bool
	selfLog       string
}

func writeOptionsFrom(cmd *cli.Command, s *settings) (*writeOptions, error) {
	o := &writeOptions{
		app:     firstNonEmpty(cmd.String("app"), s.fileString(keyApp), s.sink.Suffix),
		version: cmd.String("app-version"),
		raw:     cmd.Bool("raw"),
		watch:   cmd.Bool("watch"),
		selfLog: cmd.String("self-log"),
	}
	if !cmd.IsSet("app-version") {
		o.version = firstNonEmpty(s.fileString(keyVersion), o.version)
	}

	level, err := xlog.ParseLevel(cmd.String("level"))
	if err != nil {
		return nil, newUsageError("--level: %v", err)
	}
	o.level = level

	threshold := firstNonEmpty(cmd.String("threshold"), s.fileString(keyLevel), "info")
	if o.threshold, err = xlog.ParseLevel(threshold); err != nil {
		return nil, newUsageError("threshold: %v", err)
	}

	if cmd.Bool("no-auto-flush") {
		if cmd.Duration("flush-interval") <= 0 {
			return nil, newUsageError("--flush-interval 必须为正数")
		}
		o.flushInterval = cmd.Duration("flush-interval")
	}
	if o.watch && s.file == nil {
		return nil, newUsageError("--watch 需要 --config")
	}
	return o, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// newSelfLogger 创建 xdaylogctl 自身的日志，与被写入的日志目录无关
func newSelfLogger(path string, stderr io.Writer) (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().SetLevel(xlog.LevelInfo)
	if path != "" {
		b.SetRotation(path, xrotate.WithMaxSize(10), xrotate.WithMaxBackups(3)).SetFormat("json")
	} else {
		b.SetOutput(stderr).SetLevel(xlog.LevelWarn)
	}
	return b.Build()
}

func cmdWrite(ctx context.Context, in io.Reader, stderr io.Writer, s *settings, o *writeOptions) (err error) {
	selfLog, closeSelf, err := newSelfLogger(o.selfLog, stderr)
	if err != nil {
		return newUsageError("--self-log: %v", err)
	}
	defer func() { err = errors.Join(err, closeSelf()) }()

	extra := []xrotate.Option{xrotate.WithOnError(func(err error) {
		selfLog.Warn(ctx, "sink error", xlog.Err(err))
	})}
	if o.flushInterval > 0 {
		extra = append(extra, xrotate.WithAutoFlush(false))
	}
	rot, err := s.sink.NewRotator(extra...)
	if err != nil {
		return newUsageError("%v", err)
	}
	defer func() { err = errors.Join(err, rot.Close()) }()

	logger, closeLogger, err := xlog.New().
		SetLevel(o.threshold).
		SetLocalTime(s.sink.LocalTime).
		SetSink(rot, o.app, o.version).
		SetOnError(func(err error) { selfLog.Warn(ctx, "record dropped", xlog.Err(err)) }).
		Build()
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeLogger()) }()

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	services := []xrun.Service{xrun.ServiceFunc(func(ctx context.Context) error {
		defer stop()
		return pump(ctx, in, func(line string) {
			if o.raw {
				rot.Consume(time.Now(), line)
				return
			}
			logger.Log(ctx, o.level, line)
		})
	})}

	if o.flushInterval > 0 {
		services = append(services, xrun.ServiceFunc(xrun.Ticker(o.flushInterval, false,
			func(context.Context) error {
				if err := rot.Flush(); err != nil {
					selfLog.Warn(ctx, "flush failed", xlog.Err(err))
				}
				return nil
			})))
	}

	if o.watch {
		w, err := s.file.Watch(levelReloader(ctx, logger, selfLog))
		if err != nil {
			return err
		}
		services = append(services, w)
	}

	selfLog.Info(ctx, "writing",
		xlog.Path(s.sink.TargetRoot),
		xlog.Component(s.sink.Suffix),
		xlog.Size(rotationSize(s.sink)),
	)

	err = xrun.RunServices(ctx, []xrun.Option{xrun.WithLogger(selfLog), xrun.WithName("xdaylogctl")}, services...)
	if errors.Is(err, xrun.ErrSignal) {
		selfLog.Info(ctx, "stopped by signal", xlog.Err(err))
		return nil
	}
	return err
}

// rotationSize 返回生效的轮转大小，仅用于日志
func rotationSize(dc xrotate.DailyConfig) int64 {
	if dc.RotationSize == "" {
		return xrotate.DefaultRotationSize
	}
	n, err := xrotate.ParseSize(dc.RotationSize)
	if err != nil {
		return 0
	}
	return n
}

// levelReloader 配置文件变更后按 level 键更新输出阈值
func levelReloader(ctx context.Context, logger xlog.LoggerWithLevel, selfLog xlog.Logger) xconf.ReloadFunc {
	return func(c *xconf.Config, err error) {
		if err != nil {
			selfLog.Warn(ctx, "config reload failed", xlog.Err(err))
			return
		}
		raw := c.String(keyLevel)
		if raw == "" {
			return
		}
		level, err := xlog.ParseLevel(raw)
		if err != nil {
			selfLog.Warn(ctx, "config reload ignored", xlog.Err(err))
			return
		}
		if level != logger.GetLevel() {
			logger.SetLevel(level)
			selfLog.Info(ctx, "threshold changed", xlog.Operation("reload"), xlog.Path(c.Path()))
		}
	}
}

// pump 逐行读取 r 并交给 emit，直到 EOF 或 ctx 取消
//
// 读取在独立 goroutine 中进行，ctx 取消时不等待阻塞中的 Read 返回。
func pump(ctx context.Context, r io.Reader, emit func(line string)) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return nil
			}
			emit(line)
		case <-ctx.Done():
			return nil
		}
	}
}
