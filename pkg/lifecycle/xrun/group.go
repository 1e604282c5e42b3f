package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xdaylog/pkg/observability/xlog"
)

// Group 管理一组并发运行的服务
//
// 任一服务返回非 nil 错误或调用 Cancel 时，所有服务共享的 context 被取消。
// Wait 返回第一个错误，取消原因（如 *SignalError）优先于 context.Canceled。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// NewGroup 创建服务组，返回的 context 在组内任一服务失败或 Cancel 时取消
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)

	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     options,
	}, egCtx
}

// Go 启动一个服务，fn 为 nil 时该服务立即返回 ErrNilFunc
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 启动一个具名服务，启停通过 WithLogger 设置的 Logger 记录
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		attrs := []slog.Attr{slog.String("group", g.opts.name), slog.String("service", name)}

		g.log(xlog.LevelDebug, "service starting", attrs...)
		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.log(xlog.LevelWarn, "service exited with error", append(attrs, xlog.Err(err))...)
		} else {
			g.log(xlog.LevelDebug, "service stopped", attrs...)
		}
		return err
	})
}

// Wait 等待所有服务退出
//
// 因 Cancel(cause) 或信号退出时返回 cause；cause 为 nil 或
// context.Canceled 时视为正常退出，返回 nil。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	g.log(xlog.LevelDebug, "all services stopped", slog.String("group", g.opts.name))

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if g.causeCtx.Err() != nil {
		if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
		return nil
	}
	return err
}

// Cancel 以 cause 取消所有服务，cause 为 nil 时 Wait 返回 nil
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context 返回组内服务共享的 context
func (g *Group) Context() context.Context {
	return g.ctx
}

func (g *Group) log(level xlog.Level, msg string, attrs ...slog.Attr) {
	if g.opts.logger == nil {
		return
	}
	g.opts.logger.Log(g.causeCtx, level, msg, attrs...)
}

// runGroup 创建 Group、按需注册信号处理、调用 setup 添加服务并等待
func runGroup(ctx context.Context, opts []Option, setup func(g *Group)) error {
	g, _ := NewGroup(ctx, opts...)

	if !g.opts.noSignalHandler {
		signals := g.opts.signals
		if len(signals) == 0 {
			signals = DefaultSignals()
		}

		g.Go(func(ctx context.Context) error {
			testc := testSigChan(ctx)
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, signals...)
			defer signal.Stop(sigCh)

			var sig os.Signal
			select {
			case sig = <-testc:
			case sig = <-sigCh:
			case <-ctx.Done():
				return ctx.Err()
			}

			g.log(xlog.LevelInfo, "received signal",
				slog.String("group", g.opts.name),
				slog.String("signal", sig.String()),
			)
			g.cancel(&SignalError{Signal: sig})
			return nil
		})
	}

	setup(g)
	return g.Wait()
}

// Run 并发运行 services，直到全部返回、任一失败或收到 DefaultSignals 中的信号
func Run(ctx context.Context, services ...func(ctx context.Context) error) error {
	return RunWithOptions(ctx, nil, services...)
}

// RunWithOptions 同 Run，可指定 Logger、名称与信号
func RunWithOptions(ctx context.Context, opts []Option, services ...func(ctx context.Context) error) error {
	return runGroup(ctx, opts, func(g *Group) {
		for _, svc := range services {
			g.Go(svc)
		}
	})
}

// Service 可运行的服务，Run 应在 ctx 取消后尽快返回
//
// *xconf.Watcher 满足该接口。
type Service interface {
	Run(ctx context.Context) error
}

// ServiceFunc 函数形式的 Service
type ServiceFunc func(ctx context.Context) error

// Run 实现 Service
func (f ServiceFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// RunServices 以 Service 形式运行服务
func RunServices(ctx context.Context, opts []Option, services ...Service) error {
	return runGroup(ctx, opts, func(g *Group) {
		for _, svc := range services {
			if svc == nil {
				g.Go(func(context.Context) error { return ErrNilService })
				continue
			}
			g.Go(svc.Run)
		}
	})
}
