// Package xrun 基于 errgroup 的进程生命周期管理。
//
// 多个服务共享一个 context：任一服务失败、调用 Cancel 或收到
// SIGHUP/SIGINT/SIGTERM/SIGQUIT 时 context 取消，所有服务应尽快返回。
//
// xdaylogctl 的 write 命令用它同时运行：
//
//	err := xrun.RunServices(ctx, []xrun.Option{xrun.WithLogger(selfLog)},
//	    xrun.ServiceFunc(pump),    // 标准输入 -> DailyRotator
//	    watcher,                   // *xconf.Watcher，配置热重载
//	    xrun.ServiceFunc(xrun.Ticker(time.Second, false, flush)),
//	)
//
// 因信号退出时返回 *SignalError，errors.Is(err, xrun.ErrSignal) 为 true。
package xrun
