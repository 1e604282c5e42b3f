// Package xlog 基于 log/slog 的结构化日志库。
//
// # 创建 Logger
//
// 使用 Builder 模式（first-error-wins：Build 返回遇到的第一个配置错误）：
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("info").
//		SetDailySink("/var/log/myapp", "myapp", "myapp", "1.0.0").
//		Build()
//	defer cleanup()
//
// 输出目标：
//   - [Builder.SetOutput]: 任意 io.Writer，text 或 json 格式
//   - [Builder.SetRotation]: lumberjack 单文件按大小轮转
//   - [Builder.SetSink]: 渲染为单行记录交给 [Consumer]
//   - [Builder.SetDailySink]: 同上，Consumer 为 xrotate.DailySink，按天按大小轮转
//
// 没有全局 Logger，由调用方构造后显式传递。
//
// # 日志级别
//
// 在 slog 四个级别之间扩展出十级，数值越大越严重：
//
//	Foo(-8) Debug(-4) Report(-2) Information(0) Success(2)
//	Warning(4) Error(8) Fail(10) Exception(12) Critical(16)
//
// [Level.Label] 返回写入日志的显示名，表外的数值输出为整数。
// Debug/Info/Warn/Error 有专用方法，其余级别使用 [Logger.Log]，
// [Logger.Stack] 以 Exception 级别附带调用栈。
//
// # 记录行格式
//
// [RecordHandler] 输出：
//
//	app,version,YYYY-MM-DD,HH:MM:SS.ffffff,Label,message key=value ...
//
// 消息中的换行替换为空格。开启 AddSource 时消息前加 "file.go::Func:line,,"。
// 派生 handler 共享同一把锁，Consumer 不需要并发安全。
//
// # 派生 Logger 与级别控制
//
// [Logger.With] 和 [Logger.WithGroup] 返回 [Logger]，底层实现同时实现
// [LoggerWithLevel]，共享父级的 LevelVar，动态级别变更会同步生效。
package xlog
