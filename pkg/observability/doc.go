// Package observability 提供日志相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，十级严重度与单行记录格式
//   - xrotate: 日志文件轮转，按天按大小轮转的 DailySink 与 lumberjack 包装
//
// 设计原则：
//   - xlog 负责格式化，xrotate 只接收格式化好的记录
//   - 写日志失败不影响业务，错误通过回调上报
package observability
