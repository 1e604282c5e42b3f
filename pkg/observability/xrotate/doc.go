// Package xrotate 提供日志文件轮转功能。
//
// # DailySink
//
// [DailySink] 是按天、按大小轮转的日志写入器，文件布局：
//
//	<targetRoot>/<YYYY-MM>/<YYYY-MM-DD>[<n>]_<suffix>.log
//
// 同一天同一后缀的第一个文件不带序号，之后依次为 [1]、[2]……
// 下一个序号每次都通过列目录恢复（取最大序号 + 1），不持久化任何索引。
//
// 轮转在写入之前判断：已写字节 + 本条长度 >= 上限时先切到新文件，
// 因此上限是软上限，单条超大记录仍会完整写入。写入失败后下一条记录
// 会先轮转到新文件。打开失败时本条记录被丢弃，下一条重新计算路径。
// Consume 从不向调用方返回错误，失败通过 [WithOnError] 回调上报：
// [ErrDirCreate]、[ErrFileOpen]、[ErrWrite]、[ErrDirScan]。
//
// DailySink 本身不加锁。并发写入使用 [NewDaily] 返回的 [DailyRotator]。
// 关闭 autoFlush 时可定期调用 Flush 限制崩溃时丢失的记录。
//
// # 配置文件
//
// [DailyConfig] 带 koanf/json/yaml 标签，可由 xconf 从配置文件反序列化，
// rotation_size 接受 "10MB" 这类写法（见 [ParseSize]）。
//
// # Rotator 实现
//
//   - [NewDaily]: DailySink 的并发安全包装
//   - [NewLumberjack]: 基于 lumberjack v2 的单文件按大小轮转（带备份清理）
//
// 两种实现共用 [Option]，对某个实现无意义的选项会被忽略。
//
// # 指标
//
// DailySink 通过 OpenTelemetry 记录 xrotate.daily.records、
// xrotate.daily.bytes、xrotate.daily.rotations、xrotate.daily.dropped，
// 使用 [WithMeterProvider] 指定 provider。
package xrotate
