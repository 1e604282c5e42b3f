// Package xfile 提供日志落盘用到的文件系统工具。
//
// # 函数一览
//
//   - CleanDir: 规范化目录路径（日志根目录）
//   - EnsureDir / EnsureDirWithPerm: 递归创建文件的父目录，目录已存在不报错
//   - SafeJoin: 将相对路径拼接到绝对基准目录下，拒绝穿越
//   - ListNames: 尽力列出目录下的条目名，目录不存在视为空
//
// # 路径穿越检测
//
// 只有 ".." 作为独立路径段时才视为穿越，"..config"、"app..2024.log" 这类
// 合法文件名不会被误判：
//
//	SafeJoin("/var/log", "2024-01/app.log") // ✓ "/var/log/2024-01/app.log"
//	SafeJoin("/var/log", "../etc/passwd")   // ✗ ErrPathTraversal
//
// # 空字节
//
// 所有函数都拒绝包含 \x00 的路径，内核会在空字节处截断路径。
//
// # 错误处理
//
// 预定义错误变量支持 [errors.Is] 判断。
package xfile
