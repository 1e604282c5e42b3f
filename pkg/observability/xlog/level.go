package xlog

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Level 日志级别，与 slog.Level 兼容
//
// 在 slog 的 Debug/Info/Warn/Error 之间插入了额外的级别，
// 数值越大越严重，可直接用于 slog.Leveler 比较。
type Level slog.Level

// 日志级别常量，按严重程度升序
const (
	LevelFoo       Level = -8 // 最细粒度的跟踪输出
	LevelDebug           = Level(slog.LevelDebug)
	LevelReport    Level = -2
	LevelInfo            = Level(slog.LevelInfo)
	LevelSuccess   Level = 2
	LevelWarn            = Level(slog.LevelWarn)
	LevelError           = Level(slog.LevelError)
	LevelFail      Level = 10
	LevelException Level = 12
	LevelCritical  Level = 16
)

// levelEntry 级别表中的一行
type levelEntry struct {
	level Level
	label string // 写入日志行的显示名
	name  string // 配置文件与 String 使用的小写名
}

// levels 级别表，按数值升序。Label/String/ParseLevel 都只查这张表，
// 表外的数值一律按整数输出。
var levels = [...]levelEntry{
	{LevelFoo, "Foo", "foo"},
	{LevelDebug, "Debug", "debug"},
	{LevelReport, "Report", "report"},
	{LevelInfo, "Information", "info"},
	{LevelSuccess, "Success", "success"},
	{LevelWarn, "Warning", "warn"},
	{LevelError, "Error", "error"},
	{LevelFail, "Fail", "fail"},
	{LevelException, "Exception", "exception"},
	{LevelCritical, "Critical", "critical"},
}

// levelAliases 额外接受的级别名
var levelAliases = map[string]Level{
	"trace":       LevelFoo,
	"information": LevelInfo,
	"warning":     LevelWarn,
}

func lookupLevel(l Level) (levelEntry, bool) {
	for _, e := range levels {
		if e.level == l {
			return e, true
		}
	}
	return levelEntry{}, false
}

// Levels 按严重程度升序返回全部已定义级别
func Levels() []Level {
	out := make([]Level, len(levels))
	for i, e := range levels {
		out[i] = e.level
	}
	return out
}

// Label 返回写入日志行的显示名（如 "Information"）
//
// 表外的级别返回其整数值，如 Level(3).Label() == "3"。
func (l Level) Label() string {
	if e, ok := lookupLevel(l); ok {
		return e.label
	}
	return strconv.Itoa(int(l))
}

// String 返回小写级别名，表外的级别返回整数值
func (l Level) String() string {
	if e, ok := lookupLevel(l); ok {
		return e.name
	}
	return strconv.Itoa(int(l))
}

// Valid 报告 l 是否为已定义的级别
func (l Level) Valid() bool {
	_, ok := lookupLevel(l)
	return ok
}

// MarshalText 实现 encoding.TextMarshaler 接口
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler 接口
//
// 支持从配置文件直接反序列化日志级别。
func (l *Level) UnmarshalText(data []byte) error {
	parsed, err := ParseLevel(string(data))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel 解析字符串为日志级别
//
// 接受级别名（foo/debug/report/info/success/warn/error/fail/exception/critical）、
// 显示名（Information、Warning 等）以及 trace 别名，大小写不敏感，
// 输入会自动 TrimSpace。
func ParseLevel(s string) (Level, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, e := range levels {
		if key == e.name || key == strings.ToLower(e.label) {
			return e.level, nil
		}
	}
	if l, ok := levelAliases[key]; ok {
		return l, nil
	}
	return LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}
