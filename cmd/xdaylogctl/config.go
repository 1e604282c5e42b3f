package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xdaylog/pkg/config/xconf"
	"github.com/omeyang/xdaylog/pkg/observability/xrotate"
)

// 全局 flag 名称
const (
	flagConfig       = "config"
	flagRoot         = "root"
	flagSuffix       = "suffix"
	flagRotationSize = "rotation-size"
	flagLocalTime    = "local-time"
)

// 配置文件中的键
const (
	keySink    = "sink"
	keyLevel   = "level"
	keyApp     = "app"
	keyVersion = "version"
)

// usageError 参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func newUsageError(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// isCLIUsageError 判断是否为 urfave/cli 产生的参数解析错误。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, marker := range []string{
		"flag provided but not defined",
		"flag needs an argument",
		"invalid value",
		"No help topic for",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// settings 一次命令执行所需的全部配置
type settings struct {
	sink xrotate.DailyConfig
	file *xconf.Config // 未指定 --config 时为 nil
}

// loadSettings 读取配置文件，再用命令行 flag 覆盖
//
// 只有显式设置的 flag 才会覆盖配置文件中的值。
func loadSettings(cmd *cli.Command) (*settings, error) {
	s := &settings{}

	if path := cmd.String(flagConfig); path != "" {
		cfg, err := xconf.Load(path)
		if err != nil {
			return nil, err
		}
		if err := cfg.Unmarshal(keySink, &s.sink); err != nil {
			return nil, err
		}
		s.file = cfg
	}

	if cmd.IsSet(flagRoot) {
		s.sink.TargetRoot = cmd.String(flagRoot)
	}
	if cmd.IsSet(flagSuffix) {
		s.sink.Suffix = cmd.String(flagSuffix)
	}
	if cmd.IsSet(flagRotationSize) {
		s.sink.RotationSize = cmd.String(flagRotationSize)
	}
	if cmd.IsSet(flagLocalTime) {
		s.sink.LocalTime = cmd.Bool(flagLocalTime)
	}

	if s.sink.TargetRoot == "" {
		return nil, newUsageError("需要通过 --root 或配置文件 sink.target_root 指定日志根目录")
	}
	if s.sink.Suffix == "" {
		return nil, newUsageError("需要通过 --suffix 或配置文件 sink.suffix 指定文件名后缀")
	}
	return s, nil
}

// fileString 返回配置文件中的字符串，未加载配置文件时返回空
func (s *settings) fileString(key string) string {
	if s.file == nil {
		return ""
	}
	return s.file.String(key)
}
