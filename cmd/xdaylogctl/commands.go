package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xdaylog/pkg/observability/xrotate"
	"github.com/omeyang/xdaylog/pkg/util/xfile"
)

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createWriteCommand(),
		createNextCommand(),
		createListCommand(),
		createIndexCommand(),
	}
}

// timeLayouts --time / --date 接受的格式
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseWhen 解析时间参数，空字符串表示当前时间
//
// 不带时区的写法按 loc 解释，与文件名使用的时区一致。
func parseWhen(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, newUsageError("无法解析时间 %q，支持 RFC3339 或 YYYY-MM-DD", s)
}

func location(local bool) *time.Location {
	if local {
		return time.Local
	}
	return time.UTC
}

// createNextCommand 创建 next 子命令。
func createNextCommand() *cli.Command {
	return &cli.Command{
		Name:  "next",
		Usage: "打印指定时刻下一个日志文件路径（不创建文件）",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "time",
				Aliases: []string{"t"},
				Usage:   "时刻，RFC3339 或 YYYY-MM-DD，默认当前时间",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return cmdNext(cmd.Root().Writer, cmd.Root().ErrWriter, s.sink, cmd.String("time"))
		},
	}
}

func cmdNext(w, errw io.Writer, dc xrotate.DailyConfig, when string) error {
	ts, err := parseWhen(when, location(dc.LocalTime))
	if err != nil {
		return err
	}
	sink, err := dc.NewSink(xrotate.WithOnError(func(err error) {
		fmt.Fprintf(errw, "警告: %v\n", err)
	}))
	if err != nil {
		return newUsageError("%v", err)
	}
	path, err := sink.NextPath(ts)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, path)
	return err
}

// createListCommand 创建 ls 子命令。
func createListCommand() *cli.Command {
	return &cli.Command{
		Name:  "ls",
		Usage: "列出某天的日志文件、序号与大小",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "date",
				Aliases: []string{"d"},
				Usage:   "日期，YYYY-MM-DD，默认今天",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return cmdList(cmd.Root().Writer, s.sink, cmd.String("date"))
		},
	}
}

// logEntry 某天的一个日志文件
type logEntry struct {
	index int
	name  string
	size  int64
}

func cmdList(w io.Writer, dc xrotate.DailyConfig, date string) error {
	loc := location(dc.LocalTime)
	ts, err := parseWhen(date, loc)
	if err != nil {
		return err
	}
	root, err := xfile.CleanDir(dc.TargetRoot)
	if err != nil {
		return newUsageError("%v", err)
	}

	entries, err := listDay(root, dc.Suffix, ts, loc)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tSIZE\tNAME")
	var total int64
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", e.index, xrotate.FormatSize(e.size), e.name)
		total += e.size
	}
	if len(entries) > 0 {
		fmt.Fprintf(tw, "\t%s\t%d files\n", xrotate.FormatSize(total), len(entries))
	}
	return tw.Flush()
}

// listDay 返回 ts 当天属于 suffix 的日志文件，按序号升序
func listDay(root, suffix string, ts time.Time, loc *time.Location) ([]logEntry, error) {
	datePrefix := xrotate.DatePrefix(ts, loc)
	monthPath, err := xfile.SafeJoin(root, xrotate.MonthDir(ts, loc))
	if err != nil {
		return nil, err
	}
	names, err := xfile.ListNames(monthPath)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", monthPath, err)
	}

	var entries []logEntry
	for _, name := range names {
		idx, ok := xrotate.MatchName(name, datePrefix, suffix)
		if !ok {
			continue
		}
		info, err := os.Stat(filepath.Join(monthPath, name))
		if err != nil {
			return nil, err
		}
		entries = append(entries, logEntry{index: idx, name: name, size: info.Size()})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].index != entries[j].index {
			return entries[i].index < entries[j].index
		}
		return entries[i].name < entries[j].name
	})
	return entries, nil
}

// createIndexCommand 创建 index 子命令。
func createIndexCommand() *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "解析文件名中的 [n] 序号，非法或缺失时为 0",
		ArgsUsage: "<name> [name...]",
		Action: func(_ context.Context, cmd *cli.Command) error {
			names := cmd.Args().Slice()
			if len(names) == 0 {
				return newUsageError("index 命令需要至少一个文件名")
			}
			return cmdIndex(cmd.Root().Writer, names)
		},
	}
}

func cmdIndex(w io.Writer, names []string) error {
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%d\t%s\n", xrotate.ParseIndex(filepath.Base(name)), name); err != nil {
			return err
		}
	}
	return nil
}
