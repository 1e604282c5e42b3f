// xdaylogctl 把标准输入写入按天、按大小轮转的日志目录，并提供目录检查工具。
//
// 用法:
//
//	xdaylogctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config         YAML/JSON 配置文件，sink 节点对应 xrotate.DailyConfig
//	-r, --root           日志根目录（覆盖配置文件）
//	-s, --suffix         文件名后缀（覆盖配置文件）
//	    --rotation-size  单文件软上限，如 10MB、10240000（覆盖配置文件）
//	    --local-time     文件名使用本地时区（默认 UTC）
//
// 命令:
//
//	write      逐行读取标准输入并写入日志（SIGINT/SIGTERM 时刷盘退出）
//	next       打印指定时刻下一个日志文件路径
//	ls         列出某天的日志文件、序号与大小
//	index      解析文件名中的 [n] 序号
//
// 退出码:
//
//	0: 成功
//	1: 执行失败
//	2: 参数错误
//
// 示例:
//
//	myapp | xdaylogctl -r /var/log/myapp -s myapp write --app myapp --level info
//	xdaylogctl -c /etc/xdaylog.yaml write --watch --self-log /var/log/xdaylogctl.log
//	xdaylogctl -r /var/log/myapp -s myapp next --time 2024-01-01
//	xdaylogctl -r /var/log/myapp -s myapp ls --date 2024-01-01
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdin, os.Stdout, os.Stderr))
}

// createApp 创建 CLI 应用。
func createApp(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xdaylogctl",
		Usage:     "按天按大小轮转的日志写入与检查工具",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "配置文件路径（.yaml/.yml/.json）",
			},
			&cli.StringFlag{
				Name:    flagRoot,
				Aliases: []string{"r"},
				Usage:   "日志根目录",
			},
			&cli.StringFlag{
				Name:    flagSuffix,
				Aliases: []string{"s"},
				Usage:   "文件名后缀，通常为应用名",
			},
			&cli.StringFlag{
				Name:  flagRotationSize,
				Usage: "单个文件软上限，如 10MB",
			},
			&cli.BoolFlag{
				Name:  flagLocalTime,
				Usage: "文件名日期使用本地时区",
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		Authors: []any{
			"xdaylog authors",
		},
		// 禁止 urfave/cli 直接调用 os.Exit，由 run() 统一映射退出码。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := createApp(stdin, stdout, stderr)

	if err := app.Run(ctx, args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if isCLIUsageError(err) {
			return 2
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}
