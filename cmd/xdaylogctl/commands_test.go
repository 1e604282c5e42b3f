package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/omeyang/xdaylog/pkg/config/xconf"
	"github.com/omeyang/xdaylog/pkg/observability/xlog"
)

// runCLI 执行命令行并返回退出码与输出
func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"xdaylogctl"}, args...),
		strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func todayFile(root, suffix string, index int) string {
	now := time.Now().UTC()
	name := now.Format("2006-01-02")
	if index > 0 {
		name += "[" + string(rune('0'+index)) + "]"
	}
	return filepath.Join(root, now.Format("2006-01"), name+"_"+suffix+".log")
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestParseWhen(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"date", "2024-01-31", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), false},
		{"datetime", "2024-01-31T23:59:59", time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), false},
		{"rfc3339", "2024-02-01T07:00:00+08:00", time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC), false},
		{"invalid", "yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWhen(tt.input, time.UTC)
			if tt.wantErr {
				var usageErr *usageError
				if !errors.As(err, &usageErr) {
					t.Fatalf("expected *usageError, got %T: %v", err, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseWhen(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsCLIUsageError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("flag provided but not defined: -bogus"), true},
		{errors.New("flag needs an argument: -root"), true},
		{errors.New("invalid value \"x\" for flag -flush-interval"), true},
		{errors.New("open /x: permission denied"), false},
	}

	for _, tt := range tests {
		if got := isCLIUsageError(tt.err); got != tt.want {
			t.Errorf("isCLIUsageError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

// =============================================================================
// index / next / ls
// =============================================================================

func TestCmdIndex(t *testing.T) {
	code, out, _ := runCLI(t, "", "index",
		"2024-01-01_app.log", "2024-01-01[3]_app.log", "/var/log/2024-01/2024-01-01[x]_app.log")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	want := "0\t2024-01-01_app.log\n3\t2024-01-01[3]_app.log\n0\t/var/log/2024-01/2024-01-01[x]_app.log\n"
	if out != want {
		t.Errorf("output\n got: %q\nwant: %q", out, want)
	}

	if code, _, _ := runCLI(t, "", "index"); code != 2 {
		t.Errorf("index without args exit code = %d, want 2", code)
	}
}

func TestCmdNext(t *testing.T) {
	root := t.TempDir()
	args := []string{"-r", root, "-s", "app", "next", "--time", "2024-01-01"}

	code, out, _ := runCLI(t, "", args...)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if want := filepath.Join(root, "2024-01", "2024-01-01_app.log") + "\n"; out != want {
		t.Errorf("next = %q, want %q", out, want)
	}

	dir := filepath.Join(root, "2024-01")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"2024-01-01_app.log", "2024-01-01[1]_app.log", "2024-01-01[4]_other.log"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	_, out, _ = runCLI(t, "", args...)
	if want := filepath.Join(dir, "2024-01-01[2]_app.log") + "\n"; out != want {
		t.Errorf("next = %q, want %q", out, want)
	}
}

func TestCmdNext_ScanWarningToStderr(t *testing.T) {
	root := t.TempDir()
	// 月份目录位置被普通文件占用，扫描失败按空目录处理
	if err := os.WriteFile(filepath.Join(root, "2024-01"), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	code, out, errOut := runCLI(t, "", "-r", root, "-s", "app", "next", "--time", "2024-01-01")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	if want := filepath.Join(root, "2024-01", "2024-01-01_app.log") + "\n"; out != want {
		t.Errorf("next = %q, want %q", out, want)
	}
	if !strings.Contains(errOut, "警告") || !strings.Contains(errOut, "scan log directory failed") {
		t.Errorf("stderr = %q, want scan warning", errOut)
	}
}

func TestCmdNext_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"缺少根目录", []string{"-s", "app", "next"}},
		{"缺少后缀", []string{"-r", t.TempDir(), "next"}},
		{"非法后缀", []string{"-r", t.TempDir(), "-s", "a/b", "next"}},
		{"非法时间", []string{"-r", t.TempDir(), "-s", "app", "next", "--time", "soon"}},
		{"非法大小", []string{"-r", t.TempDir(), "-s", "app", "--rotation-size", "huge", "next"}},
		{"未知 flag", []string{"--bogus", "next"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, _ := runCLI(t, "", tt.args...); code != 2 {
				t.Errorf("exit code = %d, want 2", code)
			}
		})
	}
}

func TestCmdList(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "2024-01")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}
	files := map[string]int{
		"2024-01-01[10]_app.log": 3,
		"2024-01-01[2]_app.log":  2,
		"2024-01-01_app.log":     1024,
		"2024-01-02_app.log":     1,
		"2024-01-01_other.log":   1,
	}
	for name, size := range files {
		if err := os.WriteFile(filepath.Join(dir, name), bytes.Repeat([]byte("x"), size), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	code, out, _ := runCLI(t, "", "-r", root, "-s", "app", "ls", "--date", "2024-01-01")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	for i, want := range []string{"INDEX", "0 ", "2 ", "10 "} {
		if !strings.HasPrefix(lines[i], want) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], want)
		}
	}
	if !strings.Contains(lines[1], "1KiB") || !strings.HasSuffix(lines[4], "3 files") {
		t.Errorf("unexpected listing:\n%s", out)
	}
}

func TestCmdList_MissingMonth(t *testing.T) {
	code, out, _ := runCLI(t, "", "-r", t.TempDir(), "-s", "app", "ls", "--date", "2030-06-01")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if strings.TrimSpace(out) != "INDEX  SIZE  NAME" {
		t.Errorf("output = %q", out)
	}
}

// =============================================================================
// write
// =============================================================================

func TestCmdWrite(t *testing.T) {
	root := t.TempDir()
	code, _, stderr := runCLI(t, "first line\nsecond line\n",
		"-r", root, "-s", "svc", "write", "--app", "svc", "--app-version", "1.2.3", "--level", "success")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}

	lines := readLines(t, todayFile(root, "svc", 0))
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "svc,1.2.3,") || !strings.HasSuffix(lines[0], ",Success,first line") {
		t.Errorf("line 0 = %s", lines[0])
	}
	if !strings.HasSuffix(lines[1], ",Success,second line") {
		t.Errorf("line 1 = %s", lines[1])
	}
}

func TestCmdWrite_Raw(t *testing.T) {
	root := t.TempDir()
	code, _, stderr := runCLI(t, "a\nb\nunterminated",
		"-r", root, "-s", "raw", "write", "--raw", "--no-auto-flush", "--flush-interval", "10ms")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}

	got := readLines(t, todayFile(root, "raw", 0))
	if strings.Join(got, "|") != "a|b|unterminated" {
		t.Errorf("lines = %q", got)
	}
}

func TestCmdWrite_ThresholdFiltersRecords(t *testing.T) {
	root := t.TempDir()
	code, _, _ := runCLI(t, "dropped\n",
		"-r", root, "-s", "svc", "write", "--level", "debug", "--threshold", "warn")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if _, err := os.Stat(todayFile(root, "svc", 0)); !os.IsNotExist(err) {
		t.Errorf("filtered records should not create a file, stat err = %v", err)
	}
}

func TestCmdWrite_RotatesBySize(t *testing.T) {
	root := t.TempDir()
	input := strings.Repeat("0123456789\n", 3)
	code, _, _ := runCLI(t, input, "-r", root, "-s", "svc", "--rotation-size", "25", "write", "--raw")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}

	if got := readLines(t, todayFile(root, "svc", 0)); len(got) != 2 {
		t.Errorf("first file lines = %q", got)
	}
	if got := readLines(t, todayFile(root, "svc", 1)); len(got) != 1 {
		t.Errorf("second file lines = %q", got)
	}
}

func TestCmdWrite_FromConfig(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "xdaylog.yaml")
	content := "level: report\napp: billing\nversion: 2.0.0\nsink:\n  target_root: " + root +
		"\n  suffix: bill\n  rotation_size: 10MB\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := runCLI(t, "charged\n", "-c", cfgPath, "write", "--level", "report")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}

	lines := readLines(t, todayFile(root, "bill", 0))
	if !strings.HasPrefix(lines[0], "billing,2.0.0,") || !strings.HasSuffix(lines[0], ",Report,charged") {
		t.Errorf("line = %s", lines[0])
	}
}

func TestCmdWrite_SelfLog(t *testing.T) {
	root := t.TempDir()
	selfLog := filepath.Join(t.TempDir(), "self.log")
	code, _, _ := runCLI(t, "x\n", "-r", root, "-s", "svc", "write", "--self-log", selfLog)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}

	data, err := os.ReadFile(selfLog)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"writing"`) || !strings.Contains(string(data), `"component":"svc"`) {
		t.Errorf("self log = %s", data)
	}
}

func TestCmdWrite_UsageErrors(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"未知级别", []string{"-r", root, "-s", "svc", "write", "--level", "loud"}},
		{"未知阈值", []string{"-r", root, "-s", "svc", "write", "--threshold", "loud"}},
		{"watch 需要配置文件", []string{"-r", root, "-s", "svc", "write", "--watch"}},
		{"刷盘间隔非正数", []string{"-r", root, "-s", "svc", "write", "--no-auto-flush", "--flush-interval", "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, _ := runCLI(t, "", tt.args...); code != 2 {
				t.Errorf("exit code = %d, want 2", code)
			}
		})
	}
}

// =============================================================================
// pump / levelReloader
// =============================================================================

func TestPump(t *testing.T) {
	var got []string
	err := pump(context.Background(), strings.NewReader("a\n\nb"), func(line string) {
		got = append(got, line)
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, "|") != "a||b" {
		t.Errorf("lines = %q", got)
	}
}

func TestPump_ReadError(t *testing.T) {
	boom := errors.New("disk gone")
	err := pump(context.Background(), iotest.ErrReader(boom), func(string) {})
	if !errors.Is(err, boom) {
		t.Errorf("pump() = %v, want %v", err, boom)
	}
}

func TestPump_LineTooLong(t *testing.T) {
	long := strings.Repeat("x", maxLineSize+1)
	if err := pump(context.Background(), strings.NewReader(long), func(string) {}); err == nil {
		t.Error("expected error for an oversized line")
	}
}

func TestPump_ContextCanceled(t *testing.T) {
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer pw.Close()
	defer pr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pump(ctx, pr, func(string) {}) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("pump() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not return after cancel")
	}
}

func TestLevelReloader(t *testing.T) {
	var selfBuf bytes.Buffer
	selfLog, _, err := xlog.New().SetOutput(&selfBuf).Build()
	if err != nil {
		t.Fatal(err)
	}
	logger, _, err := xlog.New().SetOutput(&bytes.Buffer{}).Build()
	if err != nil {
		t.Fatal(err)
	}
	reload := levelReloader(context.Background(), logger, selfLog)

	cfg, err := xconf.LoadBytes([]byte("level: warning\n"), xconf.FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	reload(cfg, nil)
	if logger.GetLevel() != xlog.LevelWarn {
		t.Errorf("level = %v, want warn", logger.GetLevel())
	}

	bad, _ := xconf.LoadBytes([]byte("level: loud\n"), xconf.FormatYAML)
	reload(bad, nil)
	if logger.GetLevel() != xlog.LevelWarn {
		t.Error("invalid level should be ignored")
	}

	reload(cfg, errors.New("parse failed"))
	out := selfBuf.String()
	if !strings.Contains(out, "config reload ignored") || !strings.Contains(out, "config reload failed") {
		t.Errorf("self log = %s", out)
	}
}

func TestCmdWrite_WatchReloadsThreshold(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "xdaylog.yaml")
	if err := os.WriteFile(cfgPath, []byte("level: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := xconf.Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer pr.Close()

	s := &settings{file: cfg}
	s.sink.TargetRoot = root
	s.sink.Suffix = "svc"
	o := &writeOptions{app: "svc", version: "1", level: xlog.LevelInfo, threshold: xlog.LevelWarn, watch: true}

	done := make(chan error, 1)
	go func() { done <- cmdWrite(context.Background(), pr, &bytes.Buffer{}, s, o) }()

	if _, err := pw.WriteString("hidden\n"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(cfgPath, []byte("level: info\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	path := todayFile(root, "svc", 0)
	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, err := pw.WriteString("probe\n"); err != nil {
			t.Fatal(err)
		}
		if data, err := os.ReadFile(path); err == nil && strings.Contains(string(data), "probe") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("threshold was not reloaded")
		}
		time.Sleep(50 * time.Millisecond)
	}

	pw.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cmdWrite() = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("cmdWrite did not return after EOF")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "hidden") {
		t.Errorf("record below the old threshold was written:\n%s", data)
	}
}
