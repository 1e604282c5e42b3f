package xlog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/omeyang/xdaylog/pkg/observability/xlog"
	"github.com/omeyang/xdaylog/pkg/observability/xrotate"
)

// testCleanup 在测试结束时执行 cleanup
func testCleanup(t *testing.T, cleanup func() error) {
	t.Helper()
	t.Cleanup(func() {
		if err := cleanup(); err != nil {
			t.Errorf("cleanup error: %v", err)
		}
	})
}

func buildToBuffer(t *testing.T, b *xlog.Builder) (xlog.LoggerWithLevel, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, cleanup, err := b.SetOutput(&buf).Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	testCleanup(t, cleanup)
	return logger, &buf
}

// =============================================================================
// Logger
// =============================================================================

func TestLogger_BasicLogging(t *testing.T) {
	logger, buf := buildToBuffer(t, xlog.New().SetLevel(xlog.LevelDebug))
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message")

	output := buf.String()
	for _, want := range []string{
		"level=Debug msg=\"debug message\"",
		"level=Information msg=\"info message\"",
		"level=Warning msg=\"warn message\"",
		"level=Error msg=\"error message\"",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\noutput: %s", want, output)
		}
	}
}

func TestLogger_LogExtendedLevels(t *testing.T) {
	logger, buf := buildToBuffer(t, xlog.New().SetLevel(xlog.LevelFoo))
	ctx := context.Background()

	for _, l := range xlog.Levels() {
		logger.Log(ctx, l, "msg-"+l.String())
	}

	output := buf.String()
	for _, l := range xlog.Levels() {
		want := "level=" + l.Label() + " msg=msg-" + l.String()
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestLogger_WithAndGroup(t *testing.T) {
	logger, buf := buildToBuffer(t, xlog.New())
	ctx := context.Background()

	logger.With(slog.String("service", "api")).Info(ctx, "with")
	logger.WithGroup("req").Info(ctx, "grouped", slog.String("id", "r1"))

	output := buf.String()
	if !strings.Contains(output, "service=api") {
		t.Errorf("With attr missing\noutput: %s", output)
	}
	if !strings.Contains(output, "req.id=r1") {
		t.Errorf("group attr missing\noutput: %s", output)
	}

	if logger.With() != xlog.Logger(logger) {
		t.Error("With() without attrs should return the same logger")
	}
	if logger.WithGroup("") != xlog.Logger(logger) {
		t.Error("WithGroup(\"\") should return the same logger")
	}
}

func TestLogger_DynamicLevel(t *testing.T) {
	logger, buf := buildToBuffer(t, xlog.New())
	ctx := context.Background()

	logger.Debug(ctx, "hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug should be disabled at Information")
	}

	child := logger.With(slog.String("k", "v"))
	logger.SetLevel(xlog.LevelDebug)
	child.Debug(ctx, "visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("child logger should follow parent's level change")
	}
	if logger.GetLevel() != xlog.LevelDebug {
		t.Errorf("GetLevel() = %v, want debug", logger.GetLevel())
	}

	logger.SetLevel(xlog.LevelCritical)
	if logger.Enabled(ctx, xlog.LevelException) {
		t.Error("Exception should be disabled at Critical")
	}
	if !logger.Enabled(ctx, xlog.LevelCritical) {
		t.Error("Critical should be enabled at Critical")
	}
}

func TestLogger_Stack(t *testing.T) {
	logger, buf := buildToBuffer(t, xlog.New())
	logger.Stack(context.Background(), "panic recovered")

	output := buf.String()
	if !strings.Contains(output, "level=Exception") || !strings.Contains(output, "stack=") {
		t.Errorf("stack output missing\noutput: %s", output)
	}

	logger.SetLevel(xlog.LevelCritical)
	buf.Reset()
	logger.Stack(context.Background(), "suppressed")
	if buf.Len() != 0 {
		t.Error("Stack should respect level")
	}
}

// =============================================================================
// Builder
// =============================================================================

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		builder *xlog.Builder
		wantErr error
	}{
		{"未知级别", xlog.New().SetLevelString("verbose"), xlog.ErrUnknownLevel},
		{"未知格式", xlog.New().SetFormat("xml"), xlog.ErrUnknownFormat},
		{"nil consumer", xlog.New().SetSink(nil, "a", "v"), xlog.ErrNilConsumer},
		{"nil writer", xlog.New().SetOutput(nil), xlog.ErrNilWriter},
		{"非法轮转配置", xlog.New().SetRotation(""), xrotate.ErrEmptyFilename},
		{"非法按天配置", xlog.New().SetDailySink(t.TempDir(), "", "a", "v"), xrotate.ErrEmptySuffix},
		{"保留第一个错误", xlog.New().SetFormat("xml").SetLevelString("verbose"), xlog.ErrUnknownFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.builder.Build()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuilder_SetLevelString(t *testing.T) {
	logger, _, err := xlog.New().SetLevelString("Warning").Build()
	if err != nil {
		t.Fatal(err)
	}
	if logger.GetLevel() != xlog.LevelWarn {
		t.Errorf("GetLevel() = %v, want warn", logger.GetLevel())
	}
}

func TestBuilder_SetFormat(t *testing.T) {
	logger, buf := buildToBuffer(t, xlog.New().SetFormat(" JSON "))
	logger.Info(context.Background(), "json message", slog.Int("n", 1))

	output := buf.String()
	if !strings.Contains(output, `"level":"Information"`) || !strings.Contains(output, `"n":1`) {
		t.Errorf("json output unexpected: %s", output)
	}

	logger, buf = buildToBuffer(t, xlog.New().SetFormat(""))
	logger.Info(context.Background(), "text message")
	if !strings.Contains(buf.String(), `msg="text message"`) {
		t.Errorf("empty format should default to text: %s", buf.String())
	}
}

func TestBuilder_SetAddSource(t *testing.T) {
	logger, buf := buildToBuffer(t, xlog.New().SetAddSource(true))
	logger.Info(context.Background(), "with source")

	if !strings.Contains(buf.String(), "xlog_test.go") {
		t.Errorf("source should point at the caller: %s", buf.String())
	}
}

func TestBuilder_SetReplaceAttr(t *testing.T) {
	logger, buf := buildToBuffer(t, xlog.New().SetReplaceAttr(func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == "token" {
			return slog.String("token", "***")
		}
		return a
	}))
	logger.Info(context.Background(), "auth", slog.String("token", "abc"))

	if !strings.Contains(buf.String(), "token=***") {
		t.Errorf("token should be redacted: %s", buf.String())
	}
}

func TestBuilder_SetOnError(t *testing.T) {
	var got error
	logger, cleanup, err := xlog.New().
		SetOutput(failingWriter{}).
		SetOnError(func(err error) { got = err }).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	testCleanup(t, cleanup)

	logger.Info(context.Background(), "lost")
	if got == nil || !strings.Contains(got.Error(), "writer broken") {
		t.Errorf("onError got %v", got)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("writer broken") }

func TestBuilder_SetRotation(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "self.log")
	logger, cleanup, err := xlog.New().SetRotation(filename, xrotate.WithMaxSize(1)).Build()
	if err != nil {
		t.Fatal(err)
	}

	logger.Info(context.Background(), "to file")
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup() error = %v", err)
	}
	if err := cleanup(); err != nil {
		t.Errorf("second cleanup() error = %v", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("file content = %s", data)
	}
}

func TestBuilder_SetSink(t *testing.T) {
	c := &recordingConsumer{}
	logger, cleanup, err := xlog.New().
		SetLevel(xlog.LevelReport).
		SetSink(c, "app", "2.0").
		Build()
	if err != nil {
		t.Fatal(err)
	}
	testCleanup(t, cleanup)

	ctx := context.Background()
	logger.Debug(ctx, "filtered")
	logger.Log(ctx, xlog.LevelReport, "report line", slog.Int("rows", 3))

	lines := c.Lines()
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "app,2.0,") || !strings.HasSuffix(lines[0], ",Report,report line rows=3") {
		t.Errorf("line = %s", lines[0])
	}
}

func TestBuilder_SetSinkAddSource(t *testing.T) {
	c := &recordingConsumer{}
	logger, _, err := xlog.New().SetSink(c, "app", "1").SetAddSource(true).Build()
	if err != nil {
		t.Fatal(err)
	}

	logger.Info(context.Background(), "located")
	if !strings.Contains(c.Lines()[0], ",Information,xlog_test.go::TestBuilder_SetSinkAddSource:") ||
		!strings.HasSuffix(c.Lines()[0], ",,located") {
		t.Errorf("line = %s", c.Lines()[0])
	}
}

func TestBuilder_SetDailySink(t *testing.T) {
	root := t.TempDir()
	logger, cleanup, err := xlog.New().
		SetDailySink(root, "svc", "svc", "1.0.0", xrotate.WithAutoFlush(false)).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	logger.Info(context.Background(), "first line")
	logger.Error(context.Background(), "second line", xlog.Err(errors.New("boom")))
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup() error = %v", err)
	}

	now := time.Now().UTC()
	path := filepath.Join(root, now.Format("2006-01"), now.Format("2006-01-02")+"_svc.log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), lines)
	}
	if !strings.HasSuffix(lines[0], ",Information,first line") {
		t.Errorf("line 0 = %s", lines[0])
	}
	if !strings.HasSuffix(lines[1], ",Error,second line error=boom") {
		t.Errorf("line 1 = %s", lines[1])
	}
}

func TestBuilder_SetOutputOverridesSink(t *testing.T) {
	c := &recordingConsumer{}
	var buf bytes.Buffer
	logger, _, err := xlog.New().SetSink(c, "a", "v").SetOutput(&buf).Build()
	if err != nil {
		t.Fatal(err)
	}

	logger.Info(context.Background(), "where")
	if len(c.Lines()) != 0 || !strings.Contains(buf.String(), "where") {
		t.Error("SetOutput after SetSink should write to the writer")
	}
}
