package xrotate

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xdaylog/pkg/config/xconf"
)

func TestDailyConfig_Options(t *testing.T) {
	off := false
	tests := []struct {
		name      string
		cfg       DailyConfig
		wantSize  int64
		wantFlush bool
		wantLoc   *time.Location
	}{
		{"默认值", DailyConfig{}, DefaultRotationSize, DefaultAutoFlush, time.UTC},
		{"人类可读大小", DailyConfig{RotationSize: "10MB"}, 10 << 20, true, time.UTC},
		{"纯数字大小", DailyConfig{RotationSize: "10240000"}, 10240000, true, time.UTC},
		{"关闭自动刷出", DailyConfig{AutoFlush: &off}, DefaultRotationSize, false, time.UTC},
		{"本地时间", DailyConfig{LocalTime: true}, DefaultRotationSize, true, time.Local},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.TargetRoot = t.TempDir()
			cfg.Suffix = "app"

			s, err := cfg.NewSink()
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })

			assert.Equal(t, tt.wantSize, s.rotationSize)
			assert.Equal(t, tt.wantFlush, s.autoFlush)
			assert.Equal(t, tt.wantLoc, s.loc)
		})
	}
}

func TestDailyConfig_Errors(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		name    string
		cfg     DailyConfig
		wantErr error
	}{
		{"非法大小", DailyConfig{TargetRoot: root, Suffix: "a", RotationSize: "lots"}, ErrInvalidSize},
		{"大小为零", DailyConfig{TargetRoot: root, Suffix: "a", RotationSize: "0"}, ErrInvalidSize},
		{"缺少根目录", DailyConfig{Suffix: "a"}, ErrEmptyTargetRoot},
		{"缺少后缀", DailyConfig{TargetRoot: root}, ErrEmptySuffix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.NewSink()
			assert.ErrorIs(t, err, tt.wantErr)
			_, err = tt.cfg.NewRotator()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDailyConfig_ExtraOptionsOverride(t *testing.T) {
	cfg := DailyConfig{TargetRoot: t.TempDir(), Suffix: "app", RotationSize: "1MB"}

	r, err := cfg.NewRotator(WithRotationSize(64))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	assert.Equal(t, int64(64), r.sink.rotationSize)
}

func TestDailyConfig_FromYAML(t *testing.T) {
	root := t.TempDir()
	c, err := xconf.LoadBytes([]byte(`
sink:
  target_root: `+root+`
  suffix: svc
  rotation_size: 30
  auto_flush: true
`), xconf.FormatYAML)
	require.NoError(t, err)

	var dc DailyConfig
	require.NoError(t, c.Unmarshal("sink", &dc))
	assert.Equal(t, "30", dc.RotationSize)

	s, err := dc.NewSink()
	require.NoError(t, err)
	s.Consume(day1, "aaaaaaaaaa")
	s.Consume(day1, "bbbbbbbbbb")
	s.Consume(day1, "cccccccccc")
	require.NoError(t, s.Close())

	assert.Equal(t, []string{"2024-01-01[1]_svc.log", "2024-01-01_svc.log"}, monthFiles(t, root, "2024-01"))
	assert.Equal(t, []string{"aaaaaaaaaa", "bbbbbbbbbb"},
		readLines(t, filepath.Join(root, "2024-01", "2024-01-01_svc.log")))
}
