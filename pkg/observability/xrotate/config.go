package xrotate

import "fmt"

// DailyConfig 按天轮转写入器的声明式配置，可由 xconf 从 YAML/JSON 反序列化
//
//	sink:
//	  target_root: /var/log/myapp
//	  suffix: myapp
//	  rotation_size: 10MiB
//	  auto_flush: true
//	  local_time: false
type DailyConfig struct {
	TargetRoot string `koanf:"target_root" json:"target_root" yaml:"target_root"`
	Suffix     string `koanf:"suffix" json:"suffix" yaml:"suffix"`

	// RotationSize 为空时使用 DefaultRotationSize，支持 "10MB"、"10240000" 等写法
	RotationSize string `koanf:"rotation_size" json:"rotation_size" yaml:"rotation_size"`

	// AutoFlush 为 nil 时使用 DefaultAutoFlush
	AutoFlush *bool `koanf:"auto_flush" json:"auto_flush" yaml:"auto_flush"`
	LocalTime bool  `koanf:"local_time" json:"local_time" yaml:"local_time"`
}

// Options 把配置转换为 Option 列表，不包含 TargetRoot 和 Suffix
func (c DailyConfig) Options() ([]Option, error) {
	opts := []Option{WithLocalTime(c.LocalTime)}
	if c.RotationSize != "" {
		size, err := ParseSize(c.RotationSize)
		if err != nil {
			return nil, fmt.Errorf("rotation_size: %w", err)
		}
		opts = append(opts, WithRotationSize(size))
	}
	if c.AutoFlush != nil {
		opts = append(opts, WithAutoFlush(*c.AutoFlush))
	}
	return opts, nil
}

// NewSink 按配置创建 DailySink，extra 追加在配置项之后，可覆盖配置
func (c DailyConfig) NewSink(extra ...Option) (*DailySink, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	return NewDailySink(c.TargetRoot, c.Suffix, append(opts, extra...)...)
}

// NewRotator 按配置创建 DailyRotator
func (c DailyConfig) NewRotator(extra ...Option) (*DailyRotator, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	return NewDaily(c.TargetRoot, c.Suffix, append(opts, extra...)...)
}
