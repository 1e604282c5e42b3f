package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 配置文件格式
type Format string

// 支持的配置格式
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf 根据扩展名判断格式（.yaml/.yml/.json）
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
	}
}

// Config 已加载的配置
//
// 所有方法并发安全。Reload 解析成功后整体替换底层 koanf 实例，
// 失败时保留旧配置。
type Config struct {
	mu     sync.RWMutex
	k      *koanf.Koanf
	path   string // 从字节数据创建时为空
	format Format
	opts   options
}

// Load 从文件加载配置，格式由扩展名决定
//
// 空文件得到空配置，Unmarshal 返回目标结构体的零值。
func Load(path string, opts ...Option) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	c := &Config{path: path, format: format, opts: defaultOptions()}
	for _, opt := range opts {
		if opt != nil {
			opt(&c.opts)
		}
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadBytes 从字节数据加载配置，用于内嵌默认配置或测试
func LoadBytes(data []byte, format Format, opts ...Option) (*Config, error) {
	c := &Config{format: format, opts: defaultOptions()}
	for _, opt := range opts {
		if opt != nil {
			opt(&c.opts)
		}
	}
	k, err := parse(data, format, c.opts.delim)
	if err != nil {
		return nil, err
	}
	c.k = k
	return c, nil
}

// Reload 重新读取并解析配置文件
func (c *Config) Reload() error {
	if c.path == "" {
		return ErrNotFromFile
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	k, err := parse(data, c.format, c.opts.delim)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.k = k
	c.mu.Unlock()
	return nil
}

// Unmarshal 把 key 下的配置反序列化到 target，key 为空表示整个配置
//
// 允许弱类型转换，例如 rotation_size: 10240000 可以落到 string 字段。
func (c *Config) Unmarshal(key string, target any) error {
	k := c.client()
	if err := k.UnmarshalWithConf(key, target, koanf.UnmarshalConf{Tag: c.opts.tag}); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrUnmarshalFailed, key, err)
	}
	return nil
}

// String 返回 key 对应的字符串，不存在时为空
func (c *Config) String(key string) string {
	return c.client().String(key)
}

// Exists 报告 key 是否存在
func (c *Config) Exists(key string) bool {
	return c.client().Exists(key)
}

// Path 返回配置文件路径，从字节数据创建时为空
func (c *Config) Path() string {
	return c.path
}

// Format 返回配置格式
func (c *Config) Format() Format {
	return c.format
}

func (c *Config) client() *koanf.Koanf {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k
}

func parse(data []byte, format Format, delim string) (*koanf.Koanf, error) {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	k := koanf.New(delim)
	if len(data) == 0 {
		return k, nil
	}
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return k, nil
}
