package xfile

import (
	"fmt"
	"path/filepath"
	"strings"
)

func containsNullByte(path string) bool {
	return strings.ContainsRune(path, 0)
}

// hasDotDotSegment 检测路径中是否包含 ".." 独立路径段。
// '/' 和 '\' 都视为分隔符，Linux 上也能拦截 Windows 风格穿越。
func hasDotDotSegment(path string) bool {
	i := 0
	for i < len(path) {
		if path[i] == '/' || path[i] == '\\' {
			i++
			continue
		}
		j := i
		for j < len(path) && path[j] != '/' && path[j] != '\\' {
			j++
		}
		if j-i == 2 && path[i] == '.' && path[i+1] == '.' {
			return true
		}
		i = j
	}
	return false
}

// CleanDir 规范化目录路径并转为绝对路径
//
// 与文件路径不同，目录允许以分隔符结尾（"/var/log/" 等价于 "/var/log"）。
// 相对路径基于当前工作目录解析，解析结果在进程生命周期内固定，
// 之后切换工作目录不会影响日志位置。
func CleanDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("dir is required: %w", ErrEmptyPath)
	}
	if containsNullByte(dir) {
		return "", fmt.Errorf("dir contains null byte: %w", ErrNullByte)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w: %w", dir, ErrInvalidPath, err)
	}
	return abs, nil
}

// SafeJoin 将相对路径拼接到基准目录下，保证结果不超出 base
//
//	SafeJoin("/var/log", "2024-01/app.log") // -> "/var/log/2024-01/app.log"
//	SafeJoin("/var/log", "../etc/passwd")   // -> ErrPathTraversal
//	SafeJoin("/var/log", "/etc/passwd")     // -> ErrInvalidPath
//
// 不解析符号链接：返回的是经过校验的路径字符串，校验与实际打开之间
// 存在 TOCTOU 窗口，只适用于可信的日志目录。
func SafeJoin(base, path string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("base directory is required: %w", ErrEmptyPath)
	}
	if path == "" {
		return "", fmt.Errorf("path is required: %w", ErrEmptyPath)
	}
	if containsNullByte(base) || containsNullByte(path) {
		return "", ErrNullByte
	}
	cleanBase := filepath.Clean(base)
	if !filepath.IsAbs(cleanBase) {
		return "", fmt.Errorf("base must be an absolute path: %w", ErrInvalidPath)
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, `\`) {
		return "", fmt.Errorf("path must be relative: %w", ErrInvalidPath)
	}
	cleanPath := filepath.Clean(path)
	if hasDotDotSegment(cleanPath) {
		return "", fmt.Errorf("path traversal in %q: %w", path, ErrPathTraversal)
	}

	joined := filepath.Join(cleanBase, cleanPath)
	rel, err := filepath.Rel(cleanBase, joined)
	if err != nil || hasDotDotSegment(rel) {
		return "", ErrPathEscaped
	}
	return joined, nil
}
