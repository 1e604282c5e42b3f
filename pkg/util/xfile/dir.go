package xfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultDirPerm 默认目录权限（rwxr-x---，符合 gosec G301）
const DefaultDirPerm = 0750

// EnsureDir 使用 DefaultDirPerm 确保文件的父目录存在。
func EnsureDir(filename string) error {
	return EnsureDirWithPerm(filename, DefaultDirPerm)
}

// EnsureDirWithPerm 确保文件的父目录存在，使用指定权限
//
// filename 是文件路径而不是目录路径。中间目录会被递归创建，
// 已存在的目录不会报错，也不会修改其权限。
func EnsureDirWithPerm(filename string, perm os.FileMode) error {
	if filename == "" {
		return fmt.Errorf("filename is required: %w", ErrEmptyPath)
	}
	if containsNullByte(filename) {
		return fmt.Errorf("filename contains null byte: %w", ErrNullByte)
	}
	if perm&0100 == 0 {
		return fmt.Errorf("directory permission %04o missing owner execute bit: %w", perm, ErrInvalidPerm)
	}
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, perm)
}

// ListNames 返回目录下所有条目的名称
//
// 目录不存在时返回 (nil, nil)：对按月分目录的日志来说，
// 当月第一次写入前目录不存在是正常状态。其余错误（权限不足、
// 路径是普通文件等）原样返回，由调用方决定是否降级。
func ListNames(dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required: %w", ErrEmptyPath)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
