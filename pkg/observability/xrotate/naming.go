package xrotate

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// dateLayout 文件名前缀，固定格式，不依赖 locale
	dateLayout = "2006-01-02"

	// monthLayout 按月子目录名
	monthLayout = "2006-01"

	// logExt 日志文件扩展名
	logExt = ".log"

	// maxIndex 序号上限，超出视为格式错误（按 0 处理）
	//
	// 取 int32 上限，32 位平台上 int 也能表示。
	maxIndex = math.MaxInt32
)

// DatePrefix 返回 t 在 loc 时区下的 "YYYY-MM-DD"
func DatePrefix(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// MonthDir 返回 t 在 loc 时区下的 "YYYY-MM"
func MonthDir(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(monthLayout)
}

// FileName 生成日志文件名
//
// index 为 0 时不带序号：
//
//	FileName("2024-01-01", 0, "svc") // "2024-01-01_svc.log"
//	FileName("2024-01-01", 2, "svc") // "2024-01-01[2]_svc.log"
func FileName(datePrefix string, index int, suffix string) string {
	var b strings.Builder
	b.Grow(len(datePrefix) + len(suffix) + 16)
	b.WriteString(datePrefix)
	if index > 0 {
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(index))
		b.WriteByte(']')
	}
	b.WriteByte('_')
	b.WriteString(suffix)
	b.WriteString(logExt)
	return b.String()
}

// ParseIndex 解析文件名中第一对方括号内的序号
//
// 没有方括号、内容不是十进制数字或超过上限时返回 0，从不报错。
func ParseIndex(name string) int {
	begin := strings.IndexByte(name, '[')
	if begin < 0 {
		return 0
	}
	end := strings.IndexByte(name[begin+1:], ']')
	if end < 0 {
		return 0
	}
	digits := name[begin+1 : begin+1+end]
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n > maxIndex {
		return 0
	}
	return n
}

// MatchName 判断 name 是否属于 datePrefix 当天、suffix 对应的日志文件
//
// 匹配形如 "<datePrefix>[<...>]_<suffix>.log" 或 "<datePrefix>_<suffix>.log"
// 的名称，返回其序号。方括号内容非法（如 "[x]"）仍视为匹配，序号为 0，
// 保证扫描不会因为一个异常文件中断。
func MatchName(name, datePrefix, suffix string) (int, bool) {
	tail := "_" + suffix + logExt
	if len(name) < len(datePrefix)+len(tail) ||
		!strings.HasPrefix(name, datePrefix) || !strings.HasSuffix(name, tail) {
		return 0, false
	}
	middle := name[len(datePrefix) : len(name)-len(tail)]
	if middle == "" {
		return 0, true
	}
	if len(middle) < 2 || middle[0] != '[' || middle[len(middle)-1] != ']' ||
		strings.ContainsAny(middle[1:len(middle)-1], "[]") {
		return 0, false
	}
	return ParseIndex(middle), true
}

// NextIndex 根据目录条目计算下一个可用序号
//
// 没有匹配项返回 0；否则返回最大已有序号 + 1。
// 序号已到 maxIndex 的文件按 0 处理，+1 不会溢出。
func NextIndex(names []string, datePrefix, suffix string) int {
	next := 0
	for _, name := range names {
		idx, ok := MatchName(name, datePrefix, suffix)
		if idx >= maxIndex {
			idx = 0
		}
		if ok && idx >= next {
			next = idx + 1
		}
	}
	return next
}

// validSuffix 后缀会直接拼进文件名，不能改变目录结构，也不能干扰序号解析
func validSuffix(suffix string) bool {
	if suffix == "." || suffix == ".." {
		return false
	}
	return !strings.ContainsAny(suffix, "/\\[]\x00")
}
