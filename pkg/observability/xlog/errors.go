package xlog

import "errors"

var (
	// ErrUnknownLevel 无法识别的级别名
	ErrUnknownLevel = errors.New("xlog: unknown level")

	// ErrUnknownFormat 无法识别的输出格式（仅支持 text/json）
	ErrUnknownFormat = errors.New("xlog: unknown format")

	// ErrNilConsumer SetSink 传入了 nil Consumer
	ErrNilConsumer = errors.New("xlog: consumer is nil")

	// ErrNilWriter SetOutput 传入了 nil io.Writer
	ErrNilWriter = errors.New("xlog: output writer is nil")
)
