package xrotate

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/omeyang/xdaylog/xrotate"

	metricRecords   = "xrotate.daily.records"
	metricBytes     = "xrotate.daily.bytes"
	metricRotations = "xrotate.daily.rotations"
	metricDropped   = "xrotate.daily.dropped"

	attrSuffix = "suffix"
	attrReason = "reason"
)

// 轮转和丢弃原因，作为指标属性 reason 的取值
const (
	reasonSize      = "size"
	reasonBroken    = "broken"
	reasonDay       = "day"
	reasonManual    = "manual"
	reasonDirCreate = "dir_create"
	reasonOpen      = "open"
)

// sinkMetrics DailySink 的计数器集合
//
// 未配置 MeterProvider 时使用全局 provider，默认是 noop，开销可忽略。
type sinkMetrics struct {
	records   metric.Int64Counter
	bytes     metric.Int64Counter
	rotations metric.Int64Counter
	dropped   metric.Int64Counter
	suffix    attribute.KeyValue
}

func newSinkMetrics(provider metric.MeterProvider, suffix string) (*sinkMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(instrumentationName)

	records, err := meter.Int64Counter(metricRecords,
		metric.WithDescription("records written to daily log files"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("xrotate: create counter failed: %w", err)
	}
	bytes, err := meter.Int64Counter(metricBytes,
		metric.WithDescription("bytes written to daily log files"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("xrotate: create counter failed: %w", err)
	}
	rotations, err := meter.Int64Counter(metricRotations,
		metric.WithDescription("daily log file rotations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("xrotate: create counter failed: %w", err)
	}
	dropped, err := meter.Int64Counter(metricDropped,
		metric.WithDescription("records dropped because no log file could be opened"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("xrotate: create counter failed: %w", err)
	}

	return &sinkMetrics{
		records:   records,
		bytes:     bytes,
		rotations: rotations,
		dropped:   dropped,
		suffix:    attribute.String(attrSuffix, suffix),
	}, nil
}

func (m *sinkMetrics) written(n int) {
	ctx := context.Background()
	set := metric.WithAttributes(m.suffix)
	m.records.Add(ctx, 1, set)
	m.bytes.Add(ctx, int64(n), set)
}

func (m *sinkMetrics) rotated(reason string) {
	m.rotations.Add(context.Background(), 1,
		metric.WithAttributes(m.suffix, attribute.String(attrReason, reason)))
}

func (m *sinkMetrics) drop(reason string) {
	m.dropped.Add(context.Background(), 1,
		metric.WithAttributes(m.suffix, attribute.String(attrReason, reason)))
}
