package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

// NopMetricsRecorder drops every measurement. Services built without a
// recorder fall back to it so call sites never nil-check.
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// LogMetricsRecorder emits measurements as debug log lines. Useful for hosts
// without a metrics backend that still want counter visibility.
type LogMetricsRecorder struct {
	logger glog.Logger
}

func NewLogMetricsRecorder(logger glog.Logger) *LogMetricsRecorder {
	return &LogMetricsRecorder{logger: glog.Ensure(logger)}
}

func (r *LogMetricsRecorder) IncCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if r == nil || r.logger == nil {
		return
	}
	r.logger.WithContext(ctx).Debug("counter", metricArgs(name, value, tags)...)
}

func (r *LogMetricsRecorder) ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if r == nil || r.logger == nil {
		return
	}
	r.logger.WithContext(ctx).Debug("histogram", metricArgs(name, value, tags)...)
}

func metricArgs(name string, value any, tags map[string]string) []any {
	args := make([]any, 0, 4+len(tags)*2)
	args = append(args, "metric", name, "value", value)
	for key, tag := range tags {
		args = append(args, key, tag)
	}
	return args
}

func cloneTags(tags map[string]string) map[string]string {
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

var (
	_ MetricsRecorder = NopMetricsRecorder{}
	_ MetricsRecorder = (*LogMetricsRecorder)(nil)
)
