package store

import (
	"context"

	"go.uber.org/multierr"
)

// MultiSink 将遥测同时写入多个目标；任一失败不影响其他目标
type MultiSink []TelemetrySink

func (m MultiSink) AppendTelemetry(ctx context.Context, batch TelemetryBatch) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.AppendTelemetry(ctx, batch))
	}
	return err
}

func (m MultiSink) Close() error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Close())
	}
	return err
}
