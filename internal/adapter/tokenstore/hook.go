package tokenstore

import (
	"context"
	"errors"
	"net"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Metrics records Redis token store traffic.
type Metrics interface {
	OperationCompleted(operation, status string, elapsed time.Duration)
	ConnectionFailed()
}

// MetricsHook is a go-redis hook that reports every command to Metrics.
type MetricsHook struct {
	metrics Metrics
}

var _ goredis.Hook = (*MetricsHook)(nil)

func NewMetricsHook(m Metrics) *MetricsHook {
	return &MetricsHook{metrics: m}
}

func (h *MetricsHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.metrics.ConnectionFailed()
		}
		return conn, err
	}
}

func (h *MetricsHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.metrics.OperationCompleted(cmd.Name(), status(err), time.Since(start))
		return err
	}
}

// ProcessPipelineHook records a pipeline as one operation. The store does not
// pipeline today, but a hook must cover every path.
func (h *MetricsHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.metrics.OperationCompleted("pipeline", status(err), time.Since(start))
		return err
	}
}

// status treats a missing key as success: an empty store is a normal state.
func status(err error) string {
	if err != nil && !errors.Is(err, goredis.Nil) {
		return "error"
	}
	return "success"
}
