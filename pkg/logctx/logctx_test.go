package logctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromCtx_EnrichesTraceAndEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core).Sugar()

	ctx := context.WithValue(context.Background(), "traceID", "t-1")
	ctx = WithEventID(ctx, "evt-1")
	FromCtx(ctx, base).Infow("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	require.Equal(t, "t-1", fields["trace_id"])
	require.Equal(t, "evt-1", fields["event_id"])
	require.Equal(t, "t-1", TraceID(ctx))
}

func TestFromCtx_PrefersAttachedLogger(t *testing.T) {
	attached := zap.NewNop().Sugar()
	ctx := WithLogger(context.Background(), attached)
	require.Same(t, attached, FromCtx(ctx, zap.NewExample().Sugar()))
}
