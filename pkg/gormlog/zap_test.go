package gormlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestShortCaller(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"/home/ci/src/internal/models/x.go:38", "internal/models/x.go:38"},
		{`C:\src\pkg\x\y.go:12`, "pkg/x/y.go:12"},
		{"/a/b/c/d.go:7", "b/c/d.go:7"},
		{"c/d.go:1", "c/d.go:1"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, shortCaller(tc.in), "input=%q", tc.in)
	}
}

func TestTrace_IgnoresRecordNotFound(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core).Sugar(), WithLogLevel(gormlogger.Warn))

	fc := func() (string, int64) { return "SELECT 1", 0 }
	l.Trace(context.Background(), time.Now(), fc, gormlogger.ErrRecordNotFound)
	require.Equal(t, 0, logs.Len())

	l.Trace(context.Background(), time.Now(), fc, errors.New("boom"))
	require.Equal(t, 1, logs.FilterMessage("gorm_trace").Len())
}

func TestTrace_SlowQuery(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core).Sugar(), WithSlowThreshold(time.Millisecond), WithLogLevel(gormlogger.Warn))

	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 1", 1 }, nil)
	require.Equal(t, 1, logs.FilterMessage("gorm_slow").Len())
}
