package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger_LogMode(t *testing.T) {
	gormLog := NewGormLogger(zap.NewNop(), gormlogger.Info, time.Second)
	changed, ok := gormLog.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)

	assert.Equal(t, gormlogger.Info, gormLog.level)
	assert.Equal(t, gormlogger.Warn, changed.level)
	assert.Equal(t, time.Second, changed.slow)
}

func TestGormLogger_Trace(t *testing.T) {
	sqlFn := func() (string, int64) { return "UPDATE sales SET paid_amount = 30", 1 }
	ctx := WithSessionID(WithRequestID(context.Background(), "req-1"), "sess-1")

	t.Run("errors carry context ids", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Info, 0)

		l.Trace(ctx, time.Now(), sqlFn, errors.New("constraint failed"))

		require.Len(t, recorded.All(), 1)
		entry := recorded.All()[0]
		assert.Equal(t, "Ledger query failed", entry.Message)
		assert.Equal(t, "update", entry.ContextMap()["statement"])
		assert.Equal(t, "req-1", entry.ContextMap()["request_id"])
		assert.Equal(t, "sess-1", entry.ContextMap()["session_id"])
	})

	t.Run("uses the request logger from the context", func(t *testing.T) {
		baseCore, baseRecorded := observer.New(zapcore.DebugLevel)
		reqCore, reqRecorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(baseCore), gormlogger.Error, 0)

		reqCtx := WithContext(ctx, zap.New(reqCore).With(zap.String("path", "/collections/batch")))
		l.Trace(reqCtx, time.Now(), sqlFn, errors.New("locked"))

		assert.Empty(t, baseRecorded.All())
		require.Len(t, reqRecorded.All(), 1)
		assert.Equal(t, "/collections/batch", reqRecorded.All()[0].ContextMap()["path"])
	})

	t.Run("record not found is not logged", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn, 0)

		l.Trace(ctx, time.Now(), sqlFn, gormlogger.ErrRecordNotFound)
		assert.Empty(t, recorded.All())
	})

	t.Run("slow query warns", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn, time.Millisecond)

		l.Trace(ctx, time.Now().Add(-time.Second), sqlFn, nil)
		require.Len(t, recorded.All(), 1)
		assert.Equal(t, zapcore.WarnLevel, recorded.All()[0].Level)
		assert.Equal(t, "Slow ledger query", recorded.All()[0].Message)
	})

	t.Run("fast query below info is skipped", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		called := false
		l := NewGormLogger(zap.New(core), gormlogger.Warn, time.Hour)

		l.Trace(ctx, time.Now(), func() (string, int64) { called = true; return "", 0 }, nil)
		assert.Empty(t, recorded.All())
		assert.False(t, called)
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Silent, 0)

		l.Trace(ctx, time.Now(), sqlFn, errors.New("x"))
		assert.Empty(t, recorded.All())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("DEBUG"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("unknown"))
}
