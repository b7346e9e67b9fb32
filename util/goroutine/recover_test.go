package goroutine

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"alertfilter/metrics"
)

// TestRecover_NoPanic tests that Recover doesn't interfere when there's no panic
func TestRecover_NoPanic(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()

	func() {
		defer Recover("test-goroutine", logger)
	}()
}

func TestRecover_StringPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core).Sugar()

	before := testutil.ToFloat64(metrics.GoroutinePanics.WithLabelValues("string-panic-goroutine"))

	func() {
		defer Recover("string-panic-goroutine", logger)
		panic("test panic message")
	}()

	entries := logs.All()
	require.Len(t, entries, 1, "Should have logged exactly one error")

	entry := entries[0]
	assert.Equal(t, zap.ErrorLevel, entry.Level)
	assert.Equal(t, "Goroutine panic recovered", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "string-panic-goroutine", fields["goroutine"])
	assert.Equal(t, "test panic message", fields["panic"])

	stackTrace, ok := fields["stack"].(string)
	require.True(t, ok, "Stack trace should be a string")
	assert.Contains(t, stackTrace, "goroutine")

	after := testutil.ToFloat64(metrics.GoroutinePanics.WithLabelValues("string-panic-goroutine"))
	assert.Equal(t, before+1, after)
}

func TestRecover_IntPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core).Sugar()

	func() {
		defer Recover("int-panic-goroutine", logger)
		panic(42)
	}()

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(42), entries[0].ContextMap()["panic"])
}

func TestRecover_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		defer Recover("nil-logger-goroutine", nil)
		panic("no logger")
	})
}

func TestGo_RecoversAndReleasesWaitGroup(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core).Sugar()

	var wg sync.WaitGroup
	Go(&wg, "panicking", logger, func() { panic("boom") })
	Go(&wg, "quiet", logger, func() {})
	wg.Wait()

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "panicking", entries[0].ContextMap()["goroutine"])
}

func TestGo_NilWaitGroup(t *testing.T) {
	done := make(chan struct{})
	Go(nil, "fire-and-forget", zaptest.NewLogger(t).Sugar(), func() { close(done) })
	<-done
}
