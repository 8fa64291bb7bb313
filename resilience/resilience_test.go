package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/mohitkumar/eventflow/transport"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	for scenario, fn := range map[string]func(t *testing.T, now time.Time){
		"first retry without hold":     testFirstRetry,
		"attempts exhausted":           testAttemptsExhausted,
		"ok status bypasses":           testOkStatus,
		"alternate range reroutes":     testAlternateRange,
		"alternate code and bad range": testAlternateCode,
		"backoff still active":         testBackoffActive,
		"backoff expired resets":       testBackoffExpired,
		"backoff triggered":            testBackoffTriggered,
		"defaults":                     testDefaults,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, now)
		})
	}
}

func testFirstRetry(t *testing.T, now time.Time) {
	result, hold := Evaluate(map[string]any{"status": 500, "attempt": 0, "max_attempts": 3, "delay": 10}, now)
	require.Equal(t, DECISION_RETRY, result[DECISION])
	require.Equal(t, 1, result[ATTEMPT])
	require.Equal(t, 0, result[CUMULATIVE])
	require.Zero(t, hold)

	result, hold = Evaluate(map[string]any{"status": 500, "attempt": 1, "max_attempts": 3, "delay": 25}, now)
	require.Equal(t, DECISION_RETRY, result[DECISION])
	require.Equal(t, 2, result[ATTEMPT])
	require.Equal(t, 25*time.Millisecond, hold)
}

func testAttemptsExhausted(t *testing.T, now time.Time) {
	result, hold := Evaluate(map[string]any{"status": 500, "attempt": 3, "max_attempts": 3, "delay": 10, "message": "boom"}, now)
	require.Equal(t, DECISION_ABORT, result[DECISION])
	require.Equal(t, 500, result[STATUS])
	require.Equal(t, 4, result[ATTEMPT])
	require.Equal(t, "boom", result[MESSAGE])
	require.Zero(t, hold)

	result, _ = Evaluate(map[string]any{"status": "500", "attempt": "1"}, now)
	require.Equal(t, DECISION_ABORT, result[DECISION])
	require.Equal(t, "Runtime exception", result[MESSAGE])
}

func testOkStatus(t *testing.T, now time.Time) {
	for _, attempt := range []int{0, 5, 100} {
		result, hold := Evaluate(map[string]any{"status": 200, "attempt": attempt}, now)
		require.Equal(t, map[string]any{DECISION: DECISION_RETRY}, result)
		require.Zero(t, hold)
	}
	result, _ := Evaluate(map[string]any{"status": 100}, now)
	require.Equal(t, map[string]any{DECISION: DECISION_RETRY}, result)
}

func testAlternateRange(t *testing.T, now time.Time) {
	result, _ := Evaluate(map[string]any{"status": 503, "max_attempts": 3, "alternate": "502-504,520"}, now)
	require.Equal(t, DECISION_REROUTE, result[DECISION])

	result, _ = Evaluate(map[string]any{"status": 503, "max_attempts": 3, "alternate": "504-502"}, now)
	require.Equal(t, DECISION_REROUTE, result[DECISION])

	result, _ = Evaluate(map[string]any{"status": 500, "max_attempts": 3, "alternate": "502-504,520"}, now)
	require.Equal(t, DECISION_RETRY, result[DECISION])
}

func testAlternateCode(t *testing.T, now time.Time) {
	result, _ := Evaluate(map[string]any{"status": 520, "max_attempts": 3, "alternate": "502-504, 520"}, now)
	require.Equal(t, DECISION_REROUTE, result[DECISION])

	result, _ = Evaluate(map[string]any{"status": 201, "max_attempts": 3, "alternate": "100-300"}, now)
	require.Equal(t, DECISION_RETRY, result[DECISION])
}

func testBackoffActive(t *testing.T, now time.Time) {
	until := now.UnixMilli() + 5000
	result, hold := Evaluate(map[string]any{"status": 500, "backoff": until, "attempt": 1}, now)
	require.Equal(t, DECISION_ABORT, result[DECISION])
	require.Equal(t, 503, result[STATUS])
	require.Equal(t, until, result[BACKOFF])
	require.Equal(t, "Service temporarily not available - please try again in 5 seconds", result[MESSAGE])
	require.NotContains(t, result, ATTEMPT)
	require.Zero(t, hold)

	result, _ = Evaluate(map[string]any{"backoff": now.UnixMilli() + 300}, now)
	require.Equal(t, "Service temporarily not available - please try again in 1 second", result[MESSAGE])
}

func testBackoffExpired(t *testing.T, now time.Time) {
	result, _ := Evaluate(map[string]any{
		"status": 500, "backoff": now.UnixMilli() - 1, "cumulative": 9,
		"max_attempts": 3, "backoff_trigger": 2, "backoff_seconds": 30,
	}, now)
	require.Equal(t, DECISION_RETRY, result[DECISION])
	require.Equal(t, 1, result[CUMULATIVE])
}

func testBackoffTriggered(t *testing.T, now time.Time) {
	result, _ := Evaluate(map[string]any{
		"status": 500, "cumulative": 2, "max_attempts": 10,
		"backoff_trigger": 2, "backoff_seconds": 30,
	}, now)
	require.Equal(t, DECISION_ABORT, result[DECISION])
	require.Equal(t, 503, result[STATUS])
	require.Equal(t, now.UnixMilli()+30_000, result[BACKOFF])
	require.Equal(t, "Service temporarily not available - please try again in 30 seconds", result[MESSAGE])
}

func testDefaults(t *testing.T, now time.Time) {
	result, hold := Evaluate(map[string]any{"status": 500, "attempt": 1, "max_attempts": 5, "delay": 1}, now)
	require.Equal(t, DECISION_RETRY, result[DECISION])
	require.Equal(t, 10*time.Millisecond, hold)
}

func TestHandler(t *testing.T) {
	h := NewHandler()
	evt := transport.NewEvent(ServiceName)
	evt.Body = map[string]any{"status": 500, "attempt": 1, "max_attempts": 3, "delay": 20}
	start := time.Now()
	out, err := h.HandleEvent(context.Background(), evt)
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	require.Equal(t, DECISION_RETRY, out.(map[string]any)[DECISION])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	evt.Body = map[string]any{"status": 500, "attempt": 1, "max_attempts": 3, "delay": 5000}
	_, err = h.HandleEvent(ctx, evt)
	require.ErrorIs(t, err, context.Canceled)
}
