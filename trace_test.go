// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==== Test Helpers: Trace Validation ====

type traceValidator func(*testing.T, *Trace)

func runTraceTest[A any](t *testing.T, eff Effect[A, string], validators ...traceValidator) {
	t.Helper()
	result, err := RunPromise(t.Context(), Traced(eff))
	require.NoError(t, err)
	require.NotNil(t, result.Trace)
	for _, validate := range validators {
		validate(t, result.Trace)
	}
}

func expectEvents(n int) traceValidator {
	return func(t *testing.T, trace *Trace) {
		t.Helper()
		require.Len(t, trace.Events, n)
		assert.Equal(t, n, trace.TotalEffects)
	}
}

func expectFailures(n int) traceValidator {
	return func(t *testing.T, trace *Trace) {
		t.Helper()
		assert.Equal(t, n, trace.TotalFailures)
	}
}

func expectEventNames(names ...string) traceValidator {
	return func(t *testing.T, trace *Trace) {
		t.Helper()
		var got []string
		for _, event := range trace.Events {
			got = append(got, event.Names[len(event.Names)-1])
		}
		assert.Equal(t, names, got)
	}
}

func expectEventPath(idx int, path []string) traceValidator {
	return func(t *testing.T, trace *Trace) {
		t.Helper()
		require.Greater(t, len(trace.Events), idx)
		assert.Equal(t, path, trace.Events[idx].Names)
	}
}

func expectOutcome(idx int, outcome string) traceValidator {
	return func(t *testing.T, trace *Trace) {
		t.Helper()
		require.Greater(t, len(trace.Events), idx)
		assert.Equal(t, outcome, trace.Events[idx].Outcome)
	}
}

func TestTraced(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		eff        Effect[int, string]
		validators []traceValidator
	}{
		{
			name: "SingleNamed",
			eff:  Named("test", Succeed[string](1)),
			validators: []traceValidator{
				expectEvents(1),
				expectEventNames("test"),
				expectOutcome(0, "success"),
			},
		},
		{
			name: "Sequence",
			eff: AndThen(
				Named("step1", Void[string]()),
				AndThen(Named("step2", Void[string]()), Named("step3", Succeed[string](3))),
			),
			validators: []traceValidator{
				expectEvents(3),
				expectEventNames("step1", "step2", "step3"),
			},
		},
		{
			name: "Nested",
			eff: Named("parent", AndThen(
				Named("child1", Void[string]()),
				Named("child2", Succeed[string](2)),
			)),
			validators: []traceValidator{
				expectEvents(3),
				expectEventPath(0, []string{"parent"}),
				expectEventPath(1, []string{"parent", "child1"}),
				expectEventPath(2, []string{"parent", "child2"}),
			},
		},
		{
			name: "Failure",
			eff:  Named("failing", Fail[int]("test error")),
			validators: []traceValidator{
				expectEvents(1),
				expectFailures(1),
				expectOutcome(0, "fail"),
			},
		},
		{
			name: "Defect",
			eff:  Named("dying", Die[int, string](errBoom)),
			validators: []traceValidator{
				expectFailures(1),
				expectOutcome(0, "die"),
			},
		},
		{
			name: "UnnamedNotTraced",
			eff: AndThen(
				Void[string](),
				AndThen(Named("named", Void[string]()), Succeed[string](1)),
			),
			validators: []traceValidator{
				expectEvents(1),
				expectEventNames("named"),
			},
		},
		{
			name: "RetriedAttempts",
			eff: Named("fetch", Map(Retry(
				Named("attempt", failUntil(new(counter), 3, "flaky")),
				Recurs[string](5),
			), func(n int64) int { return int(n) })),
			validators: []traceValidator{
				expectEvents(4),
				expectEventNames("fetch", "attempt", "attempt", "attempt"),
				expectOutcome(1, "fail"),
				expectOutcome(3, "success"),
				expectFailures(2),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			runTraceTest(t, tc.eff, tc.validators...)
		})
	}
}

func TestTracedCapturesExit(t *testing.T) {
	t.Parallel()
	result, err := RunSync(Traced(Named("op", Fail[int]("bad"))))
	require.NoError(t, err)
	requireFail(t, result.Exit, "bad")
	require.Len(t, result.Trace.Events, 1)
	assert.Equal(t, "Fail(bad)", result.Trace.Events[0].Error)
	assert.False(t, result.Trace.Events[0].Succeeded())
}

func TestTracedTiming(t *testing.T) {
	t.Parallel()
	eff := AndThen(Named("slow", Sleep[string](20*time.Millisecond)), Named("fast", Void[string]()))
	result, err := RunPromise(t.Context(), Traced(eff))
	require.NoError(t, err)

	trace := result.Trace
	assert.GreaterOrEqual(t, trace.Duration, 20*time.Millisecond)
	assert.GreaterOrEqual(t, trace.Events[0].Duration, 20*time.Millisecond)
	assert.False(t, trace.Events[1].Start.Before(trace.Events[0].Start))
	assert.False(t, trace.Events[0].Start.Before(trace.Start))
}

func TestTracedConcurrentFibers(t *testing.T) {
	t.Parallel()
	work := func(name string) Effect[int, string] {
		return Named(name, As(Sleep[string](5*time.Millisecond), 1))
	}
	eff := Named("batch", AllWith(Options{Concurrency: Unbounded}, work("a"), work("b"), work("c")))
	result, err := RunPromise(t.Context(), Traced(eff))
	require.NoError(t, err)

	trace := result.Trace
	require.Len(t, trace.Events, 4)
	fibers := map[string]bool{}
	for _, event := range trace.Events[1:] {
		assert.Equal(t, "batch", event.Names[0])
		fibers[event.Fiber] = true
	}
	assert.Len(t, fibers, 3, "each branch runs on its own fiber")
	assert.NotContains(t, fibers, trace.Events[0].Fiber)
}

func TestTracedRunsAreIndependent(t *testing.T) {
	t.Parallel()
	traced := Traced(Named("once", Void[string]()))
	first, err := RunSync(traced)
	require.NoError(t, err)
	second, err := RunSync(traced)
	require.NoError(t, err)
	assert.Len(t, first.Trace.Events, 1)
	assert.Len(t, second.Trace.Events, 1)
	assert.NotSame(t, first.Trace, second.Trace)
}

func TestWithoutTracedNothingIsRecorded(t *testing.T) {
	t.Parallel()
	requireSuccess(t, RunSyncExit(Named("plain", Succeed[string](1))), 1)
}

type flushingBuffer struct {
	bytes.Buffer
	flushed bool
}

func (b *flushingBuffer) Flush() error {
	b.flushed = true
	return nil
}

func TestWithStreamTo(t *testing.T) {
	t.Parallel()
	var buf flushingBuffer
	eff := Named("parent", AndThen(Named("child", Void[string]()), Named("failing", Fail[int]("nope"))))
	result, err := RunSync(Traced(eff, WithStreamTo(&buf)))
	require.NoError(t, err)
	assert.True(t, buf.flushed)

	var streamed []TraceEvent
	scanner := bufio.NewScanner(&buf.Buffer)
	for scanner.Scan() {
		var event TraceEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		streamed = append(streamed, event)
	}
	require.NoError(t, scanner.Err())

	// Events are streamed as they finish, so the parent comes last.
	require.Len(t, streamed, 3)
	assert.Equal(t, []string{"parent", "child"}, streamed[0].Names)
	assert.Equal(t, []string{"parent", "failing"}, streamed[1].Names)
	assert.Equal(t, "fail", streamed[1].Outcome)
	assert.Equal(t, []string{"parent"}, streamed[2].Names)
	assert.Len(t, result.Trace.Events, 3)
}

func TestTraceIsFrozenWhenReturned(t *testing.T) {
	t.Parallel()
	abandoned := TimeoutTo(Named("slow", As(Sleep[string](time.Hour), 1)), 5*time.Millisecond,
		func() int { return -1 })
	result, err := RunPromise(t.Context(), Traced(abandoned))
	require.NoError(t, err)
	requireSuccess(t, result.Exit, -1)

	trace := result.Trace
	require.Len(t, trace.Events, 1)
	outcome, failures, duration := trace.Events[0].Outcome, trace.TotalFailures, trace.Duration

	// The loser stops in the background; the returned trace must not change.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, trace.Events, 1)
	assert.Equal(t, outcome, trace.Events[0].Outcome)
	assert.Equal(t, failures, trace.TotalFailures)
	assert.Equal(t, duration, trace.Duration)
}

func TestTraceIgnoresOrphanedFibers(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	orphan := Named("orphan", FromAsync(func(context.Context) (int, error) {
		<-release
		return 1, nil
	}, func(err error) string { return err.Error() }))
	program := AndThen(Fork[string](AndThen(orphan, Named("after", Void[string]()))), Void[string]())

	result, err := RunPromise(t.Context(), Traced(program))
	require.NoError(t, err)
	count := len(result.Trace.Events)

	close(release)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, result.Trace.Events, count)
	assert.Equal(t, count, result.Trace.TotalEffects)
}
