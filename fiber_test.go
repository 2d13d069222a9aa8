// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunFork(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	fiber := RunFork(t.Context(), FromAsync(func(ctx context.Context) (string, error) {
		<-release
		return "done", nil
	}, func(err error) string { return err.Error() }))

	assert.NotEqual(t, uuid.Nil, fiber.ID())
	assert.Equal(t, FiberRunning, fiber.Status())
	_, finished := fiber.Poll()
	assert.False(t, finished)

	close(release)
	exit, err := fiber.Await(t.Context())
	require.NoError(t, err)
	requireSuccess(t, exit, "done")
	assert.Equal(t, FiberSucceeded, fiber.Status())

	polled, finished := fiber.Poll()
	assert.True(t, finished)
	requireSuccess(t, polled, "done")
}

func TestFiberStatus(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name string
		eff  Effect[int, string]
		want FiberStatus
	}{
		{name: "Succeeded", eff: Succeed[string](1), want: FiberSucceeded},
		{name: "Failed", eff: Fail[int]("bad"), want: FiberFailed},
		{name: "Died", eff: Die[int, string](errBoom), want: FiberFailed},
		{name: "Interrupted", eff: Interrupt[int, string](), want: FiberInterrupted},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			fiber := RunFork(t.Context(), tc.eff)
			<-fiber.Done()
			assert.Equal(t, tc.want, fiber.Status())
			assert.Equal(t, tc.want.String(), fiber.Status().String())
		})
	}
	assert.Equal(t, "not started", FiberNotStarted.String())
	assert.Equal(t, "unknown", FiberStatus(42).String())
}

func TestFiberInterrupt(t *testing.T) {
	t.Parallel()
	fiber := RunFork(t.Context(), Sleep[string](time.Hour))
	fiber.Interrupt()
	exit, err := fiber.Await(t.Context())
	require.NoError(t, err)
	requireKind(t, exit, CauseInterrupt)
	assert.Equal(t, FiberInterrupted, fiber.Status())
}

func TestFiberAwaitTimeout(t *testing.T) {
	t.Parallel()
	fiber := RunFork(t.Context(), Sleep[string](time.Hour))
	defer fiber.Interrupt()

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	_, err := fiber.Await(ctx)
	require.ErrorIs(t, err, ErrFiberNotDone)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, FiberRunning, fiber.Status())
}

func TestForkJoin(t *testing.T) {
	t.Parallel()
	program := FlatMap(Fork[string](Delay(Succeed[string](21), 10*time.Millisecond)),
		func(fiber *Fiber[int, string]) Effect[int, string] {
			return Map(Join(fiber), func(n int) int { return n * 2 })
		})
	value, err := RunPromise(t.Context(), program)
	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestJoinAdoptsFailure(t *testing.T) {
	t.Parallel()
	program := FlatMap(Fork[string](Fail[int]("child failed")), Join[int, string])
	requireFail(t, RunPromiseExit(t.Context(), program), "child failed")
}

func TestForkRunsConcurrently(t *testing.T) {
	t.Parallel()
	start := time.Now()
	program := Gen(func(y *Yielder[string]) Effect[int, string] {
		a := Bind(y, Fork[string](Delay(Succeed[string](1), 100*time.Millisecond)))
		b := Bind(y, Fork[string](Delay(Succeed[string](2), 100*time.Millisecond)))
		return Succeed[string](Bind(y, Join(a)) + Bind(y, Join(b)))
	})
	value, err := RunPromise(t.Context(), program)
	require.NoError(t, err)
	assert.Equal(t, 3, value)
	assert.Less(t, time.Since(start), 190*time.Millisecond)
}

func TestInterruptFiber(t *testing.T) {
	t.Parallel()
	program := FlatMap(Fork[string](As(Sleep[string](time.Hour), 1)),
		InterruptFiber[string, int, string])
	exit, err := RunPromise(t.Context(), program)
	require.NoError(t, err)
	requireKind(t, exit, CauseInterrupt)
}

func TestForkInterruptedWithParent(t *testing.T) {
	t.Parallel()
	var child *Fiber[struct{}, string]
	ctx, cancel := context.WithCancel(t.Context())
	program := FlatMap(Fork[string](Sleep[string](time.Hour)), func(f *Fiber[struct{}, string]) Effect[struct{}, string] {
		child = f
		return Void[string]()
	})
	_, err := RunPromise(ctx, program)
	require.NoError(t, err)

	cancel()
	exit, err := child.Await(t.Context())
	require.NoError(t, err)
	requireKind(t, exit, CauseInterrupt)
}

func TestForkRejectedBySyncExecutor(t *testing.T) {
	t.Parallel()
	_, err := RunSync(Fork[string](Succeed[string](1)))
	assert.ErrorIs(t, err, ErrAsyncSuspension)
}
