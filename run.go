// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"context"
)

// RunSyncExit runs eff to completion on the calling goroutine and returns
// its outcome.
//
// The synchronous executor cannot wait: an effect that reaches an
// asynchronous step (such as [FromAsync], a positive [Sleep], [Timeout] or
// a concurrent [AllWith]) dies with [ErrAsyncSuspension].
func RunSyncExit[A, E any](eff Effect[A, E]) Exit[A, E] {
	return runExit[A, E](newRunner(context.Background(), true), eff)
}

// RunSync runs eff like [RunSyncExit] and returns its value, or a
// [*FiberFailure] describing the failure.
//
// Example:
//
//	value, err := effect.RunSync(effect.Succeed[string](42))
func RunSync[A, E any](eff Effect[A, E]) (A, error) {
	return RunSyncExit(eff).Get()
}

// RunPromiseExit runs eff to completion and returns its outcome. It
// supports every kind of effect, blocking the calling goroutine while
// asynchronous steps are pending.
//
// Cancelling ctx interrupts the effect at its next suspension point.
func RunPromiseExit[A, E any](ctx context.Context, eff Effect[A, E]) Exit[A, E] {
	return runExit[A, E](newRunner(ctx, false), eff)
}

// RunPromise runs eff like [RunPromiseExit] and returns its value, or a
// [*FiberFailure] describing the failure.
//
// Example:
//
//	value, err := effect.RunPromise(ctx, effect.Timeout(fetch, 5*time.Second))
func RunPromise[A, E any](ctx context.Context, eff Effect[A, E]) (A, error) {
	return RunPromiseExit(ctx, eff).Get()
}

// RunFork starts eff on a new goroutine and returns its [Fiber] without
// waiting. Cancelling ctx, or calling [Fiber.Interrupt], interrupts it.
func RunFork[A, E any](ctx context.Context, eff Effect[A, E]) *Fiber[A, E] {
	if ctx == nil {
		ctx = context.Background()
	}
	return startFiber[A, E](ctx, eff.instr)
}

func runExit[A, E any](r *runner, eff Effect[A, E]) Exit[A, E] {
	value, cause := r.eval(eff.instr)
	return exitOf[A, E](value, cause)
}
