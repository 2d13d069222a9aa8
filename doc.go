// SPDX-License-Identifier: Apache-2.0

// Package effect provides lazy, composable computations with typed errors,
// along with the executors that run them and combinators for recovery,
// retry, timeouts and concurrency.
//
// # The Problem
//
// Code that talks to the outside world needs retries with backoff,
// deadlines, fallbacks and concurrent fan-out. Written by hand, each of
// those concerns brings its own goroutines, timers, channels and error
// plumbing, and the business logic ends up buried underneath. Errors get
// flattened into a single error interface, so callers can no longer tell
// an expected failure from a bug.
//
// This package separates describing work from running it. Work is
// described as an [Effect] value, and concerns such as retry or timeout
// become ordinary functions from effects to effects.
//
// # Core Concepts
//
// An [Effect] describes work that may succeed with a value of type A or
// fail with an expected error of type E:
//
//	type Effect[A, E any] struct{ /* ... */ }
//
// Building an effect does nothing. An executor runs it and produces an
// [Exit], either a success value or a [Cause]. Causes come in three kinds:
//
//   - Fail carries an expected error of type E
//
//   - Die carries a defect, such as a recovered panic
//
//   - Interrupt records a cancellation
//
// Recovery combinators such as [CatchAll] and [OrElse] see only Fail.
// Defects and interruptions pass through them, so a bug is never mistaken
// for a business failure.
//
// # Running Effects
//
// [RunSync] runs an effect on the calling goroutine and rejects effects
// that need to wait. [RunPromise] supports every effect, blocking until it
// completes; cancelling its context interrupts the effect. [RunFork]
// starts an effect in the background and returns a [Fiber].
//
//	value, err := effect.RunPromise(ctx, program)
//
// # Error Handling
//
// Retry with a schedule, bound the whole attempt with a timeout, and fall
// back to a default value:
//
//	robust := effect.OrElseSucceed(
//	    effect.Timeout(
//	        effect.Retry(fetch, effect.Recurs[string](3)),
//	        5*time.Second,
//	    ),
//	    "fallback",
//	)
//
// The error type of robust is [Never]: it cannot fail with an expected
// error. Tagged errors, which implement [Tagged], can be handled one
// variant at a time with [CatchTag].
//
// # Concurrency
//
// [AllWith] runs effects with bounded concurrency and keeps results in
// input order; the first failure interrupts the rest:
//
//	results := effect.AllWith(effect.Options{Concurrency: 4}, fetches...)
//
// # Observability
//
// [Named] labels effects. [WithLogging] and the Log effects write
// structured entries through a [zap.Logger] carried in the context, and
// [Traced] records an event for every named effect.
//
// # Requirements
//
// The package requires Go 1.24 or later.
package effect
