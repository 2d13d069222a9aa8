// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"context"
	"sync"
)

// An Effect is an immutable, lazy description of work that may succeed with
// a value of type A or fail with an expected error of type E.
//
// Building an Effect performs no work. Work happens only when an executor
// such as [RunSync], [RunPromise] or [RunFork] interprets it, and every run
// is independent: the same Effect can be run any number of times.
//
// The zero Effect is not valid; running it produces a defect.
type Effect[A, E any] struct {
	instr instr
}

// instr is one node of the instruction tree the runtime interprets.
type instr interface {
	isInstr()
}

// succeedInstr is a success literal.
type succeedInstr struct {
	value any
}

// failInstr is a failure literal.
type failInstr struct {
	cause *rawCause
}

// syncInstr runs a synchronous thunk.
type syncInstr struct {
	thunk func() (any, *rawCause)
}

// suspendInstr builds the next instruction at run time.
type suspendInstr struct {
	thunk func() instr
}

// asyncInstr blocks the running fiber until run returns. It is the only
// instruction the synchronous executor refuses.
type asyncInstr struct {
	run func(r *runner) instr
}

// flatMapInstr sequences first with a continuation on success.
type flatMapInstr struct {
	first instr
	k     func(any) instr
}

// foldInstr sequences first with handlers for both outcomes. A nil handler
// passes that outcome through unchanged.
type foldInstr struct {
	first     instr
	onSuccess func(any) instr
	onFailure func(*rawCause) instr
}

// fiberInstr gives access to the running fiber and its context.
type fiberInstr struct {
	f func(r *runner) instr
}

// localInstr runs body with a derived context and restores the previous
// context afterwards.
type localInstr struct {
	modify func(context.Context) context.Context
	body   instr
}

func (succeedInstr) isInstr() {}
func (failInstr) isInstr()    {}
func (syncInstr) isInstr()    {}
func (suspendInstr) isInstr() {}
func (asyncInstr) isInstr()   {}
func (flatMapInstr) isInstr() {}
func (foldInstr) isInstr()    {}
func (fiberInstr) isInstr()   {}
func (localInstr) isInstr()   {}

// resultInstr turns an evaluated outcome back into an instruction.
func resultInstr(value any, cause *rawCause) instr {
	if cause != nil {
		return failInstr{cause: cause}
	}
	return succeedInstr{value: value}
}

// Succeed returns an effect that always succeeds with value.
//
// The error type comes first so that it is the only type argument callers
// need to spell out:
//
//	answer := effect.Succeed[string](42) // Effect[int, string]
func Succeed[E, A any](value A) Effect[A, E] {
	return Effect[A, E]{succeedInstr{value: value}}
}

// Void returns an effect that succeeds with the empty struct.
func Void[E any]() Effect[struct{}, E] {
	return Succeed[E](struct{}{})
}

// Fail returns an effect that always fails with the expected error err.
//
//	failed := effect.Fail[int]("Something went wrong") // Effect[int, string]
func Fail[A, E any](err E) Effect[A, E] {
	return Effect[A, E]{failInstr{cause: failRaw(err)}}
}

// Die returns an effect that fails with a defect. Defects are not part of
// the error channel and are not seen by [CatchAll] and friends.
func Die[A, E any](defect any) Effect[A, E] {
	return Effect[A, E]{failInstr{cause: dieRaw(defect)}}
}

// Interrupt returns an effect that interrupts itself.
func Interrupt[A, E any]() Effect[A, E] {
	return Effect[A, E]{failInstr{cause: interrupted}}
}

// FailWithCause returns an effect that fails with the given cause.
func FailWithCause[A, E any](cause Cause[E]) Effect[A, E] {
	return Effect[A, E]{failInstr{cause: rawOf(cause)}}
}

// FromExit returns an effect that replays exit.
func FromExit[A, E any](exit Exit[A, E]) Effect[A, E] {
	if cause, failed := exit.Cause(); failed {
		return FailWithCause[A](cause)
	}
	value, _ := exit.Value()
	return Succeed[E](value)
}

// Sync returns an effect that calls thunk each time it runs.
//
// If thunk panics the effect dies with a [*RecoveredPanic]; a panic is a
// defect, never an expected failure.
func Sync[E, A any](thunk func() A) Effect[A, E] {
	return Effect[A, E]{syncInstr{thunk: func() (any, *rawCause) {
		return thunk(), nil
	}}}
}

// Try returns an effect that calls thunk each time it runs. A returned
// error is mapped through onError into an expected failure.
//
// Example:
//
//	parse := effect.Try(
//	    func() (int, error) { return strconv.Atoi(input) },
//	    func(err error) string { return "Invalid number" },
//	)
func Try[A, E any](thunk func() (A, error), onError func(error) E) Effect[A, E] {
	return Effect[A, E]{syncInstr{thunk: func() (any, *rawCause) {
		value, err := thunk()
		if err != nil {
			return nil, failRaw(onError(err))
		}
		return value, nil
	}}}
}

// Suspend defers building an effect until it runs.
//
// This is how recursive or stateful effects are written: thunk is called
// afresh on every run.
func Suspend[A, E any](thunk func() Effect[A, E]) Effect[A, E] {
	return Effect[A, E]{suspendInstr{thunk: func() instr {
		return thunk().instr
	}}}
}

// FromAsync returns an effect that runs thunk on its own goroutine and
// waits for it.
//
// A returned error is mapped through onReject into an expected failure; a
// panic becomes a defect. The context passed to thunk is cancelled when
// the running fiber is interrupted, and the effect observes interruption
// even if thunk ignores its context. In that case thunk is abandoned and
// its result discarded.
//
// Example:
//
//	fetch := effect.FromAsync(
//	    func(ctx context.Context) (*http.Response, error) {
//	        req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
//	        return http.DefaultClient.Do(req)
//	    },
//	    func(err error) string { return "Network error: " + err.Error() },
//	)
func FromAsync[A, E any](
	thunk func(context.Context) (A, error),
	onReject func(error) E,
) Effect[A, E] {
	return Effect[A, E]{asyncInstr{run: func(r *runner) instr {
		type result struct {
			value    A
			err      error
			panicked any
		}
		done := make(chan result, 1)
		ctx := r.ctx
		go func() {
			var res result
			defer func() {
				if p := recover(); p != nil {
					res = result{panicked: &RecoveredPanic{Value: p}}
				}
				done <- res
			}()
			res.value, res.err = thunk(ctx)
		}()

		select {
		case res := <-done:
			switch {
			case res.panicked != nil:
				return failInstr{cause: dieRaw(res.panicked)}
			case res.err != nil:
				return failInstr{cause: failRaw(onReject(res.err))}
			default:
				return succeedInstr{value: res.value}
			}
		case <-ctx.Done():
			return failInstr{cause: interrupted}
		}
	}}}
}

// Async returns an effect completed by a callback.
//
// register is called with the fiber's context and a resume function. The
// first call to resume completes the effect with the given effect; later
// calls are ignored. If the fiber is interrupted before resume is called,
// the effect is interrupted.
func Async[A, E any](register func(ctx context.Context, resume func(Effect[A, E]))) Effect[A, E] {
	return Effect[A, E]{asyncInstr{run: func(r *runner) instr {
		resumed := make(chan instr, 1)
		var once sync.Once
		register(r.ctx, func(next Effect[A, E]) {
			once.Do(func() {
				resumed <- next.instr
			})
		})

		select {
		case next := <-resumed:
			return next
		case <-r.ctx.Done():
			return failInstr{cause: interrupted}
		}
	}}}
}
