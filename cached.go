// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cached returns an effect that runs eff once and replays its outcome on
// every later run.
//
// Concurrent first runs share a single execution of eff. Every outcome is
// remembered except two that say more about the caller than about eff: an
// interruption of the caller that was running eff, and the synchronous
// executor refusing an asynchronous step. The next run then tries again.
// A caller waiting on another caller's execution can still be interrupted
// on its own.
func Cached[A, E any](eff Effect[A, E]) Effect[A, E] {
	var (
		group singleflight.Group
		mu    sync.Mutex
		saved instr
	)
	load := func() instr {
		mu.Lock()
		defer mu.Unlock()
		return saved
	}

	return Effect[A, E]{fiberInstr{f: func(r *runner) instr {
		for {
			if out := load(); out != nil {
				return out
			}

			// The shared execution runs on its own goroutine, so it gets
			// its own runner.
			ctx := r.ctx
			leader := r.child(ctx)
			results := group.DoChan("", func() (any, error) {
				if out := load(); out != nil {
					return cachedRun{out: out}, nil
				}
				value, cause := leader.eval(eff.instr)
				run := cachedRun{out: resultInstr(value, cause)}
				switch {
				case cause != nil && cause.kind == CauseInterrupt && ctx.Err() != nil:
					run.interrupted = true
				case isAsyncSuspension(cause):
					run.suspended = true
				default:
					mu.Lock()
					saved = run.out
					mu.Unlock()
				}
				return run, nil
			})

			select {
			case res := <-results:
				run := res.Val.(cachedRun)
				switch {
				case run.interrupted:
					// The leader was interrupted by its own caller.
					if r.ctx.Err() != nil {
						return failInstr{cause: interrupted}
					}
				case run.suspended:
					if r.sync {
						return run.out
					}
				default:
					return run.out
				}
			case <-r.ctx.Done():
				return failInstr{cause: interrupted}
			}
		}
	}}}
}

// cachedRun is the outcome of one shared execution of a cached effect.
type cachedRun struct {
	out         instr
	interrupted bool
	suspended   bool
}

// isAsyncSuspension reports whether cause is the synchronous executor
// refusing an asynchronous step.
func isAsyncSuspension(cause *rawCause) bool {
	if cause == nil || cause.kind != CauseDie {
		return false
	}
	err, ok := cause.defect.(error)
	return ok && errors.Is(err, ErrAsyncSuspension)
}
