// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrFiberNotDone is returned by [Fiber.Await] when its context ends
// before the fiber does.
var ErrFiberNotDone = errors.New("fiber has not completed")

// FiberStatus is the lifecycle stage of a [Fiber].
type FiberStatus int32

const (
	FiberNotStarted FiberStatus = iota
	FiberRunning
	FiberSucceeded
	FiberFailed
	FiberInterrupted
)

func (s FiberStatus) String() string {
	switch s {
	case FiberNotStarted:
		return "not started"
	case FiberRunning:
		return "running"
	case FiberSucceeded:
		return "succeeded"
	case FiberFailed:
		return "failed"
	case FiberInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// A Fiber is a handle to an effect running in the background.
type Fiber[A, E any] struct {
	id     uuid.UUID
	status atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
	exit   Exit[A, E]
}

func startFiber[A, E any](parent context.Context, in instr) *Fiber[A, E] {
	ctx, cancel := context.WithCancel(parent)
	f := &Fiber[A, E]{
		id:     uuid.New(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r := &runner{ctx: ctx, id: f.id}
	logger := Logger(ctx).With(zap.Stringer("fiber", f.id))

	f.status.Store(int32(FiberRunning))
	logger.Debug("fiber started")
	go func() {
		defer cancel()
		start := time.Now()
		value, cause := r.eval(in)
		f.exit = exitOf[A, E](value, cause)
		f.status.Store(int32(statusOf(cause)))

		fields := []zap.Field{zap.Duration("duration", time.Since(start)), zap.String("outcome", outcomeOf(cause))}
		if cause != nil && cause.kind == CauseDie {
			logger.Error("fiber died", append(fields, zap.Any("defect", cause.defect))...)
		} else {
			logger.Debug("fiber finished", fields...)
		}
		close(f.done)
	}()
	return f
}

func statusOf(cause *rawCause) FiberStatus {
	switch {
	case cause == nil:
		return FiberSucceeded
	case cause.kind == CauseInterrupt:
		return FiberInterrupted
	default:
		return FiberFailed
	}
}

// ID returns the unique id of the fiber.
func (f *Fiber[A, E]) ID() uuid.UUID { return f.id }

// Status reports the current lifecycle stage of the fiber.
func (f *Fiber[A, E]) Status() FiberStatus {
	return FiberStatus(f.status.Load())
}

// Done returns a channel closed when the fiber completes.
func (f *Fiber[A, E]) Done() <-chan struct{} { return f.done }

// Interrupt requests interruption. The fiber stops at its next suspension
// point; use [Fiber.Await] to wait for it.
func (f *Fiber[A, E]) Interrupt() { f.cancel() }

// Await blocks until the fiber completes or ctx ends. In the latter case
// it returns an error wrapping both [ErrFiberNotDone] and the context
// error, and the fiber keeps running.
func (f *Fiber[A, E]) Await(ctx context.Context) (Exit[A, E], error) {
	select {
	case <-f.done:
		return f.exit, nil
	case <-ctx.Done():
		return Exit[A, E]{}, errors.Join(ErrFiberNotDone, ctx.Err())
	}
}

// Poll returns the outcome if the fiber has completed.
func (f *Fiber[A, E]) Poll() (Exit[A, E], bool) {
	select {
	case <-f.done:
		return f.exit, true
	default:
		return Exit[A, E]{}, false
	}
}

// Fork starts eff on a child fiber and succeeds at once with its handle.
// The child is interrupted when the forking fiber's context ends.
func Fork[E2, A, E any](eff Effect[A, E]) Effect[*Fiber[A, E], E2] {
	return Effect[*Fiber[A, E], E2]{fiberInstr{f: func(r *runner) instr {
		if r.sync {
			return failInstr{cause: dieRaw(ErrAsyncSuspension)}
		}
		return succeedInstr{value: startFiber[A, E](r.ctx, eff.instr)}
	}}}
}

// Join waits for fiber and adopts its outcome. Interrupting the joining
// fiber does not interrupt the joined one.
func Join[A, E any](fiber *Fiber[A, E]) Effect[A, E] {
	return Effect[A, E]{asyncInstr{run: func(r *runner) instr {
		select {
		case <-fiber.done:
			value, _ := fiber.exit.Value()
			if cause, failed := fiber.exit.Cause(); failed {
				return failInstr{cause: rawOf(cause)}
			}
			return succeedInstr{value: value}
		case <-r.ctx.Done():
			return failInstr{cause: interrupted}
		}
	}}}
}

// InterruptFiber interrupts fiber and waits for it to stop.
func InterruptFiber[E, A, E1 any](fiber *Fiber[A, E1]) Effect[Exit[A, E1], E] {
	return Effect[Exit[A, E1], E]{asyncInstr{run: func(r *runner) instr {
		fiber.Interrupt()
		select {
		case <-fiber.done:
			return succeedInstr{value: fiber.exit}
		case <-r.ctx.Done():
			return failInstr{cause: interrupted}
		}
	}}}
}
