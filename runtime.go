// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var errNilEffect = errors.New("effect: zero Effect value")

// runner interprets instruction trees on behalf of one fiber.
//
// A runner is confined to a single goroutine. Concurrent combinators give
// each branch its own child runner.
type runner struct {
	ctx  context.Context
	sync bool
	id   uuid.UUID
}

func newRunner(ctx context.Context, sync bool) *runner {
	if ctx == nil {
		ctx = context.Background()
	}
	return &runner{ctx: ctx, sync: sync}
}

// child returns a runner for a concurrent branch of r.
func (r *runner) child(ctx context.Context) *runner {
	return &runner{ctx: ctx, sync: r.sync}
}

// fiberID returns the fiber id, allocating one on first use.
func (r *runner) fiberID() uuid.UUID {
	if r.id == uuid.Nil {
		r.id = uuid.New()
	}
	return r.id
}

// frame is one entry of the continuation stack.
type frame struct {
	onSuccess func(any) instr
	onFailure func(*rawCause) instr
	// restore, when set, marks the end of a localInstr body.
	restore context.Context
}

// eval runs in to completion and returns its outcome. The loop keeps an
// explicit continuation stack, so arbitrarily long flatMap chains and
// recursive effects built with Suspend do not grow the Go stack.
func (r *runner) eval(in instr) (value any, cause *rawCause) {
	var stack []frame
	current := in
	for {
		value, cause = nil, nil

		switch op := current.(type) {
		case nil:
			cause = dieRaw(errNilEffect)
		case succeedInstr:
			value = op.value
		case failInstr:
			cause = op.cause
		case syncInstr:
			value, cause = r.runThunk(op.thunk)
		case suspendInstr:
			current = r.guard(op.thunk)
			continue
		case fiberInstr:
			current = r.guard(func() instr { return op.f(r) })
			continue
		case flatMapInstr:
			stack = append(stack, frame{onSuccess: op.k})
			current = op.first
			continue
		case foldInstr:
			stack = append(stack, frame{onSuccess: op.onSuccess, onFailure: op.onFailure})
			current = op.first
			continue
		case localInstr:
			stack = append(stack, frame{restore: r.ctx})
			r.ctx = op.modify(r.ctx)
			current = op.body
			continue
		case asyncInstr:
			switch {
			case r.sync:
				cause = dieRaw(ErrAsyncSuspension)
			case r.ctx.Err() != nil:
				cause = interrupted
			default:
				current = r.guard(func() instr { return op.run(r) })
				continue
			}
		default:
			cause = dieRaw(fmt.Errorf("effect: unknown instruction %T", current))
		}

		// Unwind until a frame accepts the outcome.
		var next instr
		for next == nil && len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			switch {
			case top.restore != nil:
				r.ctx = top.restore
			case cause == nil && top.onSuccess != nil:
				v := value
				next = r.guard(func() instr { return top.onSuccess(v) })
			case cause != nil && top.onFailure != nil:
				c := cause
				next = r.guard(func() instr { return top.onFailure(c) })
			}
		}
		if next == nil {
			return value, cause
		}
		current = next
	}
}

// guard calls f, turning a panic into a defect.
func (r *runner) guard(f func() instr) (next instr) {
	defer func() {
		if p := recover(); p != nil {
			next = failInstr{cause: recovered(p)}
		}
	}()
	next = f()
	if next == nil {
		next = failInstr{cause: dieRaw(errNilEffect)}
	}
	return next
}

func (r *runner) runThunk(thunk func() (any, *rawCause)) (value any, cause *rawCause) {
	defer func() {
		if p := recover(); p != nil {
			value, cause = nil, recovered(p)
		}
	}()
	return thunk()
}

// recovered converts a recovered panic value into a defect. A genAbort
// belongs to an enclosing Gen block and keeps unwinding towards it.
func recovered(p any) *rawCause {
	if abort, ok := p.(genAbort); ok {
		panic(abort)
	}
	return panicRaw(p)
}
