// SPDX-License-Identifier: Apache-2.0

package effect

import "errors"

var errYielderDone = errors.New("effect: Bind called after its Gen block returned")

// A Yielder binds effects inside a [Gen] block. It belongs to the
// goroutine running the block and must not escape it.
type Yielder[E any] struct {
	r    *runner
	done bool
}

// genAbort unwinds a Gen block when a bound effect fails.
type genAbort struct {
	owner any
	cause *rawCause
}

// Gen runs body as one sequential step of a larger effect.
//
// Inside body, [Bind] runs an effect and returns its value, reading like
// ordinary straight-line Go. When a bound effect fails, the block is
// abandoned and the Gen effect fails with the same cause, whether it is an
// expected failure, a defect or an interruption. The effect body returns
// becomes the result of the block.
//
// Example:
//
//	total := effect.Gen(func(y *effect.Yielder[string]) effect.Effect[int, string] {
//	    a := effect.Bind(y, fetchA)
//	    b := effect.Bind(y, fetchB)
//	    return effect.Succeed[string](a + b)
//	})
func Gen[A, E any](body func(y *Yielder[E]) Effect[A, E]) Effect[A, E] {
	return Effect[A, E]{fiberInstr{f: func(r *runner) (next instr) {
		y := &Yielder[E]{r: r}
		saved := r.ctx
		defer func() {
			y.done = true
			if p := recover(); p != nil {
				r.ctx = saved
				if abort, ok := p.(genAbort); ok && abort.owner == any(y) {
					next = failInstr{cause: abort.cause}
					return
				}
				panic(p)
			}
		}()
		return body(y).instr
	}}}
}

// Bind runs eff inside the [Gen] block that owns y and returns its value.
// If eff fails, the block is abandoned and the Gen effect fails with the
// same cause.
//
// Every Bind checks for interruption before running eff.
func Bind[A, E any](y *Yielder[E], eff Effect[A, E]) A {
	if y.done {
		panic(errYielderDone)
	}
	r := y.r
	if r.ctx.Err() != nil {
		panic(genAbort{owner: y, cause: interrupted})
	}
	value, cause := r.eval(eff.instr)
	if cause != nil {
		panic(genAbort{owner: y, cause: cause})
	}
	return as[A](value)
}
