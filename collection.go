// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"cmp"
	"errors"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Unbounded is the [Options.Concurrency] that starts every effect at once.
const Unbounded = -1

// Options specifies how a collection of effects is run.
type Options struct {
	// Concurrency controls how many effects may run at the same time.
	//
	// Zero and one run the effects sequentially, left to right, without
	// leaving the current fiber, so they work under [RunSync]. A larger
	// number bounds a pool of goroutines. [Unbounded] (or any negative
	// number) imposes no limit.
	Concurrency int
}

func (o Options) sequential() bool {
	return o.Concurrency == 0 || o.Concurrency == 1
}

// Pair holds two values of possibly different types.
type Pair[A, B any] struct {
	First  A
	Second B
}

// All runs effs sequentially and collects their values in order. The first
// failure stops the run.
//
// All is the same as [AllWith] with the default [Options].
func All[A, E any](effs ...Effect[A, E]) Effect[[]A, E] {
	return AllWith(Options{}, effs...)
}

// AllWith runs effs as configured by opts and collects their values in
// input order, whatever the completion order.
//
// When running concurrently, the first failure to complete wins: the other
// effects are interrupted and the combined effect fails with that cause.
//
// Example:
//
//	doubled := effect.AllWith(effect.Options{Concurrency: 2},
//	    effect.Succeed[string](2),
//	    effect.Succeed[string](4),
//	    effect.Succeed[string](6),
//	)
func AllWith[A, E any](opts Options, effs ...Effect[A, E]) Effect[[]A, E] {
	if opts.sequential() {
		return allSequential(effs)
	}
	limit := opts.Concurrency
	if limit < 0 {
		limit = 0
	}
	instrs := make([]instr, len(effs))
	for i, eff := range effs {
		instrs[i] = eff.instr
	}
	return Map(Effect[[]any, E]{parallel(instrs, limit)}, func(values []any) []A {
		out := make([]A, len(values))
		for i, v := range values {
			out[i] = as[A](v)
		}
		return out
	})
}

func allSequential[A, E any](effs []Effect[A, E]) Effect[[]A, E] {
	return Suspend(func() Effect[[]A, E] {
		out := make([]A, 0, len(effs))
		var step func(i int) Effect[[]A, E]
		step = func(i int) Effect[[]A, E] {
			if i == len(effs) {
				return Succeed[E](out)
			}
			return FlatMap(effs[i], func(a A) Effect[[]A, E] {
				out = append(out, a)
				return step(i + 1)
			})
		}
		return step(0)
	})
}

// AllSettled runs effs as configured by opts and captures every outcome,
// failures included. No effect is interrupted because a sibling failed.
func AllSettled[A, E any](opts Options, effs ...Effect[A, E]) Effect[[]Exit[A, E], Never] {
	exits := make([]Effect[Exit[A, E], Never], len(effs))
	for i, eff := range effs {
		exits[i] = ToExit(eff)
	}
	return AllWith(opts, exits...)
}

// AllMap runs the effects of m sequentially, in sorted key order, and
// collects their values under the same keys.
func AllMap[K cmp.Ordered, A, E any](m map[K]Effect[A, E]) Effect[map[K]A, E] {
	return AllMapWith(Options{}, m)
}

// AllMapWith is [AllMap] with the given [Options].
func AllMapWith[K cmp.Ordered, A, E any](opts Options, m map[K]Effect[A, E]) Effect[map[K]A, E] {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	effs := make([]Effect[A, E], len(keys))
	for i, k := range keys {
		effs[i] = m[k]
	}
	return Map(AllWith(opts, effs...), func(values []A) map[K]A {
		out := make(map[K]A, len(keys))
		for i, k := range keys {
			out[k] = values[i]
		}
		return out
	})
}

// ForEach applies f to each item and runs the resulting effects
// sequentially. f is called when the effect runs, not when it is built.
func ForEach[T, A, E any](items []T, f func(T) Effect[A, E]) Effect[[]A, E] {
	return ForEachWith(Options{}, items, f)
}

// ForEachWith is [ForEach] with the given [Options].
func ForEachWith[T, A, E any](opts Options, items []T, f func(T) Effect[A, E]) Effect[[]A, E] {
	return Suspend(func() Effect[[]A, E] {
		effs := make([]Effect[A, E], len(items))
		for i, item := range items {
			effs[i] = f(item)
		}
		return AllWith(opts, effs...)
	})
}

// Zip runs a then b and pairs their values.
func Zip[A, B, E any](a Effect[A, E], b Effect[B, E]) Effect[Pair[A, B], E] {
	return ZipWith(a, b, func(x A, y B) Pair[A, B] {
		return Pair[A, B]{First: x, Second: y}
	})
}

// ZipWith runs a then b and combines their values with f.
func ZipWith[A, B, C, E any](a Effect[A, E], b Effect[B, E], f func(A, B) C) Effect[C, E] {
	return FlatMap(a, func(x A) Effect[C, E] {
		return Map(b, func(y B) C {
			return f(x, y)
		})
	})
}

// ZipPar runs a and b concurrently and pairs their values. If either
// fails, the other is interrupted.
func ZipPar[A, B, E any](a Effect[A, E], b Effect[B, E]) Effect[Pair[A, B], E] {
	return Map(Effect[[]any, E]{parallel([]instr{a.instr, b.instr}, 0)}, func(values []any) Pair[A, B] {
		return Pair[A, B]{First: as[A](values[0]), Second: as[B](values[1])}
	})
}

// causeError carries a failure cause through an errgroup.
type causeError struct {
	cause *rawCause
}

func (e *causeError) Error() string { return e.cause.kind.String() }

// parallel runs instrs on child fibers, at most limit at a time (no limit
// when limit is zero), and succeeds with their values in input order. The
// first failure cancels the remaining fibers.
func parallel(instrs []instr, limit int) instr {
	return asyncInstr{run: func(r *runner) instr {
		values := make([]any, len(instrs))
		group, groupCtx := errgroup.WithContext(r.ctx)
		if limit > 0 {
			group.SetLimit(limit)
		}

		for i, in := range instrs {
			group.Go(func() error {
				if groupCtx.Err() != nil {
					return nil
				}
				value, cause := r.child(groupCtx).eval(in)
				if cause != nil {
					return &causeError{cause: cause}
				}
				values[i] = value
				return nil
			})
		}

		if err := group.Wait(); err != nil {
			var ce *causeError
			if errors.As(err, &ce) {
				return failInstr{cause: ce.cause}
			}
			return failInstr{cause: dieRaw(err)}
		}
		if r.ctx.Err() != nil {
			return failInstr{cause: interrupted}
		}
		return succeedInstr{value: values}
	}}
}
