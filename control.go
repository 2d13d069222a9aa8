// SPDX-License-Identifier: Apache-2.0

package effect

// If runs onTrue or onFalse depending on the outcome of cond. A failure of
// cond fails the whole effect.
func If[A, E any](cond Effect[bool, E], onTrue, onFalse Effect[A, E]) Effect[A, E] {
	return FlatMap(cond, func(ok bool) Effect[A, E] {
		if ok {
			return onTrue
		}
		return onFalse
	})
}

// When runs eff only if cond returns true, wrapping its value in an
// [Option]. cond is evaluated each time the effect runs.
func When[A, E any](eff Effect[A, E], cond func() bool) Effect[Option[A], E] {
	return Suspend(func() Effect[Option[A], E] {
		if !cond() {
			return Succeed[E](None[A]())
		}
		return Map(eff, Some[A])
	})
}

// WhenEffect is [When] with an effectful condition.
func WhenEffect[A, E any](eff Effect[A, E], cond Effect[bool, E]) Effect[Option[A], E] {
	return If(cond, Map(eff, Some[A]), Succeed[E](None[A]()))
}

// Unless runs eff only if cond returns false.
func Unless[A, E any](eff Effect[A, E], cond func() bool) Effect[Option[A], E] {
	return When(eff, func() bool { return !cond() })
}

// Not negates an effectful condition.
func Not[E any](cond Effect[bool, E]) Effect[bool, E] {
	return Map(cond, func(ok bool) bool { return !ok })
}

// And is true when every condition is. Evaluation stops at the first
// false or failure.
func And[E any](conds ...Effect[bool, E]) Effect[bool, E] {
	result := Succeed[E](true)
	for i := len(conds) - 1; i >= 0; i-- {
		result = If(conds[i], result, Succeed[E](false))
	}
	return result
}

// Or is true when any condition is. Evaluation stops at the first true or
// failure.
func Or[E any](conds ...Effect[bool, E]) Effect[bool, E] {
	result := Succeed[E](false)
	for i := len(conds) - 1; i >= 0; i-- {
		result = If(conds[i], Succeed[E](true), result)
	}
	return result
}

// While runs body for as long as cond holds. cond is evaluated before each
// iteration, and a failure of either stops the loop.
//
// Example:
//
//	poll := effect.While(notReady, effect.Delay(checkStatus, time.Second))
func While[X, E any](cond Effect[bool, E], body Effect[X, E]) Effect[struct{}, E] {
	var loop func() Effect[struct{}, E]
	loop = func() Effect[struct{}, E] {
		return If(cond, AndThen(body, Suspend(loop)), Void[E]())
	}
	return Suspend(loop)
}

// FilterOrFail keeps the value of eff if it satisfies pred and otherwise
// fails with orFail(value).
func FilterOrFail[A, E any](eff Effect[A, E], pred func(A) bool, orFail func(A) E) Effect[A, E] {
	return FlatMap(eff, func(a A) Effect[A, E] {
		if pred(a) {
			return Succeed[E](a)
		}
		return Fail[A](orFail(a))
	})
}

// Loop threads a state through body from initial while cond holds,
// advancing it with step, and collects the values of body.
//
// Example, the squares of 1 to 5:
//
//	squares := effect.Loop(1,
//	    func(i int) bool { return i <= 5 },
//	    func(i int) int { return i + 1 },
//	    func(i int) effect.Effect[int, effect.Never] { return effect.Succeed[effect.Never](i * i) },
//	)
func Loop[S, A, E any](initial S, cond func(S) bool, step func(S) S, body func(S) Effect[A, E]) Effect[[]A, E] {
	return Suspend(func() Effect[[]A, E] {
		var out []A
		var loop func(s S) Effect[[]A, E]
		loop = func(s S) Effect[[]A, E] {
			if !cond(s) {
				return Succeed[E](out)
			}
			return FlatMap(body(s), func(a A) Effect[[]A, E] {
				out = append(out, a)
				return loop(step(s))
			})
		}
		return loop(initial)
	})
}

// LoopDiscard is [Loop] without collecting the values of body.
func LoopDiscard[S, A, E any](initial S, cond func(S) bool, step func(S) S, body func(S) Effect[A, E]) Effect[struct{}, E] {
	var loop func(s S) Effect[struct{}, E]
	loop = func(s S) Effect[struct{}, E] {
		if !cond(s) {
			return Void[E]()
		}
		return AndThen(body(s), Suspend(func() Effect[struct{}, E] {
			return loop(step(s))
		}))
	}
	return Suspend(func() Effect[struct{}, E] {
		return loop(initial)
	})
}

// Iterate feeds the value of body back into itself, starting from
// initial, while cond holds, and returns the final value.
func Iterate[A, E any](initial A, cond func(A) bool, body func(A) Effect[A, E]) Effect[A, E] {
	var loop func(a A) Effect[A, E]
	loop = func(a A) Effect[A, E] {
		if !cond(a) {
			return Succeed[E](a)
		}
		return FlatMap(body(a), loop)
	}
	return Suspend(func() Effect[A, E] {
		return loop(initial)
	})
}
