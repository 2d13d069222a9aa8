// SPDX-License-Identifier: Apache-2.0

package effect

import "time"

// Map transforms the success value of eff with f.
//
// Map is inert on failures of every kind. A panic in f is a defect.
//
// Example:
//
//	doubled := effect.Map(effect.Succeed[string](21), func(n int) int { return n * 2 })
func Map[A, B, E any](eff Effect[A, E], f func(A) B) Effect[B, E] {
	return Effect[B, E]{flatMapInstr{
		first: eff.instr,
		k: func(v any) instr {
			return succeedInstr{value: f(as[A](v))}
		},
	}}
}

// FlatMap sequences eff with the effect f builds from its value.
//
// Example:
//
//	user := effect.FlatMap(fetchID, func(id int) effect.Effect[User, string] {
//	    return fetchUser(id)
//	})
func FlatMap[A, B, E any](eff Effect[A, E], f func(A) Effect[B, E]) Effect[B, E] {
	return Effect[B, E]{flatMapInstr{
		first: eff.instr,
		k: func(v any) instr {
			return f(as[A](v)).instr
		},
	}}
}

// AndThen runs eff, discards its value, then runs next.
func AndThen[A, B, E any](eff Effect[A, E], next Effect[B, E]) Effect[B, E] {
	return Effect[B, E]{flatMapInstr{
		first: eff.instr,
		k: func(any) instr {
			return next.instr
		},
	}}
}

// Tap runs f for its effects and keeps the original value. A failure of
// the effect returned by f fails the whole effect.
func Tap[A, X, E any](eff Effect[A, E], f func(A) Effect[X, E]) Effect[A, E] {
	return FlatMap(eff, func(a A) Effect[A, E] {
		return As(f(a), a)
	})
}

// As replaces the success value of eff with value.
func As[A, B, E any](eff Effect[A, E], value B) Effect[B, E] {
	return Effect[B, E]{flatMapInstr{
		first: eff.instr,
		k: func(any) instr {
			return succeedInstr{value: value}
		},
	}}
}

// AsVoid discards the success value of eff.
func AsVoid[A, E any](eff Effect[A, E]) Effect[struct{}, E] {
	return As(eff, struct{}{})
}

// Flatten collapses an effect producing an effect.
func Flatten[A, E any](eff Effect[Effect[A, E], E]) Effect[A, E] {
	return FlatMap(eff, func(inner Effect[A, E]) Effect[A, E] {
		return inner
	})
}

// Delay sleeps for d before running eff.
func Delay[A, E any](eff Effect[A, E], d time.Duration) Effect[A, E] {
	return AndThen(Sleep[E](d), eff)
}
