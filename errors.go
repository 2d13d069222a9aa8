// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"errors"
	"fmt"
	"time"
)

// Never is the error type of effects that cannot fail with an expected
// error. Such effects may still die or be interrupted.
type Never struct{}

// Tagged is implemented by error values that carry a discriminant, the way
// a tagged union would. [CatchTag] dispatches on it.
//
// Example:
//
//	type NetworkError struct{ Message string }
//
//	func (NetworkError) Tag() string { return "NetworkError" }
type Tagged interface {
	Tag() string
}

// TagOf returns the tag of v, or "" when v is not tagged. Errors wrapping a
// tagged error report the wrapped tag.
func TagOf(v any) string {
	if t, ok := v.(Tagged); ok {
		return t.Tag()
	}
	if err, ok := v.(error); ok {
		var t Tagged
		if errors.As(err, &t) {
			return t.Tag()
		}
	}
	return ""
}

// TimeoutTag is the tag of [*TimeoutError].
const TimeoutTag = "TimeoutException"

// ErrTimeout matches every [*TimeoutError] under errors.Is.
var ErrTimeout = errors.New("effect timed out")

// TimeoutError is the failure recorded when [Timeout] gives up on an effect.
type TimeoutError struct {
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation timed out after %s", e.Duration)
}

// Tag implements [Tagged].
func (e *TimeoutError) Tag() string { return TimeoutTag }

// Is reports whether target is [ErrTimeout].
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// MissingServiceError is the defect recorded when [Service] finds no
// implementation for its tag.
type MissingServiceError struct {
	Name string
}

func (e *MissingServiceError) Error() string {
	return fmt.Sprintf("service not found: %s", e.Name)
}

// CatchAll recovers from every expected failure of eff with handler.
// The handler may change the error type. Defects and interruptions pass
// through untouched.
//
// Example:
//
//	safe := effect.CatchAll(fetch, func(err string) effect.Effect[string, effect.Never] {
//	    return effect.Succeed[effect.Never]("fallback")
//	})
func CatchAll[A, E, E2 any](eff Effect[A, E], handler func(E) Effect[A, E2]) Effect[A, E2] {
	return Effect[A, E2]{foldInstr{
		first: eff.instr,
		onFailure: func(c *rawCause) instr {
			if c.kind != CauseFail {
				return failInstr{cause: c}
			}
			return handler(as[E](c.err)).instr
		},
	}}
}

// CatchAllCause recovers from failures of every kind.
func CatchAllCause[A, E, E2 any](eff Effect[A, E], handler func(Cause[E]) Effect[A, E2]) Effect[A, E2] {
	return Effect[A, E2]{foldInstr{
		first: eff.instr,
		onFailure: func(c *rawCause) instr {
			return handler(causeOf[E](c)).instr
		},
	}}
}

// CatchAllDefect recovers from defects only.
func CatchAllDefect[A, E any](eff Effect[A, E], handler func(defect any) Effect[A, E]) Effect[A, E] {
	return Effect[A, E]{foldInstr{
		first: eff.instr,
		onFailure: func(c *rawCause) instr {
			if c.kind != CauseDie {
				return failInstr{cause: c}
			}
			return handler(c.defect).instr
		},
	}}
}

// CatchIf recovers from the expected failures that satisfy pred. Other
// failures propagate unchanged.
func CatchIf[A, E any](eff Effect[A, E], pred func(E) bool, handler func(E) Effect[A, E]) Effect[A, E] {
	return Effect[A, E]{foldInstr{
		first: eff.instr,
		onFailure: func(c *rawCause) instr {
			if c.kind != CauseFail {
				return failInstr{cause: c}
			}
			err := as[E](c.err)
			if !pred(err) {
				return failInstr{cause: c}
			}
			return handler(err).instr
		},
	}}
}

// CatchTag recovers from the expected failures whose [TagOf] is tag.
//
// Example:
//
//	handled := effect.CatchTag(op, "NetworkError", func(err AppError) effect.Effect[string, AppError] {
//	    return effect.Succeed[AppError]("Recovered from network error")
//	})
func CatchTag[A, E any](eff Effect[A, E], tag string, handler func(E) Effect[A, E]) Effect[A, E] {
	return CatchIf(eff, func(err E) bool { return TagOf(err) == tag }, handler)
}

// CatchSome recovers from the expected failures for which handler returns
// a present Option. An empty Option propagates the original failure.
func CatchSome[A, E any](eff Effect[A, E], handler func(E) Option[Effect[A, E]]) Effect[A, E] {
	return Effect[A, E]{foldInstr{
		first: eff.instr,
		onFailure: func(c *rawCause) instr {
			if c.kind != CauseFail {
				return failInstr{cause: c}
			}
			recovery, ok := handler(as[E](c.err)).Get()
			if !ok {
				return failInstr{cause: c}
			}
			return recovery.instr
		},
	}}
}

// OrElse switches to fallback when eff fails with an expected error.
func OrElse[A, E, E2 any](eff Effect[A, E], fallback func() Effect[A, E2]) Effect[A, E2] {
	return CatchAll(eff, func(E) Effect[A, E2] {
		return fallback()
	})
}

// OrElseSucceed replaces every expected failure of eff with value.
func OrElseSucceed[A, E any](eff Effect[A, E], value A) Effect[A, Never] {
	return CatchAll(eff, func(E) Effect[A, Never] {
		return Succeed[Never](value)
	})
}

// OrElseFail replaces every expected failure of eff with err.
func OrElseFail[A, E, E2 any](eff Effect[A, E], err func() E2) Effect[A, E2] {
	return CatchAll(eff, func(E) Effect[A, E2] {
		return Fail[A](err())
	})
}

// Match folds both outcomes of eff into a success value.
//
// Only expected failures reach onFailure. Defects and interruptions still
// fail the resulting effect; use [MatchCause] to observe them.
func Match[A, E, B any](eff Effect[A, E], onFailure func(E) B, onSuccess func(A) B) Effect[B, Never] {
	return MatchEffect(eff,
		func(err E) Effect[B, Never] { return Succeed[Never](onFailure(err)) },
		func(a A) Effect[B, Never] { return Succeed[Never](onSuccess(a)) },
	)
}

// MatchCause folds every outcome of eff, including defects and
// interruptions, into a success value.
func MatchCause[A, E, B any](eff Effect[A, E], onFailure func(Cause[E]) B, onSuccess func(A) B) Effect[B, Never] {
	return Effect[B, Never]{foldInstr{
		first: eff.instr,
		onSuccess: func(v any) instr {
			return succeedInstr{value: onSuccess(as[A](v))}
		},
		onFailure: func(c *rawCause) instr {
			return succeedInstr{value: onFailure(causeOf[E](c))}
		},
	}}
}

// MatchEffect continues with onFailure or onSuccess depending on the
// outcome of eff. Like [Match], it only intercepts expected failures.
func MatchEffect[A, E, B, E2 any](
	eff Effect[A, E],
	onFailure func(E) Effect[B, E2],
	onSuccess func(A) Effect[B, E2],
) Effect[B, E2] {
	return Effect[B, E2]{foldInstr{
		first: eff.instr,
		onSuccess: func(v any) instr {
			return onSuccess(as[A](v)).instr
		},
		onFailure: func(c *rawCause) instr {
			if c.kind != CauseFail {
				return failInstr{cause: c}
			}
			return onFailure(as[E](c.err)).instr
		},
	}}
}

// MapError transforms the expected error of eff with f.
func MapError[A, E, E2 any](eff Effect[A, E], f func(E) E2) Effect[A, E2] {
	return CatchAll(eff, func(err E) Effect[A, E2] {
		return Fail[A](f(err))
	})
}

// TapError runs f on an expected failure and then fails with the original
// error. A failure of f replaces it.
func TapError[A, E, X any](eff Effect[A, E], f func(E) Effect[X, E]) Effect[A, E] {
	return CatchAll(eff, func(err E) Effect[A, E] {
		return AndThen(f(err), Fail[A](err))
	})
}

// Ignore discards both the value and any expected failure of eff.
func Ignore[A, E any](eff Effect[A, E]) Effect[struct{}, Never] {
	return Match(eff,
		func(E) struct{} { return struct{}{} },
		func(A) struct{} { return struct{}{} },
	)
}

// OrDie turns an expected failure of eff into a defect.
func OrDie[A, E any](eff Effect[A, E]) Effect[A, Never] {
	return CatchAll(eff, func(err E) Effect[A, Never] {
		return Die[A, Never](err)
	})
}

// ToExit captures the outcome of eff, whatever its kind, as a value.
func ToExit[A, E any](eff Effect[A, E]) Effect[Exit[A, E], Never] {
	return MatchCause(eff,
		Failed[A, E],
		Succeeded[E, A],
	)
}

// Widen gives a total effect any error type.
func Widen[E, A any](eff Effect[A, Never]) Effect[A, E] {
	return Effect[A, E]{eff.instr}
}
