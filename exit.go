// SPDX-License-Identifier: Apache-2.0

package effect

import "fmt"

// Exit is the terminal outcome of running an effect: either a success
// value or a failure [Cause].
//
// An Exit is an immutable snapshot. It outlives the effect that produced it.
type Exit[A, E any] struct {
	value  A
	cause  Cause[E]
	failed bool
}

// Succeeded builds a successful exit.
func Succeeded[E, A any](value A) Exit[A, E] {
	return Exit[A, E]{value: value}
}

// Failed builds a failed exit.
func Failed[A, E any](cause Cause[E]) Exit[A, E] {
	return Exit[A, E]{cause: cause, failed: true}
}

// IsSuccess reports whether the effect succeeded.
func (e Exit[A, E]) IsSuccess() bool { return !e.failed }

// IsFailure reports whether the effect failed for any reason.
func (e Exit[A, E]) IsFailure() bool { return e.failed }

// Value returns the success value, if any.
func (e Exit[A, E]) Value() (A, bool) {
	return e.value, !e.failed
}

// Cause returns the failure cause, if any.
func (e Exit[A, E]) Cause() (Cause[E], bool) {
	return e.cause, e.failed
}

// Get returns the success value, or the cause converted by [Cause.Err].
func (e Exit[A, E]) Get() (A, error) {
	if e.failed {
		var zero A
		return zero, e.cause.Err()
	}
	return e.value, nil
}

func (e Exit[A, E]) String() string {
	if e.failed {
		return fmt.Sprintf("Failure(%v)", e.cause)
	}
	return fmt.Sprintf("Success(%v)", e.value)
}

func exitOf[A, E any](value any, cause *rawCause) Exit[A, E] {
	if cause != nil {
		return Failed[A](causeOf[E](cause))
	}
	return Succeeded[E](as[A](value))
}
