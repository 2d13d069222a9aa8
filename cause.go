// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"errors"
	"fmt"
)

// ErrInterrupted is the Go error reported for an interrupted effect.
var ErrInterrupted = errors.New("effect interrupted")

// ErrAsyncSuspension is the defect produced when the synchronous executor
// reaches a step that would need to suspend.
var ErrAsyncSuspension = errors.New("effect cannot be run synchronously: asynchronous step encountered")

// A CauseKind classifies why an effect did not succeed.
type CauseKind uint8

const (
	// CauseFail is an expected failure declared in the error channel.
	CauseFail CauseKind = iota + 1
	// CauseDie is a defect: an unexpected fault outside the error channel.
	CauseDie
	// CauseInterrupt is a cooperative cancellation.
	CauseInterrupt
)

func (k CauseKind) String() string {
	switch k {
	case CauseFail:
		return "fail"
	case CauseDie:
		return "die"
	case CauseInterrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}

// Cause is the structured reason an effect failed.
//
// Only [CauseFail] carries a value of the declared error type E. Recovery
// combinators such as [CatchAll] intercept CauseFail only; defects and
// interruptions pass through them untouched.
type Cause[E any] struct {
	kind   CauseKind
	err    E
	defect any
}

// FailCause builds a cause for an expected failure.
func FailCause[E any](err E) Cause[E] {
	return Cause[E]{kind: CauseFail, err: err}
}

// DieCause builds a cause for a defect.
func DieCause[E any](defect any) Cause[E] {
	return Cause[E]{kind: CauseDie, defect: defect}
}

// InterruptCause builds a cause for an interruption.
func InterruptCause[E any]() Cause[E] {
	return Cause[E]{kind: CauseInterrupt}
}

// Kind reports which of the three failure kinds c is.
func (c Cause[E]) Kind() CauseKind { return c.kind }

// IsFail reports whether c is an expected failure.
func (c Cause[E]) IsFail() bool { return c.kind == CauseFail }

// IsDie reports whether c is a defect.
func (c Cause[E]) IsDie() bool { return c.kind == CauseDie }

// IsInterrupt reports whether c is an interruption.
func (c Cause[E]) IsInterrupt() bool { return c.kind == CauseInterrupt }

// Failure returns the typed error of a [CauseFail] cause.
func (c Cause[E]) Failure() (E, bool) {
	return c.err, c.kind == CauseFail
}

// Defect returns the defect value of a [CauseDie] cause.
func (c Cause[E]) Defect() (any, bool) {
	return c.defect, c.kind == CauseDie
}

// Err converts the cause into a Go error.
//
// The result is a [*FiberFailure], which unwraps to the typed error or the
// defect when those are themselves errors, and to [ErrInterrupted] for an
// interruption.
func (c Cause[E]) Err() error {
	ff := &FiberFailure{Kind: c.kind}
	switch c.kind {
	case CauseFail:
		ff.Failure = c.err
	case CauseDie:
		ff.Defect = c.defect
	}
	return ff
}

func (c Cause[E]) String() string {
	switch c.kind {
	case CauseFail:
		return fmt.Sprintf("Fail(%v)", c.err)
	case CauseDie:
		return fmt.Sprintf("Die(%v)", c.defect)
	case CauseInterrupt:
		return "Interrupt"
	default:
		return "<empty cause>"
	}
}

// FiberFailure is the Go error returned by executors for a failed run.
type FiberFailure struct {
	Kind    CauseKind
	Failure any
	Defect  any
}

// Error implements the error interface.
func (e *FiberFailure) Error() string {
	switch e.Kind {
	case CauseFail:
		return fmt.Sprintf("effect failed: %v", e.Failure)
	case CauseDie:
		return fmt.Sprintf("effect died: %v", e.Defect)
	default:
		return ErrInterrupted.Error()
	}
}

// Unwrap exposes the underlying error for errors.Is and errors.As.
func (e *FiberFailure) Unwrap() error {
	switch e.Kind {
	case CauseFail:
		err, _ := e.Failure.(error)
		return err
	case CauseDie:
		err, _ := e.Defect.(error)
		return err
	default:
		return ErrInterrupted
	}
}

// RecoveredPanic is the defect recorded when user code panics while an
// effect runs.
type RecoveredPanic struct {
	Value any
}

func (p *RecoveredPanic) Error() string {
	return fmt.Sprintf("panic recovered: %v", p.Value)
}

// Unwrap returns the panic value when it is an error.
func (p *RecoveredPanic) Unwrap() error {
	err, _ := p.Value.(error)
	return err
}

// rawCause is the type-erased cause the interpreter moves around.
type rawCause struct {
	kind   CauseKind
	err    any
	defect any
}

var interrupted = &rawCause{kind: CauseInterrupt}

func failRaw(err any) *rawCause { return &rawCause{kind: CauseFail, err: err} }

func dieRaw(defect any) *rawCause { return &rawCause{kind: CauseDie, defect: defect} }

func panicRaw(value any) *rawCause { return dieRaw(&RecoveredPanic{Value: value}) }

func rawOf[E any](c Cause[E]) *rawCause {
	switch c.kind {
	case CauseFail:
		return failRaw(c.err)
	case CauseDie:
		return dieRaw(c.defect)
	default:
		return interrupted
	}
}

func causeOf[E any](r *rawCause) Cause[E] {
	c := Cause[E]{kind: r.kind, defect: r.defect}
	if r.kind == CauseFail {
		c.err = as[E](r.err)
	}
	return c
}

// as asserts an erased value back to its static type. A nil interface
// value becomes the zero value of T.
func as[T any](v any) T {
	t, _ := v.(T)
	return t
}
