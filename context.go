// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// localsKey is the context key for retrieving the fiber locals.
type localsKey struct{}

// locals consolidates the fiber-local values of this package (name stack,
// logger, active trace) into a single context value.
//
// It embeds the parent context.Context so cancellation, deadlines and
// foreign values keep flowing through.
type locals struct {
	context.Context

	// names is the name stack, oldest first. nil means empty.
	names []string

	// logger is nil until set, in which case zap.L() applies.
	logger *zap.Logger

	// trace is the active execution trace, if any.
	trace *trace
}

// Value intercepts localsKey and delegates every other key to the parent.
func (l *locals) Value(key any) any {
	if _, ok := key.(localsKey); ok {
		return l
	}
	return l.Context.Value(key)
}

// localsOf returns the locals of ctx. The result may be nil.
func localsOf(ctx context.Context) *locals {
	l, _ := ctx.Value(localsKey{}).(*locals)
	return l
}

// withLocals derives a context whose locals start as a copy of the
// parent's and are then adjusted by update.
func withLocals(parent context.Context, update func(*locals)) context.Context {
	l := &locals{Context: parent}
	if origin := localsOf(parent); origin != nil {
		l.names = origin.names
		l.logger = origin.logger
		l.trace = origin.trace
	}
	update(l)
	return l
}

// local runs eff with the fiber context adjusted by update.
func local[A, E any](eff Effect[A, E], update func(*locals)) Effect[A, E] {
	return Effect[A, E]{localInstr{
		modify: func(ctx context.Context) context.Context {
			return withLocals(ctx, update)
		},
		body: eff.instr,
	}}
}

// Context returns an effect that reads the fiber's context.
func Context[E any]() Effect[context.Context, E] {
	return Effect[context.Context, E]{fiberInstr{f: func(r *runner) instr {
		return succeedInstr{value: r.ctx}
	}}}
}

// Sleep returns an effect that waits for d. A non-positive d completes
// immediately without suspending, so it also works under [RunSync].
//
// Sleeping is a suspension point: an interrupted fiber stops waiting.
func Sleep[E any](d time.Duration) Effect[struct{}, E] {
	if d <= 0 {
		return Void[E]()
	}
	return Effect[struct{}, E]{asyncInstr{run: func(r *runner) instr {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
			return succeedInstr{value: struct{}{}}
		case <-r.ctx.Done():
			return failInstr{cause: interrupted}
		}
	}}}
}

// TimeoutOr is the error type of [Timeout]: either the original error or
// a timeout.
type TimeoutOr[E any] struct {
	// Err is the original error when Timeout is nil.
	Err E
	// Timeout is set when the deadline passed first.
	Timeout *TimeoutError
}

// IsTimeout reports whether the deadline passed first.
func (t TimeoutOr[E]) IsTimeout() bool { return t.Timeout != nil }

// Tag implements [Tagged]: a timeout reports [TimeoutTag], anything else
// the tag of the original error.
func (t TimeoutOr[E]) Tag() string {
	if t.Timeout != nil {
		return t.Timeout.Tag()
	}
	return TagOf(t.Err)
}

func (t TimeoutOr[E]) Error() string {
	if t.Timeout != nil {
		return t.Timeout.Error()
	}
	if err, ok := any(t.Err).(error); ok {
		return err.Error()
	}
	return fmt.Sprint(t.Err)
}

// Unwrap returns the timeout, or the original error when it is an error.
func (t TimeoutOr[E]) Unwrap() error {
	if t.Timeout != nil {
		return t.Timeout
	}
	err, _ := any(t.Err).(error)
	return err
}

// Timeout races eff against a timer of duration d.
//
// If eff settles first its outcome is kept, with an expected error wrapped
// in [TimeoutOr]. If the timer fires first the effect fails with a
// [*TimeoutError]. The losing effect is interrupted and abandoned: it is
// not awaited, and work without a suspension point keeps running in the
// background with its result discarded.
//
// Example:
//
//	quick := effect.Timeout(slowQuery, time.Second)
func Timeout[A, E any](eff Effect[A, E], d time.Duration) Effect[A, TimeoutOr[E]] {
	inner := MapError(eff, func(err E) TimeoutOr[E] {
		return TimeoutOr[E]{Err: err}
	})
	return Effect[A, TimeoutOr[E]]{raceTimer(inner.instr, d, func() instr {
		return failInstr{cause: failRaw(TimeoutOr[E]{Timeout: &TimeoutError{Duration: d}})}
	})}
}

// TimeoutFail is like [Timeout] but keeps the error type, failing with
// onTimeout() when the timer wins.
func TimeoutFail[A, E any](eff Effect[A, E], d time.Duration, onTimeout func() E) Effect[A, E] {
	return Effect[A, E]{raceTimer(eff.instr, d, func() instr {
		return failInstr{cause: failRaw(onTimeout())}
	})}
}

// TimeoutTo is like [Timeout] but succeeds with onTimeout() when the timer
// wins.
func TimeoutTo[A, E any](eff Effect[A, E], d time.Duration, onTimeout func() A) Effect[A, E] {
	return Effect[A, E]{raceTimer(eff.instr, d, func() instr {
		return succeedInstr{value: onTimeout()}
	})}
}

// raceTimer runs body on a child fiber and settles with whichever of body
// and the timer finishes first.
func raceTimer(body instr, d time.Duration, onTimeout func() instr) instr {
	return asyncInstr{run: func(r *runner) instr {
		ctx, cancel := context.WithCancel(r.ctx)
		defer cancel()

		type outcome struct {
			value any
			cause *rawCause
		}
		done := make(chan outcome, 1)
		child := r.child(ctx)
		go func() {
			value, cause := child.eval(body)
			done <- outcome{value, cause}
		}()

		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case o := <-done:
			return resultInstr(o.value, o.cause)
		case <-timer.C:
			return onTimeout()
		case <-r.ctx.Done():
			return failInstr{cause: interrupted}
		}
	}}
}

// Tag identifies a service of type S in the fiber context.
type Tag[S any] struct {
	name string
	key  *tagKey
}

type tagKey struct{ name string }

// NewTag creates a new service tag. Tags are compared by identity, not
// by name; the name is used in error messages.
func NewTag[S any](name string) Tag[S] {
	return Tag[S]{name: name, key: &tagKey{name: name}}
}

// Name returns the name the tag was created with.
func (t Tag[S]) Name() string { return t.name }

// Service returns an effect that looks up the service for tag. A missing
// service is a defect carrying a [*MissingServiceError].
func Service[E, S any](tag Tag[S]) Effect[S, E] {
	return Effect[S, E]{fiberInstr{f: func(r *runner) instr {
		if tag.key != nil {
			if svc, ok := r.ctx.Value(tag.key).(S); ok {
				return succeedInstr{value: svc}
			}
		}
		return failInstr{cause: dieRaw(&MissingServiceError{Name: tag.name})}
	}}}
}

// ProvideService runs eff with svc registered under tag.
func ProvideService[A, E, S any](eff Effect[A, E], tag Tag[S], svc S) Effect[A, E] {
	if tag.key == nil {
		return Die[A, E](&MissingServiceError{Name: tag.name})
	}
	return Effect[A, E]{localInstr{
		modify: func(ctx context.Context) context.Context {
			return context.WithValue(ctx, tag.key, svc)
		},
		body: eff.instr,
	}}
}
