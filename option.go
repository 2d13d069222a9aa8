// SPDX-License-Identifier: Apache-2.0

package effect

import "fmt"

// Option is a value that may be absent.
type Option[A any] struct {
	value A
	ok    bool
}

// Some returns a present Option.
func Some[A any](value A) Option[A] {
	return Option[A]{value: value, ok: true}
}

// None returns an absent Option.
func None[A any]() Option[A] {
	return Option[A]{}
}

// Get returns the value and whether it is present.
func (o Option[A]) Get() (A, bool) { return o.value, o.ok }

// IsSome reports whether the value is present.
func (o Option[A]) IsSome() bool { return o.ok }

// IsNone reports whether the value is absent.
func (o Option[A]) IsNone() bool { return !o.ok }

// OrElse returns the value, or fallback when absent.
func (o Option[A]) OrElse(fallback A) A {
	if o.ok {
		return o.value
	}
	return fallback
}

func (o Option[A]) String() string {
	if o.ok {
		return fmt.Sprintf("Some(%v)", o.value)
	}
	return "None"
}
