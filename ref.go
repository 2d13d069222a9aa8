// SPDX-License-Identifier: Apache-2.0

package effect

import "sync"

// A Ref is a mutable cell safe for concurrent use. Updates are atomic, so
// a Ref can count events across concurrent branches.
//
// The methods act immediately; the Ref* functions return effects that act
// when run.
type Ref[A any] struct {
	mu    sync.Mutex
	value A
}

// NewRef returns a Ref holding initial.
func NewRef[A any](initial A) *Ref[A] {
	return &Ref[A]{value: initial}
}

// Get returns the current value.
func (r *Ref[A]) Get() A {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// Set replaces the value.
func (r *Ref[A]) Set(value A) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = value
}

// Update replaces the value with f(value).
func (r *Ref[A]) Update(f func(A) A) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = f(r.value)
}

// UpdateAndGet replaces the value with f(value) and returns the new value.
func (r *Ref[A]) UpdateAndGet(f func(A) A) A {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = f(r.value)
	return r.value
}

// GetAndUpdate replaces the value with f(value) and returns the old value.
func (r *Ref[A]) GetAndUpdate(f func(A) A) A {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.value
	r.value = f(old)
	return old
}

// Modify is the general atomic update: f returns a result and the new
// value.
func Modify[A, B any](r *Ref[A], f func(A) (B, A)) B {
	r.mu.Lock()
	defer r.mu.Unlock()
	result, next := f(r.value)
	r.value = next
	return result
}

// MakeRef returns an effect that allocates a fresh Ref on every run.
func MakeRef[E, A any](initial A) Effect[*Ref[A], E] {
	return Sync[E](func() *Ref[A] { return NewRef(initial) })
}

// RefGet returns an effect reading r.
func RefGet[E, A any](r *Ref[A]) Effect[A, E] {
	return Sync[E](r.Get)
}

// RefSet returns an effect writing value to r.
func RefSet[E, A any](r *Ref[A], value A) Effect[struct{}, E] {
	return Sync[E](func() struct{} {
		r.Set(value)
		return struct{}{}
	})
}

// RefUpdate returns an effect applying f to r.
func RefUpdate[E, A any](r *Ref[A], f func(A) A) Effect[struct{}, E] {
	return Sync[E](func() struct{} {
		r.Update(f)
		return struct{}{}
	})
}

// RefUpdateAndGet returns an effect applying f to r and yielding the new
// value.
func RefUpdateAndGet[E, A any](r *Ref[A], f func(A) A) Effect[A, E] {
	return Sync[E](func() A { return r.UpdateAndGet(f) })
}

// RefModify returns an effect running [Modify] on r.
func RefModify[E, A, B any](r *Ref[A], f func(A) (B, A)) Effect[B, E] {
	return Sync[E](func() B { return Modify(r, f) })
}
