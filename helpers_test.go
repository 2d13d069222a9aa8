// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// ==== Test Helpers: Tagged Errors ====

// AppError is the error channel used by tagged-error tests.
type AppError interface {
	error
	Tagged
}

type NetworkError struct {
	Message string
}

func (e NetworkError) Error() string { return "network: " + e.Message }
func (NetworkError) Tag() string     { return "NetworkError" }

type ValidationError struct {
	Field string
}

func (e ValidationError) Error() string { return "invalid field " + e.Field }
func (ValidationError) Tag() string     { return "ValidationError" }

// ==== Test Helpers: Error Variables ====

var errBoom = errors.New("boom")

// ==== Test Helpers: Counting Effects ====

// counter counts how many times effects built from it have run.
type counter struct {
	n atomic.Int64
}

func (c *counter) count() int64 { return c.n.Load() }

// tick succeeds with the new count.
func tick[E any](c *counter) Effect[int64, E] {
	return Sync[E](func() int64 { return c.n.Add(1) })
}

// failUntil counts each run and fails with err until the count reaches
// threshold, then succeeds with the count.
func failUntil[E any](c *counter, threshold int64, err E) Effect[int64, E] {
	return Suspend(func() Effect[int64, E] {
		n := c.n.Add(1)
		if n < threshold {
			return Fail[int64](err)
		}
		return Succeed[E](n)
	})
}

// ==== Test Helpers: Exit Assertions ====

func requireSuccess[A, E any](t *testing.T, exit Exit[A, E], want A) {
	t.Helper()
	value, ok := exit.Value()
	require.Truef(t, ok, "expected success, got %v", exit)
	require.Equal(t, want, value)
}

func requireFail[A, E any](t *testing.T, exit Exit[A, E], want E) {
	t.Helper()
	cause, failed := exit.Cause()
	require.Truef(t, failed, "expected failure, got %v", exit)
	err, ok := cause.Failure()
	require.Truef(t, ok, "expected Fail cause, got %v", cause)
	require.Equal(t, want, err)
}

func requireKind[A, E any](t *testing.T, exit Exit[A, E], kind CauseKind) Cause[E] {
	t.Helper()
	cause, failed := exit.Cause()
	require.Truef(t, failed, "expected failure, got %v", exit)
	require.Equalf(t, kind, cause.Kind(), "unexpected cause %v", cause)
	return cause
}
