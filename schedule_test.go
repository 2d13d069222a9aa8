// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decisions drives a fresh run of s with n copies of in and records every
// verdict.
func decisions[In, Out any](s Schedule[In, Out], in In, n int) (outs []Out, delays []time.Duration, oks []bool) {
	d := s.Driver()
	for range n {
		out, delay, ok := d.Next(in)
		outs = append(outs, out)
		delays = append(delays, delay)
		oks = append(oks, ok)
	}
	return outs, delays, oks
}

func TestRecurs(t *testing.T) {
	t.Parallel()
	outs, delays, oks := decisions(Recurs[string](3), "err", 5)
	assert.Equal(t, []bool{true, true, true, false, false}, oks)
	assert.Equal(t, []int{1, 2, 3, 3, 0}, outs)
	for _, d := range delays {
		assert.Zero(t, d)
	}
}

func TestRecursZeroNeverRecurs(t *testing.T) {
	t.Parallel()
	_, _, oks := decisions(Recurs[string](0), "err", 2)
	assert.Equal(t, []bool{false, false}, oks)
}

func TestZeroScheduleNeverRecurs(t *testing.T) {
	t.Parallel()
	var s Schedule[string, int]
	_, _, ok := s.Driver().Next("x")
	assert.False(t, ok)
}

func TestDriversAreIndependent(t *testing.T) {
	t.Parallel()
	policy := Recurs[string](1)
	first, second := policy.Driver(), policy.Driver()

	_, _, ok := first.Next("a")
	require.True(t, ok)
	_, _, ok = first.Next("a")
	require.False(t, ok)

	_, _, ok = second.Next("a")
	assert.True(t, ok, "a new driver starts from a clean state")
	assert.Equal(t, 1, second.Recurrences())
}

func TestForever(t *testing.T) {
	t.Parallel()
	outs, _, oks := decisions(Forever[int](), 0, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, outs)
	assert.Equal(t, []bool{true, true, true, true}, oks)
}

func TestFixed(t *testing.T) {
	t.Parallel()
	_, delays, oks := decisions(Fixed[string](50*time.Millisecond), "e", 3)
	assert.Equal(t, []bool{true, true, true}, oks)
	assert.Equal(t, []time.Duration{50 * time.Millisecond, 50 * time.Millisecond, 50 * time.Millisecond}, delays)
}

func TestExponential(t *testing.T) {
	t.Parallel()

	t.Run("Doubles", func(t *testing.T) {
		t.Parallel()
		outs, delays, _ := decisions(Exponential[string](100*time.Millisecond), "e", 4)
		want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}
		assert.Equal(t, want, delays)
		assert.Equal(t, want, outs)
	})

	t.Run("Multiplier", func(t *testing.T) {
		t.Parallel()
		_, delays, _ := decisions(Exponential[string](100*time.Millisecond, WithMultiplier(3)), "e", 3)
		assert.Equal(t, []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 900 * time.Millisecond}, delays)
	})

	t.Run("MaxDelay", func(t *testing.T) {
		t.Parallel()
		_, delays, _ := decisions(Exponential[string](100*time.Millisecond, WithMaxDelay(250*time.Millisecond)), "e", 4)
		assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond}, delays)
	})

	t.Run("FullJitter", func(t *testing.T) {
		t.Parallel()
		_, delays, _ := decisions(Exponential[string](100*time.Millisecond, WithFullJitter()), "e", 20)
		for i, d := range delays {
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.LessOrEqual(t, d, exponentialDelay(100*time.Millisecond, 2, i+1))
		}
	})

	t.Run("PercentageJitter", func(t *testing.T) {
		t.Parallel()
		_, delays, _ := decisions(Fixed[string](100*time.Millisecond, WithPercentageJitter(0.2)), "e", 20)
		for _, d := range delays {
			assert.GreaterOrEqual(t, d, 80*time.Millisecond)
			assert.LessOrEqual(t, d, 120*time.Millisecond)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, maxBackoff, exponentialDelay(time.Hour, 2, 200))
		assert.Equal(t, maxBackoff, exponentialDelay(time.Hour, 10, 200))
	})
}

func TestDuring(t *testing.T) {
	t.Parallel()
	s := During[string](time.Hour)
	d := s.Driver()
	_, _, ok := d.Next("e")
	assert.True(t, ok)

	expired := During[string](0).Driver()
	_, _, ok = expired.Next("e")
	assert.False(t, ok)
}

func TestWhileInput(t *testing.T) {
	t.Parallel()
	policy := Recurs[AppError](5).WhileInput(func(err AppError) bool {
		return TagOf(err) == "NetworkError"
	})

	d := policy.Driver()
	_, _, ok := d.Next(NetworkError{})
	assert.True(t, ok)
	_, _, ok = d.Next(ValidationError{})
	assert.False(t, ok)
	_, _, ok = d.Next(NetworkError{})
	assert.False(t, ok, "a stopped driver stays stopped")
}

func TestWhileOutput(t *testing.T) {
	t.Parallel()
	_, _, oks := decisions(Forever[string]().WhileOutput(func(n int) bool { return n < 3 }), "e", 4)
	assert.Equal(t, []bool{true, true, false, false}, oks)
}

func TestCompose(t *testing.T) {
	t.Parallel()
	policy := Compose(Exponential[string](10*time.Millisecond), Recurs[time.Duration](2))
	outs, delays, oks := decisions(policy, "e", 3)
	assert.Equal(t, []bool{true, true, false}, oks)
	assert.Equal(t, []int{1, 2, 2}, outs)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 0}, delays)
}

func TestIntersect(t *testing.T) {
	t.Parallel()
	policy := Intersect(Fixed[string](5*time.Millisecond), Recurs[string](2))
	outs, delays, oks := decisions(policy, "e", 3)
	assert.Equal(t, []bool{true, true, false}, oks)
	assert.Equal(t, Pair[int, int]{First: 2, Second: 2}, outs[1])
	assert.Equal(t, 5*time.Millisecond, delays[0])
}

func TestUnion(t *testing.T) {
	t.Parallel()
	policy := Union(Recurs[string](1), Fixed[string](5*time.Millisecond).WhileOutput(func(n int) bool { return n <= 2 }))
	_, delays, oks := decisions(policy, "e", 3)
	assert.Equal(t, []bool{true, true, false}, oks)
	assert.Equal(t, time.Duration(0), delays[0], "the shorter delay wins while both continue")
	assert.Equal(t, 5*time.Millisecond, delays[1])
}
