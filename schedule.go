// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"math"
	"math/rand/v2"
	"time"
)

// A Schedule decides whether and when a repeated action recurs.
//
// Each decision consumes an input (the last error for [Retry], the last
// value for [Repeat]) and yields an output, a delay and a verdict. A
// Schedule is a recipe: every [Schedule.Driver] call starts from a clean
// state, so one Schedule value can drive any number of independent runs.
//
// The zero Schedule never recurs.
type Schedule[In, Out any] struct {
	start func() stepFunc[In, Out]
}

// stepFunc is the state machine of one driven run.
type stepFunc[In, Out any] func(now time.Time, in In) (out Out, delay time.Duration, ok bool)

func (s Schedule[In, Out]) begin() stepFunc[In, Out] {
	if s.start == nil {
		return func(time.Time, In) (Out, time.Duration, bool) {
			var zero Out
			return zero, 0, false
		}
	}
	return s.start()
}

// Driver starts a fresh run of the schedule.
func (s Schedule[In, Out]) Driver() *Driver[In, Out] {
	return &Driver[In, Out]{step: s.begin(), now: time.Now}
}

// A Driver is the running state of a [Schedule]. It is not safe for
// concurrent use.
type Driver[In, Out any] struct {
	step        stepFunc[In, Out]
	now         func() time.Time
	recurrences int
	done        bool
}

// Next feeds one input to the schedule and reports its output, the delay
// before the next recurrence and whether to recur at all. Once a driver
// has stopped it stays stopped.
func (d *Driver[In, Out]) Next(in In) (Out, time.Duration, bool) {
	if d.done {
		var zero Out
		return zero, 0, false
	}
	out, delay, ok := d.step(d.now(), in)
	if !ok {
		d.done = true
		return out, 0, false
	}
	d.recurrences++
	return out, max(delay, 0), true
}

// Recurrences reports how many times the driver has allowed a recurrence.
func (d *Driver[In, Out]) Recurrences() int { return d.recurrences }

// Recurs recurs n times with no delay. Its output is the number of
// recurrences so far.
func Recurs[In any](n int) Schedule[In, int] {
	return Schedule[In, int]{start: func() stepFunc[In, int] {
		count := 0
		return func(time.Time, In) (int, time.Duration, bool) {
			if count >= n {
				return count, 0, false
			}
			count++
			return count, 0, true
		}
	}}
}

// Forever always recurs with no delay. Its output is the number of
// recurrences so far.
func Forever[In any]() Schedule[In, int] {
	return Schedule[In, int]{start: func() stepFunc[In, int] {
		count := 0
		return func(time.Time, In) (int, time.Duration, bool) {
			count++
			return count, 0, true
		}
	}}
}

// Fixed always recurs after interval. Its output is the number of
// recurrences so far.
//
// Options:
//   - [WithFullJitter] randomizes the delay between 0 and interval
//   - [WithPercentageJitter] adds ±N% randomness to interval
//   - [WithMaxDelay] caps the delay
//   - [WithMultiplier] is ignored
func Fixed[In any](interval time.Duration, opts ...BackoffOption) Schedule[In, int] {
	cfg := newBackoffConfig(opts)
	return Schedule[In, int]{start: func() stepFunc[In, int] {
		count := 0
		return func(time.Time, In) (int, time.Duration, bool) {
			count++
			return count, cfg.finish(interval), true
		}
	}}
}

// Exponential always recurs, waiting base × multiplier^(n-1) before the
// n-th recurrence. The multiplier defaults to 2, so a base of 100ms gives
// 100ms, 200ms, 400ms and so on. Its output is the delay chosen.
//
// Combine it with [Recurs] through [Compose] or [Intersect] to bound the
// number of attempts.
//
// Options:
//   - [WithFullJitter] randomizes the delay between 0 and the computed delay
//   - [WithPercentageJitter] adds ±N% randomness to the computed delay
//   - [WithMaxDelay] caps the delay
//   - [WithMultiplier] changes the growth rate
func Exponential[In any](base time.Duration, opts ...BackoffOption) Schedule[In, time.Duration] {
	cfg := newBackoffConfig(opts)
	return Schedule[In, time.Duration]{start: func() stepFunc[In, time.Duration] {
		attempt := 0
		return func(time.Time, In) (time.Duration, time.Duration, bool) {
			attempt++
			delay := cfg.finish(exponentialDelay(base, cfg.multiplier, attempt))
			return delay, delay, true
		}
	}}
}

// maxBackoff bounds computed delays that would otherwise overflow.
const maxBackoff = 365 * 24 * time.Hour

func exponentialDelay(base time.Duration, multiplier float64, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if multiplier == 2.0 {
		// #nosec G115 -- attempt >= 1
		shift := min(uint(attempt)-1, 62)
		if base > maxBackoff>>shift {
			return maxBackoff
		}
		return base << shift
	}
	delay := float64(base) * math.Pow(multiplier, float64(attempt-1))
	if math.IsInf(delay, 0) || math.IsNaN(delay) || delay > float64(maxBackoff) {
		return maxBackoff
	}
	return time.Duration(delay)
}

// During recurs with no delay for as long as less than limit has elapsed
// since the first decision. Its output is the elapsed time.
func During[In any](limit time.Duration) Schedule[In, time.Duration] {
	return Schedule[In, time.Duration]{start: func() stepFunc[In, time.Duration] {
		var started time.Time
		return func(now time.Time, _ In) (time.Duration, time.Duration, bool) {
			if started.IsZero() {
				started = now
			}
			elapsed := now.Sub(started)
			return elapsed, 0, elapsed < limit
		}
	}}
}

// WhileInput stops the schedule as soon as an input fails pred.
//
// Example, retrying only network errors:
//
//	policy := effect.Recurs[AppError](3).WhileInput(func(err AppError) bool {
//	    return effect.TagOf(err) == "NetworkError"
//	})
func (s Schedule[In, Out]) WhileInput(pred func(In) bool) Schedule[In, Out] {
	return Schedule[In, Out]{start: func() stepFunc[In, Out] {
		step := s.begin()
		return func(now time.Time, in In) (Out, time.Duration, bool) {
			if !pred(in) {
				var zero Out
				return zero, 0, false
			}
			return step(now, in)
		}
	}}
}

// WhileOutput stops the schedule as soon as an output fails pred.
func (s Schedule[In, Out]) WhileOutput(pred func(Out) bool) Schedule[In, Out] {
	return Schedule[In, Out]{start: func() stepFunc[In, Out] {
		step := s.begin()
		return func(now time.Time, in In) (Out, time.Duration, bool) {
			out, delay, ok := step(now, in)
			if !ok || !pred(out) {
				return out, 0, false
			}
			return out, delay, true
		}
	}}
}

// Compose pipes the output of first into second. The result recurs only
// while both recur and waits the longer of their delays.
//
// Example, three attempts with exponential backoff:
//
//	policy := effect.Compose(effect.Exponential[error](100*time.Millisecond), effect.Recurs[time.Duration](3))
func Compose[In, Mid, Out any](first Schedule[In, Mid], second Schedule[Mid, Out]) Schedule[In, Out] {
	return Schedule[In, Out]{start: func() stepFunc[In, Out] {
		stepA, stepB := first.begin(), second.begin()
		return func(now time.Time, in In) (Out, time.Duration, bool) {
			mid, delayA, ok := stepA(now, in)
			if !ok {
				var zero Out
				return zero, 0, false
			}
			out, delayB, ok := stepB(now, mid)
			if !ok {
				return out, 0, false
			}
			return out, max(delayA, delayB), true
		}
	}}
}

// Intersect feeds the same input to both schedules. The result recurs only
// while both recur and waits the longer of their delays.
func Intersect[In, A, B any](left Schedule[In, A], right Schedule[In, B]) Schedule[In, Pair[A, B]] {
	return Schedule[In, Pair[A, B]]{start: func() stepFunc[In, Pair[A, B]] {
		stepL, stepR := left.begin(), right.begin()
		return func(now time.Time, in In) (Pair[A, B], time.Duration, bool) {
			a, delayL, okL := stepL(now, in)
			b, delayR, okR := stepR(now, in)
			out := Pair[A, B]{First: a, Second: b}
			if !okL || !okR {
				return out, 0, false
			}
			return out, max(delayL, delayR), true
		}
	}}
}

// Union feeds the same input to both schedules. The result recurs while
// either recurs and waits the shorter delay among those that continue.
func Union[In, A, B any](left Schedule[In, A], right Schedule[In, B]) Schedule[In, Pair[A, B]] {
	return Schedule[In, Pair[A, B]]{start: func() stepFunc[In, Pair[A, B]] {
		stepL, stepR := left.begin(), right.begin()
		return func(now time.Time, in In) (Pair[A, B], time.Duration, bool) {
			a, delayL, okL := stepL(now, in)
			b, delayR, okR := stepR(now, in)
			out := Pair[A, B]{First: a, Second: b}
			switch {
			case okL && okR:
				return out, min(delayL, delayR), true
			case okL:
				return out, delayL, true
			case okR:
				return out, delayR, true
			default:
				return out, 0, false
			}
		}
	}}
}

// BackoffOption configures the delays of [Fixed] and [Exponential].
type BackoffOption func(*backoffConfig)

type backoffConfig struct {
	fullJitter    bool
	percentJitter float64       // 0 means none
	maxDelay      time.Duration // 0 means uncapped
	multiplier    float64
}

func newBackoffConfig(opts []BackoffOption) backoffConfig {
	cfg := backoffConfig{multiplier: 2.0}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// finish applies jitter and then the cap, so the final delay never exceeds
// the configured maximum.
func (c *backoffConfig) finish(delay time.Duration) time.Duration {
	delay = applyJitter(delay, c)
	if c.maxDelay > 0 && delay > c.maxDelay {
		delay = c.maxDelay
	}
	return delay
}

// WithFullJitter picks each delay uniformly between 0 and the computed
// delay. It replaces any earlier [WithPercentageJitter].
func WithFullJitter() BackoffOption {
	return func(c *backoffConfig) {
		c.fullJitter = true
		c.percentJitter = 0
	}
}

// WithPercentageJitter adds ±percent randomness to each delay, so 0.2
// yields delays between 80% and 120% of the computed one. It replaces any
// earlier [WithFullJitter].
func WithPercentageJitter(percent float64) BackoffOption {
	return func(c *backoffConfig) {
		c.fullJitter = false
		c.percentJitter = percent
	}
}

// WithMaxDelay caps every delay, jitter included.
func WithMaxDelay(limit time.Duration) BackoffOption {
	return func(c *backoffConfig) {
		c.maxDelay = limit
	}
}

// WithMultiplier sets the growth rate of [Exponential]. The default is 2.
func WithMultiplier(m float64) BackoffOption {
	return func(c *backoffConfig) {
		c.multiplier = m
	}
}

// applyJitter uses math/rand/v2; its auto-seeded ChaCha8 source is good
// enough to desynchronize clients.
func applyJitter(delay time.Duration, cfg *backoffConfig) time.Duration {
	if delay <= 0 {
		return 0
	}
	if cfg.fullJitter {
		// #nosec G404 -- jitter is not security sensitive
		return time.Duration(rand.Int64N(int64(delay) + 1))
	}
	if cfg.percentJitter > 0 {
		jitterRange := float64(delay) * cfg.percentJitter
		// #nosec G404 -- jitter is not security sensitive
		result := float64(delay) + rand.Float64()*2*jitterRange - jitterRange
		if result < 0 {
			return 0
		}
		return time.Duration(result)
	}
	return delay
}
