// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"go.uber.org/zap"
)

// Retry re-runs eff from scratch while it fails with an expected error and
// policy agrees to recur.
//
// Each failure is fed to the policy; the fiber then sleeps for the delay
// the policy chose. Sleeping is a suspension point, so a cancelled fiber
// stops retrying. When the policy stops, the last failure is propagated.
// Success returns immediately without consulting the policy, and defects
// and interruptions are never retried.
//
// Example:
//
//	resilient := effect.Retry(flaky, effect.Recurs[string](3))
func Retry[A, E, Out any](eff Effect[A, E], policy Schedule[E, Out]) Effect[A, E] {
	return RetryOrElse(eff, policy, Fail[A, E])
}

// RetryOrElse is like [Retry] but hands the last failure to orElse once the
// policy gives up.
func RetryOrElse[A, E, Out, E2 any](
	eff Effect[A, E],
	policy Schedule[E, Out],
	orElse func(E) Effect[A, E2],
) Effect[A, E2] {
	return Suspend(func() Effect[A, E2] {
		driver := policy.Driver()
		var attempt func() Effect[A, E2]
		attempt = func() Effect[A, E2] {
			return CatchAll(eff, func(err E) Effect[A, E2] {
				_, delay, ok := driver.Next(err)
				if !ok {
					return orElse(err)
				}
				return AndThen(
					AndThen(
						LogDebug[E2]("retrying effect",
							zap.Int("attempt", driver.Recurrences()),
							zap.Duration("delay", delay)),
						Sleep[E2](delay),
					),
					Suspend(attempt),
				)
			})
		}
		return attempt()
	})
}

// Repeat runs eff, then runs it again for as long as policy agrees to
// recur on its latest value. It returns the policy's final output.
//
// A failure of eff stops the repetition and fails the effect.
func Repeat[A, E, Out any](eff Effect[A, E], policy Schedule[A, Out]) Effect[Out, E] {
	return Suspend(func() Effect[Out, E] {
		driver := policy.Driver()
		var loop func() Effect[Out, E]
		loop = func() Effect[Out, E] {
			return FlatMap(eff, func(a A) Effect[Out, E] {
				out, delay, ok := driver.Next(a)
				if !ok {
					return Succeed[E](out)
				}
				return AndThen(Sleep[E](delay), Suspend(loop))
			})
		}
		return loop()
	})
}
