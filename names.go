// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"context"
	"runtime"
	"strings"
)

// Names returns a copy of the name stack of ctx, outermost first, or nil
// if there is none.
//
// This is useful for custom logging decorators that need the current
// hierarchy of names.
func Names(ctx context.Context) []string {
	l := localsOf(ctx)
	if l == nil || len(l.names) == 0 {
		return nil
	}
	return append([]string{}, l.names...)
}

// Named runs eff with name pushed onto the name stack.
//
// Nested names form a hierarchical path (e.g. "process.parse.validate")
// that [WithLogging], the Log effects and tracing report. Under [Traced],
// every Named effect also records a trace event.
func Named[A, E any](name string, eff Effect[A, E]) Effect[A, E] {
	return Effect[A, E]{localInstr{
		modify: func(ctx context.Context) context.Context {
			return withLocals(ctx, func(l *locals) {
				l.names = append(append(make([]string, 0, len(l.names)+1), l.names...), name)
			})
		},
		body: recordEvent(eff.instr),
	}}
}

type autoNamedOptions struct {
	callerSkip int
}

// An AutoNamedOption is a function option for [AutoNamed].
type AutoNamedOption func(*autoNamedOptions)

// SkipCaller adds delta to the number of stack frames [AutoNamed] skips
// when looking for its caller.
//
// This is useful when AutoNamed is called inside a helper, so the name
// comes from the helper's caller instead.
//
// Example:
//
//	func FetchUser(id int) effect.Effect[User, string] {
//	    return instrumented(fetch(id))
//	}
//
//	func instrumented[A any](eff effect.Effect[A, string]) effect.Effect[A, string] {
//	    // Skip instrumented so AutoNamed picks FetchUser
//	    return effect.AutoNamed(effect.WithLogging(zapcore.InfoLevel, eff), effect.SkipCaller(1))
//	}
func SkipCaller(delta int) AutoNamedOption {
	return func(o *autoNamedOptions) {
		o.callerSkip += delta
	}
}

// AutoNamed is [Named] with a name derived from the calling function.
//
// Example:
//
//	func CreateDatabase() effect.Effect[*DB, string] {
//	    return effect.AutoNamed(openDatabase)
//	}
//	// Logged and traced as "CreateDatabase".
//
// AutoNamed only finds a useful name when called directly from a named
// function, not from a closure.
func AutoNamed[A, E any](eff Effect[A, E], opts ...AutoNamedOption) Effect[A, E] {
	const minimumCallerSkip = 1
	config := autoNamedOptions{callerSkip: minimumCallerSkip}
	for _, opt := range opts {
		opt(&config)
	}

	pc, _, _, ok := runtime.Caller(config.callerSkip)
	if !ok {
		return eff
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return eff
	}
	return Named(extractFunctionName(fn.Name()), eff)
}

// extractFunctionName returns the simple name of a fully qualified
// function.
//
// Examples:
//   - "github.com/sam-fredrickson/effect.CreateDatabase" -> "CreateDatabase"
//   - "main.(*Server).HandleRequest" -> "HandleRequest"
//   - "github.com/user/pkg.init.0" -> "0"
func extractFunctionName(fullName string) string {
	lastPart := fullName
	if idx := strings.LastIndex(lastPart, "/"); idx != -1 {
		lastPart = lastPart[idx+1:]
	}
	if idx := strings.LastIndex(lastPart, "."); idx != -1 {
		lastPart = lastPart[idx+1:]
	}
	return lastPart
}
