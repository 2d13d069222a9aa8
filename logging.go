// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger returns the [zap.Logger] from the context, or [zap.L] if none is
// set.
//
// This is useful for custom decorators that need the configured logger.
//
// Example:
//
//	audit := effect.FlatMap(effect.Context[string](), func(ctx context.Context) effect.Effect[struct{}, string] {
//	    effect.Logger(ctx).Info("audit", zap.Strings("names", effect.Names(ctx)))
//	    return effect.Void[string]()
//	})
func Logger(ctx context.Context) *zap.Logger {
	if l := localsOf(ctx); l != nil && l.logger != nil {
		return l.logger
	}
	return zap.L()
}

// ContextWithLogger returns a context carrying logger. Effects run with
// that context (see [RunPromise] and [RunFork]) log through it.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return withLocals(ctx, func(l *locals) {
		l.logger = logger
	})
}

// WithLogger runs eff with logger as the active logger.
//
// This is typically applied once at the root of a program.
//
// Example:
//
//	logger, _ := zap.NewProduction()
//	program := effect.WithLogger(logger,
//	    effect.Named("process",
//	        effect.WithLogging(zapcore.InfoLevel, process)))
func WithLogger[A, E any](logger *zap.Logger, eff Effect[A, E]) Effect[A, E] {
	return local(eff, func(l *locals) {
		l.logger = logger
	})
}

// WithLogging logs when eff starts and when it finishes, at level.
//
// Entries carry the dotted name path (see [Named]) under "name", or
// "<unknown>" when no names are set, and the fiber id under "fiber". The
// finish entry adds "duration" and "outcome".
//
// Example:
//
//	program := effect.Named("process",
//	    effect.WithLogging(zapcore.InfoLevel,
//	        effect.Named("parse",
//	            effect.WithLogging(zapcore.DebugLevel, parse))))
//
// This emits entries similar to:
//
//	{"level":"info","msg":"starting effect","name":"process","fiber":"..."}
//	{"level":"debug","msg":"starting effect","name":"process.parse","fiber":"..."}
//	{"level":"debug","msg":"finished effect","name":"process.parse","fiber":"...","duration":0.005,"outcome":"success"}
//	{"level":"info","msg":"finished effect","name":"process","fiber":"...","duration":0.01,"outcome":"success"}
func WithLogging[A, E any](level zapcore.Level, eff Effect[A, E]) Effect[A, E] {
	return Effect[A, E]{fiberInstr{f: func(r *runner) instr {
		logger := r.logger()
		logger.Log(level, "starting effect")
		start := time.Now()
		return foldInstr{
			first: eff.instr,
			onSuccess: func(v any) instr {
				logger.Log(level, "finished effect",
					zap.Duration("duration", time.Since(start)),
					zap.String("outcome", outcomeOf(nil)))
				return succeedInstr{value: v}
			},
			onFailure: func(c *rawCause) instr {
				logger.Log(level, "finished effect",
					zap.Duration("duration", time.Since(start)),
					zap.String("outcome", outcomeOf(c)),
					zap.String("cause", describeCause(c)))
				return failInstr{cause: c}
			},
		}
	}}}
}

// Log returns an effect that writes one entry at level through the fiber's
// logger, annotated with the name path and fiber id.
func Log[E any](level zapcore.Level, msg string, fields ...zap.Field) Effect[struct{}, E] {
	return Effect[struct{}, E]{fiberInstr{f: func(r *runner) instr {
		if Logger(r.ctx).Core().Enabled(level) {
			r.logger().Log(level, msg, fields...)
		}
		return succeedInstr{value: struct{}{}}
	}}}
}

// LogDebug is [Log] at debug level.
func LogDebug[E any](msg string, fields ...zap.Field) Effect[struct{}, E] {
	return Log[E](zapcore.DebugLevel, msg, fields...)
}

// LogInfo is [Log] at info level.
func LogInfo[E any](msg string, fields ...zap.Field) Effect[struct{}, E] {
	return Log[E](zapcore.InfoLevel, msg, fields...)
}

// LogWarning is [Log] at warn level.
func LogWarning[E any](msg string, fields ...zap.Field) Effect[struct{}, E] {
	return Log[E](zapcore.WarnLevel, msg, fields...)
}

// LogError is [Log] at error level.
func LogError[E any](msg string, fields ...zap.Field) Effect[struct{}, E] {
	return Log[E](zapcore.ErrorLevel, msg, fields...)
}

// logger returns the context logger annotated for the running fiber.
func (r *runner) logger() *zap.Logger {
	name := "<unknown>"
	if names := Names(r.ctx); len(names) > 0 {
		name = strings.Join(names, ".")
	}
	return Logger(r.ctx).With(
		zap.String("name", name),
		zap.Stringer("fiber", r.fiberID()),
	)
}

// outcomeOf names the outcome of an evaluation: "success", or the kind of
// the cause.
func outcomeOf(cause *rawCause) string {
	if cause == nil {
		return "success"
	}
	return cause.kind.String()
}

func describeCause(c *rawCause) string {
	return causeOf[any](c).String()
}
