// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TraceEvent is one execution of a [Named] effect within a traced run.
type TraceEvent struct {
	// Names is the full hierarchical path of names, outermost first.
	// For example: ["parent", "child", "grandchild"]
	Names []string `json:"names"`

	// Fiber is the id of the fiber that ran the effect.
	Fiber string `json:"fiber"`

	// Start is when the effect began.
	Start time.Time `json:"start"`

	// Duration is how long the effect took.
	Duration time.Duration `json:"duration"`

	// Outcome is "success", "fail", "die" or "interrupt".
	Outcome string `json:"outcome"`

	// Error describes the cause when the effect did not succeed.
	Error string `json:"error,omitempty"`
}

// Succeeded reports whether the event completed successfully.
func (e TraceEvent) Succeeded() bool { return e.Outcome == outcomeOf(nil) }

// TraceOption configures [Traced].
type TraceOption func(*traceOptions)

type traceOptions struct {
	streamTo io.Writer
}

// WithStreamTo streams events to w as JSON Lines, one event per line, as
// they complete. Events are still kept in memory for querying afterwards.
//
// Writes are best-effort: a failing writer never fails the traced effect.
//
// Example:
//
//	f, _ := os.Create("trace.jsonl")
//	defer f.Close()
//	traced := effect.Traced(program, effect.WithStreamTo(f))
func WithStreamTo(w io.Writer) TraceOption {
	return func(opts *traceOptions) {
		opts.streamTo = w
	}
}

// trace collects events for one traced run.
type trace struct {
	mu      sync.Mutex
	encoder *json.Encoder
	result  *Trace
	// closed is set once the Trace is handed to the caller. Fibers that
	// outlive the traced effect no longer record.
	closed bool
}

// Trace is the record of a traced run.
type Trace struct {
	// Events lists every recorded event in start order.
	Events []TraceEvent

	// Start is when the traced effect began.
	Start time.Time

	// Duration is the total run time. For filtered traces it is the sum of
	// the event durations.
	Duration time.Duration

	// TotalEffects is the number of Named effects that ran.
	TotalEffects int

	// TotalFailures is the number of those that did not succeed.
	TotalFailures int
}

// TraceResult pairs the outcome of a traced effect with its trace.
type TraceResult[A, E any] struct {
	Exit  Exit[A, E]
	Trace *Trace
}

// eventIdx is an index into the trace's events.
type eventIdx int

// Traced runs eff and records an event for every [Named] effect it runs,
// on any fiber. The resulting effect always succeeds: the outcome of eff
// is captured in the [TraceResult].
//
// Events from concurrent fibers are recorded in approximate start order.
// Sort by Start for exact ordering.
//
// Example:
//
//	program := effect.AndThen(
//	    effect.Named("validate", validate),
//	    effect.Named("connect", connect),
//	)
//	result, _ := effect.RunPromise(ctx, effect.Traced(program))
//	_ = result.Trace.WriteText(os.Stdout)
func Traced[A, E any](eff Effect[A, E], opts ...TraceOption) Effect[TraceResult[A, E], Never] {
	var options traceOptions
	for _, opt := range opts {
		opt(&options)
	}

	return Effect[TraceResult[A, E], Never]{fiberInstr{f: func(r *runner) instr {
		result := &Trace{
			Start:  time.Now(),
			Events: make([]TraceEvent, 0),
		}
		tr := &trace{result: result}
		if options.streamTo != nil {
			tr.encoder = json.NewEncoder(options.streamTo)
		}

		finish := func(value any, cause *rawCause) instr {
			tr.close()
			if flusher, ok := options.streamTo.(interface{ Flush() error }); ok {
				_ = flusher.Flush()
			}
			return succeedInstr{value: TraceResult[A, E]{
				Exit:  exitOf[A, E](value, cause),
				Trace: result,
			}}
		}

		return foldInstr{
			first: local(eff, func(l *locals) {
				l.trace = tr
			}).instr,
			onSuccess: func(v any) instr { return finish(v, nil) },
			onFailure: func(c *rawCause) instr { return finish(nil, c) },
		}
	}}}
}

// recordEvent wraps body so that, under an active trace, its execution is
// recorded with the current name stack.
func recordEvent(body instr) instr {
	return fiberInstr{f: func(r *runner) instr {
		l := localsOf(r.ctx)
		if l == nil || l.trace == nil {
			return body
		}
		tr := l.trace
		idx := tr.newEvent(l.names, r.fiberID())
		return foldInstr{
			first: body,
			onSuccess: func(v any) instr {
				tr.recordFinish(idx, nil)
				return succeedInstr{value: v}
			},
			onFailure: func(c *rawCause) instr {
				tr.recordFinish(idx, c)
				return failInstr{cause: c}
			},
		}
	}}
}

// close stamps the total duration and stops recording.
func (t *trace) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.result.Duration = time.Since(t.result.Start)
}

// newEvent appends a started event and returns its index, or -1 once the
// trace is closed.
func (t *trace) newEvent(names []string, fiber uuid.UUID) eventIdx {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return -1
	}

	idx := len(t.result.Events)
	t.result.Events = append(t.result.Events, TraceEvent{
		Names: names,
		Fiber: fiber.String(),
		Start: time.Now(),
	})
	t.result.TotalEffects++
	return eventIdx(idx)
}

// recordFinish completes an event and streams it, if streaming.
func (t *trace) recordFinish(idx eventIdx, cause *rawCause) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || idx < 0 {
		return
	}

	event := &t.result.Events[idx]
	event.Duration = time.Since(event.Start)
	event.Outcome = outcomeOf(cause)
	if cause != nil {
		event.Error = describeCause(cause)
		t.result.TotalFailures++
	}

	if t.encoder != nil {
		_ = t.encoder.Encode(event)
	}
}
