// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// TraceFilter is a predicate over trace events.
type TraceFilter func(TraceEvent) bool

func matchesAll(event TraceEvent, filters []TraceFilter) bool {
	for _, filter := range filters {
		if !filter(event) {
			return false
		}
	}
	return true
}

// FindEvent returns the first event matching every filter, or nil.
//
// Example:
//
//	// The first slow database call
//	event := trace.FindEvent(
//	    effect.PathMatches("db.*"),
//	    effect.MinDuration(time.Second),
//	)
func (t *Trace) FindEvent(filters ...TraceFilter) *TraceEvent {
	for i := range t.Events {
		if matchesAll(t.Events[i], filters) {
			return &t.Events[i]
		}
	}
	return nil
}

// Filter returns a new Trace holding the events that match every filter.
// The original trace is not modified.
//
// In the result, TotalEffects and TotalFailures count the kept events,
// Duration is the sum of their durations, and Start is the earliest of
// their starts (or the original Start when nothing matches).
func (t *Trace) Filter(filters ...TraceFilter) *Trace {
	out := &Trace{Start: t.Start, Events: make([]TraceEvent, 0, len(t.Events))}
	for _, event := range t.Events {
		if !matchesAll(event, filters) {
			continue
		}
		if len(out.Events) == 0 || event.Start.Before(out.Start) {
			out.Start = event.Start
		}
		out.Events = append(out.Events, event)
		out.Duration += event.Duration
		if !event.Succeeded() {
			out.TotalFailures++
		}
	}
	out.TotalEffects = len(out.Events)
	return out
}

// MinDuration matches events that took at least d.
func MinDuration(d time.Duration) TraceFilter {
	return func(event TraceEvent) bool { return event.Duration >= d }
}

// MaxDuration matches events that took at most d.
func MaxDuration(d time.Duration) TraceFilter {
	return func(event TraceEvent) bool { return event.Duration <= d }
}

// HasOutcome matches events with the given outcome: "success", "fail",
// "die" or "interrupt".
func HasOutcome(outcome string) TraceFilter {
	return func(event TraceEvent) bool { return event.Outcome == outcome }
}

// Unsuccessful matches events that did not succeed, whatever the cause.
func Unsuccessful() TraceFilter {
	return func(event TraceEvent) bool { return !event.Succeeded() }
}

// OnFiber matches events recorded by the fiber with the given id.
func OnFiber(id string) TraceFilter {
	return func(event TraceEvent) bool { return event.Fiber == id }
}

// NameMatches matches events whose innermost name matches the glob
// pattern, using [filepath.Match] syntax. A malformed pattern matches
// nothing.
func NameMatches(pattern string) TraceFilter {
	return func(event TraceEvent) bool {
		if len(event.Names) == 0 {
			return false
		}
		return globMatch(pattern, event.Names[len(event.Names)-1])
	}
}

// PathMatches matches events whose dotted name path matches the glob
// pattern, using [filepath.Match] syntax. A malformed pattern matches
// nothing.
func PathMatches(pattern string) TraceFilter {
	return func(event TraceEvent) bool {
		if len(event.Names) == 0 {
			return false
		}
		return globMatch(pattern, strings.Join(event.Names, "."))
	}
}

// ErrorMatches matches failed events whose error text matches the glob
// pattern.
func ErrorMatches(pattern string) TraceFilter {
	return func(event TraceEvent) bool {
		return event.Error != "" && globMatch(pattern, event.Error)
	}
}

func globMatch(pattern, s string) bool {
	matched, err := filepath.Match(pattern, s)
	return err == nil && matched
}

// HasPathPrefix matches events nested under prefix.
//
// Example:
//
//	// Everything under ["migrate", "tables"]
//	filter := effect.HasPathPrefix([]string{"migrate", "tables"})
func HasPathPrefix(prefix []string) TraceFilter {
	return func(event TraceEvent) bool {
		return len(event.Names) >= len(prefix) && slices.Equal(event.Names[:len(prefix)], prefix)
	}
}

// DepthAtMost matches events nested at most depth names deep, so
// DepthAtMost(1) keeps only top-level events.
func DepthAtMost(depth int) TraceFilter {
	return func(event TraceEvent) bool { return len(event.Names) <= depth }
}
