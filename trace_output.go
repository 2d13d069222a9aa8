// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// WriteTo writes the events as a pretty-printed JSON array followed by a
// newline.
//
// Unlike [WithStreamTo], which emits JSON Lines while the effect runs,
// WriteTo serializes the finished trace.
func (t *Trace) WriteTo(w io.Writer) (int64, error) {
	data, err := json.MarshalIndent(t.Events, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal trace: %w", err)
	}
	n, err := w.Write(append(data, '\n'))
	if err != nil {
		return int64(n), fmt.Errorf("failed to write trace: %w", err)
	}
	return int64(n), nil
}

// WriteText writes a tree view of the trace: one line per event, indented
// by depth and labelled with its innermost name.
//
// Example output:
//
//	validate (45ms)
//	fetch (2.3s) [fail: Fail(timeout)]
//	  attempt (1s) [fail: Fail(timeout)]
//	  attempt (1.3s)
//
// Events from concurrent fibers interleave, which makes the tree
// misleading; prefer [Trace.WriteFlatText] for concurrent programs.
func (t *Trace) WriteText(w io.Writer) (int64, error) {
	return t.writeLines(w, func(event TraceEvent) string {
		depth := max(len(event.Names)-1, 0)
		name := "<unknown>"
		if len(event.Names) > 0 {
			name = event.Names[len(event.Names)-1]
		}
		return strings.Repeat("  ", depth) + name
	})
}

// WriteFlatText writes one line per event with its full path, such as
// "fetch > attempt", in recorded order.
func (t *Trace) WriteFlatText(w io.Writer) (int64, error) {
	return t.writeLines(w, func(event TraceEvent) string {
		if len(event.Names) == 0 {
			return "<unknown>"
		}
		return strings.Join(event.Names, " > ")
	})
}

func (t *Trace) writeLines(w io.Writer, label func(TraceEvent) string) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)
	for _, event := range t.Events {
		line := fmt.Sprintf("%s (%s)", label(event), event.Duration)
		if !event.Succeeded() {
			line += fmt.Sprintf(" [%s: %s]", event.Outcome, event.Error)
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return cw.n, fmt.Errorf("failed to write text: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return cw.n, fmt.Errorf("failed to write text: %w", err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
