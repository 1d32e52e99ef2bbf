// Package debug renders internal structures in human readable form for
// debug logs and reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"

	"resemble/css"
)

type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	for range depth {
		tw.w.WriteString("  ")
	}
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

func (tw TreeWriter) TextBlock(depth int, label, value string) {
	for range depth {
		tw.w.WriteString("  ")
	}
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}

var kindNames = map[css.Kind]string{
	css.KindWord:     "word",
	css.KindSpace:    "space",
	css.KindDiv:      "div",
	css.KindFunction: "function",
}

// ValueTree renders declaration value tree one node per line, function
// arguments indented under the function.
func ValueTree(v css.Value) string {
	tw := NewTreeWriter()
	tw.nodes(0, v)
	return tw.String()
}

func (tw TreeWriter) nodes(depth int, nodes []css.Node) {
	for _, n := range nodes {
		if n.Kind != css.KindFunction {
			tw.TextBlock(depth, kindNames[n.Kind], n.Text)
			continue
		}
		state := "closed"
		if !n.Closed {
			state = "unclosed"
		}
		tw.Line(depth, "%s %s() %s", kindNames[n.Kind], n.Text, state)
		tw.nodes(depth+1, n.Nodes)
	}
}
