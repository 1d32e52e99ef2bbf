package css

import (
	"io"
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// Kind identifies type of the value node.
type Kind int

const (
	KindWord     Kind = iota // any single token: ident, number, string, url(), hash...
	KindSpace                // whitespace and comments between components
	KindDiv                  // comma
	KindFunction             // function call or parenthesized block with arguments
)

// Node is a single component of a declaration value. Function nodes keep
// their arguments in Nodes, the closing parenthesis is implicit and is
// emitted only when Closed is set (it may be missing in malformed input).
type Node struct {
	Kind   Kind
	Token  css.TokenType // lexer token the node was created from
	Text   string        // raw token text, function name without "(" for functions
	Nodes  []Node        // function arguments, dividers and spaces included
	Closed bool
}

// Word creates literal node which is emitted as is.
func Word(text string) Node {
	return Node{Kind: KindWord, Token: css.IdentToken, Text: text}
}

// IsURL returns true for url() references. Lexer normally produces single
// url token, but url( followed by a string may come as function call.
func (n Node) IsURL() bool {
	switch n.Kind {
	case KindWord:
		return n.Token == css.URLToken
	case KindFunction:
		return n.Token == css.FunctionToken && strings.EqualFold(n.Text, "url")
	}
	return false
}

// IsFunction returns true if node is a call of the named function. Names
// are compared ignoring ASCII case.
func (n Node) IsFunction(name string) bool {
	return n.Kind == KindFunction && n.Token == css.FunctionToken && strings.EqualFold(n.Text, name)
}

// String returns CSS text of the node.
func (n Node) String() string {
	var sb strings.Builder
	n.writeTo(&sb)
	return sb.String()
}

func (n Node) writeTo(sb *strings.Builder) {
	if n.Kind != KindFunction {
		sb.WriteString(n.Text)
		return
	}
	sb.WriteString(n.Text)
	sb.WriteByte('(')
	for _, c := range n.Nodes {
		c.writeTo(sb)
	}
	if n.Closed {
		sb.WriteByte(')')
	}
}

// Args splits function arguments on dividers. Spaces around every argument
// are dropped, spaces inside are kept.
func (n Node) Args() [][]Node {
	if n.Kind != KindFunction || len(n.Nodes) == 0 {
		return nil
	}
	var (
		args [][]Node
		cur  []Node
	)
	for _, c := range n.Nodes {
		if c.Kind == KindDiv {
			args = append(args, trimSpace(cur))
			cur = nil
			continue
		}
		cur = append(cur, c)
	}
	return append(args, trimSpace(cur))
}

func trimSpace(nodes []Node) []Node {
	for len(nodes) > 0 && nodes[0].Kind == KindSpace {
		nodes = nodes[1:]
	}
	for len(nodes) > 0 && nodes[len(nodes)-1].Kind == KindSpace {
		nodes = nodes[:len(nodes)-1]
	}
	return nodes
}

// Value is a parsed declaration value. Values are never modified in place,
// use Replace to get an updated copy.
type Value []Node

// String returns CSS text of the value. For unmodified values it is exactly
// the text value was parsed from.
func (v Value) String() string {
	var sb strings.Builder
	for _, n := range v {
		n.writeTo(&sb)
	}
	return sb.String()
}

// Replace returns copy of the value with node at index i replaced.
func (v Value) Replace(i int, n Node) Value {
	out := make(Value, len(v))
	copy(out, v)
	out[i] = n
	return out
}

// Declaration is a single property declaration found in stylesheet.
type Declaration struct {
	Property  string   // property name as written
	Value     string   // value text without surrounding whitespace
	Selectors []string // selectors of the enclosing rule, empty for at-rule blocks
	Line      int      // 1-based line where declaration starts
}

// HasSelector returns true if any of the selectors is one of enclosing rule
// selectors.
func (d Declaration) HasSelector(selectors []string) bool {
	for _, s := range selectors {
		for _, own := range d.Selectors {
			if s == own {
				return true
			}
		}
	}
	return false
}

// segment is either raw stylesheet text or reference to a declaration value.
type segment struct {
	raw  string
	decl int
}

// Sheet is a stylesheet split into raw text and declaration values. Only
// declaration values may be changed, everything else is written back
// exactly as it was read.
type Sheet struct {
	Declarations []Declaration
	segments     []segment
}

// SetValue replaces value of the i-th declaration.
func (s *Sheet) SetValue(i int, value string) {
	s.Declarations[i].Value = value
}

// WriteTo writes the stylesheet to w, implementing io.WriterTo.
func (s *Sheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, seg := range s.segments {
		text := seg.raw
		if seg.decl >= 0 {
			text = s.Declarations[seg.decl].Value
		}
		n, err := io.WriteString(w, text)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Sheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// Bytes returns the CSS text of the stylesheet.
func (s *Sheet) Bytes() []byte {
	return []byte(s.String())
}

// URLOf returns reference from url() token text: url("a.png"), url('a.png')
// and url(a.png) all give a.png.
func URLOf(text string) string {
	s := strings.TrimSpace(text)
	if len(s) >= 4 && strings.EqualFold(s[:4], "url(") {
		s = s[4:]
	}
	s = strings.TrimSuffix(s, ")")
	return Unquote(s)
}

// Unquote removes surrounding quotes from a string.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
