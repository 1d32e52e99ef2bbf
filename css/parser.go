package css

import (
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser splits stylesheets into declarations keeping all original text.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

type token struct {
	tt   css.TokenType
	text string
}

// frame is an open {} block.
type frame struct {
	selectors []string
	decls     bool // block may contain declarations
}

type scanner struct {
	sheet *Sheet
	stack []frame
	stmt  []token
	depth int // () and [] nesting inside current statement
	line  int
	first int // line of the first significant token of current statement
	begun bool
	raw   strings.Builder
}

// Parse splits CSS text into a Sheet. The optional source parameter
// identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) (*Sheet, error) {
	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	s := &scanner{sheet: &Sheet{}, line: 1}
	l := css.NewLexer(parse.NewInputBytes(data))
	for {
		tt, text := l.Next()
		if tt == css.ErrorToken {
			if err := l.Err(); err != nil && err != io.EOF {
				return nil, fmt.Errorf("unable to tokenize stylesheet at line %d: %w", s.line, err)
			}
			break
		}
		s.next(token{tt: tt, text: string(text)})
	}
	// unterminated last statement
	s.endStatement()
	s.flush()

	if len(s.stack) > 0 {
		p.log.Debug("Stylesheet has unclosed blocks", zap.Int("count", len(s.stack)))
	}
	p.log.Debug("Parsed CSS", zap.Int("declarations", len(s.sheet.Declarations)))
	return s.sheet, nil
}

// ParseSheet is a shortcut for parsing without logging.
func ParseSheet(data []byte) (*Sheet, error) {
	return NewParser(nil).Parse(data)
}

func (s *scanner) next(t token) {
	if s.depth == 0 {
		switch t.tt {
		case css.LeftBraceToken:
			s.beginBlock()
			s.emit(t)
			return
		case css.SemicolonToken:
			s.endStatement()
			s.emit(t)
			return
		case css.RightBraceToken:
			s.endStatement()
			s.emit(t)
			if len(s.stack) > 0 {
				s.stack = s.stack[:len(s.stack)-1]
			}
			return
		}
	}

	switch t.tt {
	case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
		s.depth++
	case css.RightParenthesisToken, css.RightBracketToken:
		if s.depth > 0 {
			s.depth--
		}
	}
	if !s.begun && !insignificant(t.tt) {
		s.first, s.begun = s.line, true
	}
	s.stmt = append(s.stmt, t)
	s.line += strings.Count(t.text, "\n")
}

// emit writes token which is not part of any statement.
func (s *scanner) emit(t token) {
	s.raw.WriteString(t.text)
	s.line += strings.Count(t.text, "\n")
}

// beginBlock treats collected statement as rule prelude.
func (s *scanner) beginBlock() {
	prelude := s.stmt
	s.writeRaw(prelude)
	s.resetStatement()

	f := frame{decls: true}
	sig := significant(prelude)
	if len(sig) > 0 && sig[0].tt == css.AtKeywordToken {
		// @media, @supports and friends contain rules, @font-face and @page
		// contain declarations
		switch strings.ToLower(sig[0].text) {
		case "@font-face", "@page", "@font-palette-values", "@counter-style", "@property", "@viewport":
		default:
			f.decls = false
		}
	} else {
		f.selectors = splitSelectors(prelude)
	}
	s.stack = append(s.stack, f)
}

// endStatement handles statement terminated by ';', '}' or end of input.
func (s *scanner) endStatement() {
	defer s.resetStatement()

	if len(s.stack) == 0 || !s.stack[len(s.stack)-1].decls {
		s.writeRaw(s.stmt)
		return
	}

	colon := declarationColon(s.stmt)
	if colon < 0 {
		s.writeRaw(s.stmt)
		return
	}

	var property string
	for _, t := range s.stmt[:colon] {
		if !insignificant(t.tt) {
			property = t.text
			break
		}
	}

	value := s.stmt[colon+1:]
	lead := 0
	for lead < len(value) && value[lead].tt == css.WhitespaceToken {
		lead++
	}
	trail := len(value)
	for trail > lead && value[trail-1].tt == css.WhitespaceToken {
		trail--
	}

	s.writeRaw(s.stmt[:colon+1+lead])
	s.flush()

	var sb strings.Builder
	for _, t := range value[lead:trail] {
		sb.WriteString(t.text)
	}
	idx := len(s.sheet.Declarations)
	s.sheet.Declarations = append(s.sheet.Declarations, Declaration{
		Property:  property,
		Value:     sb.String(),
		Selectors: s.stack[len(s.stack)-1].selectors,
		Line:      s.first,
	})
	s.sheet.segments = append(s.sheet.segments, segment{decl: idx})

	s.writeRaw(value[trail:])
}

func (s *scanner) resetStatement() {
	s.stmt = s.stmt[:0]
	s.depth = 0
	s.begun = false
}

func (s *scanner) writeRaw(tokens []token) {
	for _, t := range tokens {
		s.raw.WriteString(t.text)
	}
}

// flush moves accumulated raw text into a segment.
func (s *scanner) flush() {
	if s.raw.Len() == 0 {
		return
	}
	s.sheet.segments = append(s.sheet.segments, segment{raw: s.raw.String(), decl: -1})
	s.raw.Reset()
}

// declarationColon returns index of the colon separating property name from
// value or -1 if statement is not a declaration.
func declarationColon(stmt []token) int {
	i := 0
	for i < len(stmt) && insignificant(stmt[i].tt) {
		i++
	}
	if i == len(stmt) || stmt[i].tt != css.IdentToken {
		return -1
	}
	for i++; i < len(stmt) && insignificant(stmt[i].tt); i++ {
	}
	if i == len(stmt) || stmt[i].tt != css.ColonToken {
		return -1
	}
	return i
}

// splitSelectors splits rule prelude on top level commas. Comments are
// dropped and whitespace is collapsed so selectors could be compared as
// strings.
func splitSelectors(prelude []token) []string {
	var (
		selectors []string
		sb        strings.Builder
		depth     int
	)
	add := func() {
		if s := strings.Join(strings.Fields(sb.String()), " "); s != "" {
			selectors = append(selectors, s)
		}
		sb.Reset()
	}
	for _, t := range prelude {
		switch t.tt {
		case css.CommentToken:
			sb.WriteByte(' ')
			continue
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.CommaToken:
			if depth == 0 {
				add()
				continue
			}
		}
		sb.WriteString(t.text)
	}
	add()
	return selectors
}

func insignificant(tt css.TokenType) bool {
	return tt == css.WhitespaceToken || tt == css.CommentToken
}

func significant(tokens []token) []token {
	var out []token
	for _, t := range tokens {
		if !insignificant(t.tt) {
			out = append(out, t)
		}
	}
	return out
}

// ParseValue builds value tree from declaration value text. Parsing never
// fails: anything lexer does not recognize becomes a word.
func ParseValue(text string) Value {
	l := css.NewLexer(parse.NewInputBytes([]byte(text)))
	nodes, _ := parseNodes(l, false)
	return nodes
}

// parseNodes collects nodes until end of input or, when nested, until
// closing parenthesis. Returns true if closing parenthesis was found.
func parseNodes(l *css.Lexer, nested bool) (Value, bool) {
	var nodes Value
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			return nodes, false
		case css.FunctionToken, css.LeftParenthesisToken:
			args, closed := parseNodes(l, true)
			nodes = append(nodes, Node{
				Kind:   KindFunction,
				Token:  tt,
				Text:   strings.TrimSuffix(string(data), "("),
				Nodes:  args,
				Closed: closed,
			})
		case css.RightParenthesisToken:
			if nested {
				return nodes, true
			}
			nodes = append(nodes, Node{Kind: KindWord, Token: tt, Text: string(data)})
		case css.WhitespaceToken, css.CommentToken:
			nodes = append(nodes, Node{Kind: KindSpace, Token: tt, Text: string(data)})
		case css.CommaToken:
			nodes = append(nodes, Node{Kind: KindDiv, Token: tt, Text: string(data)})
		default:
			nodes = append(nodes, Node{Kind: KindWord, Token: tt, Text: string(data)})
		}
	}
}
