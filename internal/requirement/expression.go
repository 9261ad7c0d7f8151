// Package requirement parses and evaluates the expressions that decide which
// viewers may see a command or branch, for example
//
//	op_level >= 2 AND gamemode in ["creative", "spectator"]
//	permissions contains "worldedit.use" OR NOT world == "lobby"
package requirement

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Expr is a parsed requirement.
type Expr interface {
	Eval(s Subject) (bool, error)
	String() string
}

// Subject supplies field values during evaluation.
type Subject interface {
	Resolve(path []string) (any, bool)
}

type logicalExpr struct {
	and         bool
	left, right Expr
}

func (e *logicalExpr) Eval(s Subject) (bool, error) {
	l, err := e.left.Eval(s)
	if err != nil {
		return false, err
	}
	if l != e.and {
		return l, nil
	}
	return e.right.Eval(s)
}

func (e *logicalExpr) String() string {
	op := "OR"
	if e.and {
		op = "AND"
	}
	return "(" + e.left.String() + " " + op + " " + e.right.String() + ")"
}

type notExpr struct{ inner Expr }

func (e *notExpr) Eval(s Subject) (bool, error) {
	v, err := e.inner.Eval(s)
	if err != nil {
		return false, err
	}
	return !v, nil
}

func (e *notExpr) String() string { return "NOT " + e.inner.String() }

type comparisonExpr struct {
	field []string
	op    Operator
	value any
	re    *regexp.Regexp
}

func (e *comparisonExpr) Eval(s Subject) (bool, error) {
	got, ok := s.Resolve(e.field)
	if !ok {
		return false, &MissingFieldError{Field: strings.Join(e.field, ".")}
	}
	return compare(e, got)
}

func (e *comparisonExpr) String() string {
	return fmt.Sprintf("%s %s %s", strings.Join(e.field, "."), e.op, formatValue(e.value))
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(x)
	}
}

// MissingFieldError reports a field the subject does not define.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("requirement: field %q not set", e.Field)
}

// ---------------------------------------------------------------------------
// Tokenizer
// ---------------------------------------------------------------------------

type tokenKind int

const (
	tokWord tokenKind = iota
	tokOp
	tokString
	tokNumber
	tokBool
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
	tokEOF
)

type token struct {
	kind tokenKind
	val  string
	pos  int
}

var punctuation = map[byte]tokenKind{
	'(': tokLParen,
	')': tokRParen,
	'[': tokLBracket,
	']': tokRBracket,
	',': tokComma,
}

func tokenize(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		ch := src[i]
		switch {
		case unicode.IsSpace(rune(ch)):
			i++
		case ch == '(' || ch == ')' || ch == '[' || ch == ']' || ch == ',':
			tokens = append(tokens, token{punctuation[ch], string(ch), i})
			i++
		case ch == '=' || ch == '!' || ch == '<' || ch == '>':
			if i+1 < len(src) && src[i+1] == '=' {
				tokens = append(tokens, token{tokOp, src[i : i+2], i})
				i += 2
				continue
			}
			if ch == '=' || ch == '!' {
				return nil, fmt.Errorf("unexpected %q at position %d", ch, i)
			}
			tokens = append(tokens, token{tokOp, string(ch), i})
			i++
		case ch == '"' || ch == '\'':
			j := i + 1
			var sb strings.Builder
			for j < len(src) && src[j] != ch {
				if src[j] == '\\' && j+1 < len(src) {
					j++
				}
				sb.WriteByte(src[j])
				j++
			}
			if j >= len(src) {
				return nil, fmt.Errorf("unterminated string starting at position %d", i)
			}
			tokens = append(tokens, token{tokString, sb.String(), i})
			i = j + 1
		case unicode.IsDigit(rune(ch)) || (ch == '-' && i+1 < len(src) && unicode.IsDigit(rune(src[i+1]))):
			j := i + 1
			for j < len(src) && (unicode.IsDigit(rune(src[j])) || src[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, src[i:j], i})
			i = j
		case unicode.IsLetter(rune(ch)) || ch == '_':
			j := i
			for j < len(src) && (unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j])) || src[j] == '_' || src[j] == '.') {
				j++
			}
			word := src[i:j]
			if lw := strings.ToLower(word); lw == "true" || lw == "false" {
				tokens = append(tokens, token{tokBool, lw, i})
			} else {
				tokens = append(tokens, token{tokWord, word, i})
			}
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", ch, i)
		}
	}
	return append(tokens, token{tokEOF, "", len(src)}), nil
}

// ---------------------------------------------------------------------------
// Parser
// ---------------------------------------------------------------------------

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) keyword(kw string) bool {
	t := p.peek()
	if t.kind == tokWord && strings.EqualFold(t.val, kw) {
		p.pos++
		return true
	}
	return false
}

// Parse compiles src. Regular expressions used with "matches" are compiled
// here, so a parsed Expr never fails on syntax.
func Parse(src string) (Expr, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at position %d", t.val, t.pos)
	}
	return e, nil
}

// MustParse is Parse for expressions known to be valid. It panics on error.
func MustParse(src string) Expr {
	e, err := Parse(src)
	if err != nil {
		panic(fmt.Sprintf("requirement.MustParse(%q): %v", src, err))
	}
	return e
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &logicalExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.keyword("AND") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &logicalExpr{and: true, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.keyword("NOT") {
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &notExpr{inner: inner}, nil
	}
	if p.peek().kind == tokLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if t := p.next(); t.kind != tokRParen {
			return nil, fmt.Errorf("expected ) at position %d, got %q", t.pos, t.val)
		}
		return inner, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	t := p.next()
	if t.kind != tokWord {
		return nil, fmt.Errorf("expected field name at position %d, got %q", t.pos, t.val)
	}
	e := &comparisonExpr{field: strings.Split(t.val, ".")}

	op := p.next()
	switch {
	case op.kind == tokOp:
		e.op = Operator(op.val)
	case op.kind == tokWord && isWordOperator(op.val):
		e.op = Operator(strings.ToLower(op.val))
	default:
		return nil, fmt.Errorf("expected operator after %s at position %d, got %q", t.val, op.pos, op.val)
	}

	var err error
	if e.op == OpIn {
		e.value, err = p.parseList()
	} else {
		e.value, err = p.parseValue()
	}
	if err != nil {
		return nil, err
	}
	if e.op == OpMatches {
		pattern, ok := e.value.(string)
		if !ok {
			return nil, fmt.Errorf("matches needs a string pattern, got %v", e.value)
		}
		if e.re, err = regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("matches: %w", err)
		}
	}
	return e, nil
}

func (p *parser) parseList() ([]any, error) {
	if t := p.next(); t.kind != tokLBracket {
		return nil, fmt.Errorf("in needs a [list] at position %d, got %q", t.pos, t.val)
	}
	var out []any
	for p.peek().kind != tokRBracket {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if p.peek().kind == tokComma {
			p.next()
		}
	}
	p.next()
	return out, nil
}

func (p *parser) parseValue() (any, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return t.val, nil
	case tokBool:
		return t.val == "true", nil
	case tokNumber:
		f, err := strconv.ParseFloat(t.val, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q at position %d", t.val, t.pos)
		}
		return f, nil
	}
	return nil, fmt.Errorf("expected a value at position %d, got %q", t.pos, t.val)
}
