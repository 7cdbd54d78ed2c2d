package parser

import (
	"fmt"
	"strings"

	"github.com/authz-engine/policy-core/internal/policy"
)

type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

// tokenize scans the whole input, skipping whitespace and // comments.
func tokenize(src string) ([]token, error) {
	l := &lexer{src: src, line: 1, col: 1}
	var tokens []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == tokenEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) errf(pos policy.Position, format string, args ...any) error {
	return &ParseError{Position: pos, Message: fmt.Sprintf(format, args...)}
}

func (l *lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *lexer) here() policy.Position {
	return policy.Position{Line: l.line, Column: l.col}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance()
			}
		default:
			return l.scan()
		}
	}
	return token{Kind: tokenEOF, Pos: l.here()}, nil
}

func (l *lexer) scan() (token, error) {
	pos := l.here()
	c := l.src[l.pos]
	switch {
	case c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		start := l.pos
		for l.pos < len(l.src) && isIdentByte(l.src[l.pos]) {
			l.advance()
		}
		text := l.src[start:l.pos]
		return token{Kind: tokenIdent, Text: text, Raw: text, Pos: pos}, nil

	case c >= '0' && c <= '9':
		start := l.pos
		for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
			l.advance()
		}
		text := l.src[start:l.pos]
		return token{Kind: tokenInt, Text: text, Raw: text, Pos: pos}, nil

	case c == '"':
		return l.scanString(pos)

	default:
		return l.scanPunct(pos)
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func (l *lexer) scanString(pos policy.Position) (token, error) {
	l.advance()
	var decoded strings.Builder
	var raw strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case '"':
			l.advance()
			return token{Kind: tokenString, Text: decoded.String(), Raw: raw.String(), Pos: pos}, nil
		case '\n':
			return token{}, l.errf(pos, "unterminated string literal")
		case '\\':
			raw.WriteByte(c)
			l.advance()
			if l.pos >= len(l.src) {
				return token{}, l.errf(pos, "unterminated string literal")
			}
			esc := l.src[l.pos]
			raw.WriteByte(esc)
			switch esc {
			case 'n':
				decoded.WriteByte('\n')
				l.advance()
			case 'r':
				decoded.WriteByte('\r')
				l.advance()
			case 't':
				decoded.WriteByte('\t')
				l.advance()
			case '0':
				decoded.WriteByte(0)
				l.advance()
			case '"', '\\', '\'', '*':
				decoded.WriteByte(esc)
				l.advance()
			case 'u':
				l.advance()
				r, rawHex, err := l.scanUnicodeEscape(pos)
				if err != nil {
					return token{}, err
				}
				raw.WriteString(rawHex)
				decoded.WriteRune(r)
			default:
				return token{}, l.errf(l.here(), "invalid escape `\\%c`", esc)
			}
		default:
			decoded.WriteByte(c)
			raw.WriteByte(c)
			l.advance()
		}
	}
	return token{}, l.errf(pos, "unterminated string literal")
}

// scanUnicodeEscape reads the {hex} remainder of a \u{...} escape.
func (l *lexer) scanUnicodeEscape(start policy.Position) (rune, string, error) {
	if l.pos >= len(l.src) || l.src[l.pos] != '{' {
		return 0, "", l.errf(l.here(), "invalid unicode escape, expected `{`")
	}
	l.advance()
	var hex strings.Builder
	for l.pos < len(l.src) && l.src[l.pos] != '}' {
		hex.WriteByte(l.src[l.pos])
		l.advance()
	}
	if l.pos >= len(l.src) {
		return 0, "", l.errf(start, "unterminated string literal")
	}
	l.advance()
	digits := hex.String()
	if len(digits) == 0 || len(digits) > 6 {
		return 0, "", l.errf(start, "invalid unicode escape `\\u{%s}`", digits)
	}
	var r rune
	for _, d := range digits {
		var v rune
		switch {
		case d >= '0' && d <= '9':
			v = d - '0'
		case d >= 'a' && d <= 'f':
			v = d - 'a' + 10
		case d >= 'A' && d <= 'F':
			v = d - 'A' + 10
		default:
			return 0, "", l.errf(start, "invalid unicode escape `\\u{%s}`", digits)
		}
		r = r<<4 | v
	}
	return r, "{" + digits + "}", nil
}

// punctuation, longest first so :: and == win over : and =.
var puncts = []string{
	"::", "==", "!=", "<=", ">=", "&&", "||",
	"(", ")", "[", "]", "{", "}", ".", ",", ";", ":",
	"<", ">", "+", "-", "*", "/", "%", "!", "@", "=",
}

func (l *lexer) scanPunct(pos policy.Position) (token, error) {
	rest := l.src[l.pos:]
	for _, p := range puncts {
		if strings.HasPrefix(rest, p) {
			for range p {
				l.advance()
			}
			return token{Kind: tokenPunct, Text: p, Raw: p, Pos: pos}, nil
		}
	}
	return token{}, l.errf(pos, "unexpected token `%c`", l.src[l.pos])
}
