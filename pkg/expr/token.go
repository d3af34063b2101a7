package expr

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokInt
	tokFloat
	tokString
	tokName
	tokKeyword // and, or, not, in, if, else, True, False, None

	tokPlus     // +
	tokMinus    // -
	tokStar     // *
	tokStarStar // **
	tokSlash    // /
	tokSlash2   // //
	tokPercent  // %
	tokTilde    // ~
	tokAmp      // &
	tokPipe     // |
	tokCaret    // ^
	tokShl      // <<
	tokShr      // >>

	tokEq  // ==
	tokNe  // !=
	tokLt  // <
	tokLe  // <=
	tokGt  // >
	tokGe  // >=

	tokLParen   // (
	tokRParen   // )
	tokLBracket // [
	tokRBracket // ]
	tokLBrace   // {
	tokRBrace   // }
	tokComma    // ,
	tokColon    // :
	tokDot      // .
)

var keywords = map[string]bool{
	"and":   true,
	"or":    true,
	"not":   true,
	"in":    true,
	"if":    true,
	"else":  true,
	"True":  true,
	"False": true,
	"None":  true,
}

type token struct {
	kind tokenKind
	text string // raw text for names/keywords/operators; decoded value for strings
	pos  int    // byte offset of the first character
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of expression"
	case tokString:
		return fmt.Sprintf("string %q", t.text)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// lexer turns an expression source string into a token stream. It is
// deliberately small: decimal numbers, quoted strings with a fixed escape
// set, names, keywords and the operator table above. Anything else is a
// syntax error.
type lexer struct {
	src string
	pos int
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool { return isNameStart(c) || isDigit(c) }

func (l *lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\r', '\n':
			l.pos++
		default:
			return
		}
	}
}

// next returns the next token or an *Error at the offending offset.
func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	c := l.src[l.pos]
	switch {
	case isDigit(c) || (c == '.' && isDigit(l.peekAt(1))):
		return l.lexNumber()
	case c == '\'' || c == '"':
		return l.lexString()
	case isNameStart(c):
		for l.pos < len(l.src) && isNameChar(l.src[l.pos]) {
			l.pos++
		}
		text := l.src[start:l.pos]
		if keywords[text] {
			return token{kind: tokKeyword, text: text, pos: start}, nil
		}
		return token{kind: tokName, text: text, pos: start}, nil
	}

	two := ""
	if l.pos+1 < len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}
	switch two {
	case "**":
		l.pos += 2
		return token{kind: tokStarStar, text: two, pos: start}, nil
	case "//":
		l.pos += 2
		return token{kind: tokSlash2, text: two, pos: start}, nil
	case "<<":
		l.pos += 2
		return token{kind: tokShl, text: two, pos: start}, nil
	case ">>":
		l.pos += 2
		return token{kind: tokShr, text: two, pos: start}, nil
	case "==":
		l.pos += 2
		return token{kind: tokEq, text: two, pos: start}, nil
	case "!=":
		l.pos += 2
		return token{kind: tokNe, text: two, pos: start}, nil
	case "<=":
		l.pos += 2
		return token{kind: tokLe, text: two, pos: start}, nil
	case ">=":
		l.pos += 2
		return token{kind: tokGe, text: two, pos: start}, nil
	}

	single := map[byte]tokenKind{
		'+': tokPlus, '-': tokMinus, '*': tokStar, '/': tokSlash,
		'%': tokPercent, '~': tokTilde, '&': tokAmp, '|': tokPipe,
		'^': tokCaret, '<': tokLt, '>': tokGt,
		'(': tokLParen, ')': tokRParen, '[': tokLBracket, ']': tokRBracket,
		'{': tokLBrace, '}': tokRBrace, ',': tokComma, ':': tokColon,
		'.': tokDot,
	}
	if kind, ok := single[c]; ok {
		l.pos++
		return token{kind: kind, text: string(c), pos: start}, nil
	}

	return token{}, &Error{Offset: start, Construct: string(c), Reason: "unexpected character"}
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	isFloat := false

	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.peek() == '.' {
		isFloat = true
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if c := l.peek(); c == 'e' || c == 'E' {
		mark := l.pos
		l.pos++
		if c := l.peek(); c == '+' || c == '-' {
			l.pos++
		}
		if !isDigit(l.peek()) {
			// "1e" with no exponent digits: the 'e' was not part of the number.
			l.pos = mark
		} else {
			isFloat = true
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.pos++
			}
		}
	}

	text := l.src[start:l.pos]
	if isFloat {
		return token{kind: tokFloat, text: text, pos: start}, nil
	}
	return token{kind: tokInt, text: text, pos: start}, nil
}

func (l *lexer) lexString() (token, error) {
	start := l.pos
	quote := l.src[l.pos]
	l.pos++

	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case quote:
			l.pos++
			return token{kind: tokString, text: b.String(), pos: start}, nil
		case '\\':
			l.pos++
			if l.pos >= len(l.src) {
				return token{}, &Error{Offset: start, Construct: "string literal", Reason: "unterminated string"}
			}
			esc := l.src[l.pos]
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '\'', '"':
				b.WriteByte(esc)
			default:
				return token{}, &Error{
					Offset:    l.pos - 1,
					Construct: "\\" + string(esc),
					Reason:    "unsupported escape sequence",
				}
			}
			l.pos++
		case '\n':
			return token{}, &Error{Offset: start, Construct: "string literal", Reason: "unterminated string"}
		default:
			b.WriteByte(c)
			l.pos++
		}
	}
	return token{}, &Error{Offset: start, Construct: "string literal", Reason: "unterminated string"}
}
