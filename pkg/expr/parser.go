package expr

import (
	"fmt"
	"strconv"
)

// parser is a recursive-descent parser over the pre-lexed token slice.
// The grammar is the Python expression subset described in the package
// documentation; each method parses one precedence level.
type parser struct {
	toks []token
	pos  int
}

func parseSource(src string) (node, error) {
	lx := &lexer{src: src}
	var toks []token
	for {
		t, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.kind == tokEOF {
			break
		}
	}

	p := &parser{toks: toks}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.cur(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %s", t)
	}
	return n, nil
}

func (p *parser) cur() token { return p.toks[p.pos] }
func (p *parser) advance()   { p.pos++ }

func (p *parser) accept(kind tokenKind) (token, bool) {
	if t := p.cur(); t.kind == kind {
		p.advance()
		return t, true
	}
	return token{}, false
}

func (p *parser) acceptKeyword(word string) bool {
	if t := p.cur(); t.kind == tokKeyword && t.text == word {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.cur()
	if t.kind != kind {
		return token{}, p.errorf(t, "expected %s, found %s", what, t)
	}
	p.advance()
	return t, nil
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &Error{Offset: t.pos, Construct: t.text, Reason: fmt.Sprintf(format, args...)}
}

// parseExpr parses a full expression including the conditional form
// `body if test else orelse`.
func (p *parser) parseExpr() (node, error) {
	body, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.cur(); t.kind == tokKeyword && t.text == "if" {
		p.advance()
		test, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.acceptKeyword("else") {
			return nil, p.errorf(p.cur(), "expected 'else' in conditional expression, found %s", p.cur())
		}
		orelse, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &condNode{pos: body.offset(), test: test, body: body, orelse: orelse}, nil
	}
	return body, nil
}

func (p *parser) parseOr() (node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	values := []node{first}
	for {
		if t := p.cur(); t.kind == tokKeyword && t.text == "or" {
			p.advance()
			next, err := p.parseAnd()
			if err != nil {
				return nil, err
			}
			values = append(values, next)
			continue
		}
		break
	}
	if len(values) == 1 {
		return first, nil
	}
	return &boolNode{pos: first.offset(), op: "or", values: values}, nil
}

func (p *parser) parseAnd() (node, error) {
	first, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	values := []node{first}
	for {
		if t := p.cur(); t.kind == tokKeyword && t.text == "and" {
			p.advance()
			next, err := p.parseNot()
			if err != nil {
				return nil, err
			}
			values = append(values, next)
			continue
		}
		break
	}
	if len(values) == 1 {
		return first, nil
	}
	return &boolNode{pos: first.offset(), op: "and", values: values}, nil
}

func (p *parser) parseNot() (node, error) {
	if t := p.cur(); t.kind == tokKeyword && t.text == "not" {
		// Reject "not in" appearing without a left operand up front; the
		// comparison level handles the infix form.
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &unaryNode{pos: t.pos, op: "not", operand: operand}, nil
	}
	return p.parseComparison()
}

var compareTokens = map[tokenKind]string{
	tokEq: "==", tokNe: "!=", tokLt: "<", tokLe: "<=", tokGt: ">", tokGe: ">=",
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}

	var ops []string
	var operands []node
	for {
		t := p.cur()
		var op string
		switch {
		case compareTokens[t.kind] != "":
			op = compareTokens[t.kind]
			p.advance()
		case t.kind == tokKeyword && t.text == "in":
			op = "in"
			p.advance()
		case t.kind == tokKeyword && t.text == "not" && p.toks[p.pos+1].kind == tokKeyword && p.toks[p.pos+1].text == "in":
			op = "not in"
			p.advance()
			p.advance()
		default:
			if len(ops) == 0 {
				return left, nil
			}
			return &compareNode{pos: left.offset(), left: left, ops: ops, operands: operands}, nil
		}
		right, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		operands = append(operands, right)
	}
}

func (p *parser) parseBitOr() (node, error) {
	return p.parseBinaryLevel(map[tokenKind]string{tokPipe: "|"}, p.parseBitXor)
}

func (p *parser) parseBitXor() (node, error) {
	return p.parseBinaryLevel(map[tokenKind]string{tokCaret: "^"}, p.parseBitAnd)
}

func (p *parser) parseBitAnd() (node, error) {
	return p.parseBinaryLevel(map[tokenKind]string{tokAmp: "&"}, p.parseShift)
}

func (p *parser) parseShift() (node, error) {
	return p.parseBinaryLevel(map[tokenKind]string{tokShl: "<<", tokShr: ">>"}, p.parseArith)
}

func (p *parser) parseArith() (node, error) {
	return p.parseBinaryLevel(map[tokenKind]string{tokPlus: "+", tokMinus: "-"}, p.parseTerm)
}

func (p *parser) parseTerm() (node, error) {
	return p.parseBinaryLevel(map[tokenKind]string{
		tokStar: "*", tokSlash: "/", tokSlash2: "//", tokPercent: "%",
	}, p.parseFactor)
}

func (p *parser) parseBinaryLevel(ops map[tokenKind]string, next func() (node, error)) (node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := ops[p.cur().kind]
		if !ok {
			return left, nil
		}
		pos := p.cur().pos
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{pos: pos, op: op, left: left, right: right}
	}
}

func (p *parser) parseFactor() (node, error) {
	t := p.cur()
	switch t.kind {
	case tokMinus, tokPlus, tokTilde:
		p.advance()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &unaryNode{pos: t.pos, op: t.text, operand: operand}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (node, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if t, ok := p.accept(tokStarStar); ok {
		// Exponent binds through unary, so 2**-1 parses.
		exp, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &binaryNode{pos: t.pos, op: "**", left: base, right: exp}, nil
	}
	return base, nil
}

func (p *parser) parsePostfix() (node, error) {
	value, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch t := p.cur(); t.kind {
		case tokLParen:
			p.advance()
			args, err := p.parseExprList(tokRParen)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRParen, "')'"); err != nil {
				return nil, err
			}
			value = &callNode{pos: t.pos, fn: value, args: args}
		case tokLBracket:
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket, "']'"); err != nil {
				return nil, err
			}
			value = &indexNode{pos: t.pos, value: value, index: idx}
		case tokDot:
			p.advance()
			name := p.cur()
			if name.kind != tokName {
				return nil, p.errorf(name, "expected attribute name after '.', found %s", name)
			}
			p.advance()
			value = &attrNode{pos: t.pos, value: value, attr: name.text}
		default:
			return value, nil
		}
	}
}

// parseExprList parses a comma-separated expression list up to (not
// including) the closing token, tolerating one trailing comma.
func (p *parser) parseExprList(closing tokenKind) ([]node, error) {
	var items []node
	for {
		if p.cur().kind == closing {
			return items, nil
		}
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if _, ok := p.accept(tokComma); !ok {
			return items, nil
		}
	}
}

func (p *parser) parseAtom() (node, error) {
	t := p.cur()
	switch t.kind {
	case tokInt:
		p.advance()
		v, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			// Out-of-range integer literals degrade to float, like a very
			// large Python literal would still evaluate.
			f, ferr := strconv.ParseFloat(t.text, 64)
			if ferr != nil {
				return nil, p.errorf(t, "invalid number literal")
			}
			return &literalNode{pos: t.pos, value: f}, nil
		}
		return &literalNode{pos: t.pos, value: v}, nil

	case tokFloat:
		p.advance()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf(t, "invalid number literal")
		}
		return &literalNode{pos: t.pos, value: f}, nil

	case tokString:
		p.advance()
		return &literalNode{pos: t.pos, value: t.text}, nil

	case tokName:
		p.advance()
		return &nameNode{pos: t.pos, name: t.text}, nil

	case tokKeyword:
		switch t.text {
		case "True":
			p.advance()
			return &literalNode{pos: t.pos, value: true}, nil
		case "False":
			p.advance()
			return &literalNode{pos: t.pos, value: false}, nil
		case "None":
			p.advance()
			return &literalNode{pos: t.pos, value: nil}, nil
		}
		return nil, p.errorf(t, "unexpected keyword %s", t)

	case tokLParen:
		p.advance()
		if _, ok := p.accept(tokRParen); ok {
			return &tupleNode{pos: t.pos}, nil
		}
		first, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, ok := p.accept(tokComma); ok {
			rest, err := p.parseExprList(tokRParen)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRParen, "')'"); err != nil {
				return nil, err
			}
			return &tupleNode{pos: t.pos, items: append([]node{first}, rest...)}, nil
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return first, nil

	case tokLBracket:
		p.advance()
		items, err := p.parseExprList(tokRBracket)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRBracket, "']'"); err != nil {
			return nil, err
		}
		return &listNode{pos: t.pos, items: items}, nil

	case tokLBrace:
		return p.parseBraced()

	default:
		return nil, p.errorf(t, "unexpected %s", t)
	}
}

// parseBraced parses either a dict display {k: v, ...} or a set display
// {v, ...}. An empty {} is a dict, as in Python.
func (p *parser) parseBraced() (node, error) {
	open := p.cur()
	p.advance()
	if _, ok := p.accept(tokRBrace); ok {
		return &dictNode{pos: open.pos}, nil
	}

	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if _, ok := p.accept(tokColon); ok {
		// Dict display.
		keys := []node{first}
		var values []node
		firstValue, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		values = append(values, firstValue)
		for {
			if _, ok := p.accept(tokComma); !ok {
				break
			}
			if p.cur().kind == tokRBrace {
				break
			}
			k, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokColon, "':'"); err != nil {
				return nil, err
			}
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			keys = append(keys, k)
			values = append(values, v)
		}
		if _, err := p.expect(tokRBrace, "'}'"); err != nil {
			return nil, err
		}
		return &dictNode{pos: open.pos, keys: keys, values: values}, nil
	}

	// Set display.
	items := []node{first}
	for {
		if _, ok := p.accept(tokComma); !ok {
			break
		}
		if p.cur().kind == tokRBrace {
			break
		}
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if _, err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return &setNode{pos: open.pos, items: items}, nil
}
