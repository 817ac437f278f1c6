package query

import "strconv"

// Query is a parsed, reusable expression. Parsing is eager; evaluation is
// lazy. A Query is immutable and safe for concurrent Run calls.
type Query struct {
	expr string
	root node
}

// Source returns the original expression text.
func (q *Query) Source() string { return q.expr }

// Parse compiles an expression. All syntax problems are reported here, before
// any evaluation happens.
func Parse(expr string) (*Query, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{expr: expr, toks: toks}
	root, perr := p.parsePipe()
	if perr != nil {
		return nil, perr
	}
	if p.peek().kind != tokEOF {
		return nil, errf(ParseError, expr, p.peek().pos, "unexpected %q", p.peek().text)
	}
	return &Query{expr: expr, root: root}, nil
}

type parser struct {
	expr string
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) (token, *EvalError) {
	t := p.next()
	if t.kind != k {
		return t, errf(ParseError, p.expr, t.pos, "expected %s, got %q", what, t.text)
	}
	return t, nil
}

// pipe := or ('|' or)*
func (p *parser) parsePipe() (node, *EvalError) {
	first, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	stages := []node{first}
	for p.peek().kind == tokPipe {
		p.next()
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		stages = append(stages, n)
	}
	if len(stages) == 1 {
		return stages[0], nil
	}
	return &pipeNode{stages: stages}, nil
}

// or := and ('or' and)*
func (p *parser) parseOr() (node, *EvalError) {
	lhs, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().text == "or" {
		pos := p.next().pos
		rhs, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		lhs = &binaryNode{op: "or", lhs: lhs, rhs: rhs, pos: pos}
	}
	return lhs, nil
}

// and := cmp ('and' cmp)*
func (p *parser) parseAnd() (node, *EvalError) {
	lhs, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().text == "and" {
		pos := p.next().pos
		rhs, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		lhs = &binaryNode{op: "and", lhs: lhs, rhs: rhs, pos: pos}
	}
	return lhs, nil
}

// cmp := postfix (op postfix)?
func (p *parser) parseCmp() (node, *EvalError) {
	lhs, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.peek().kind == tokOp {
		op := p.next()
		rhs, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		return &binaryNode{op: op.text, lhs: lhs, rhs: rhs, pos: op.pos}, nil
	}
	return lhs, nil
}

// postfix := primary suffix*
// Suffixes chain as pipeline stages: `.a.b[0]` is `.a | .b | .[0]`.
func (p *parser) parsePostfix() (node, *EvalError) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	stages := []node{base}
	for {
		suffix, ok, err := p.parseSuffix()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		stages = append(stages, suffix)
	}
	if len(stages) == 1 {
		return stages[0], nil
	}
	return &pipeNode{stages: stages}, nil
}

// parseSuffix recognizes `.ident`, `[n]`, `["key"]`, and `[]`, each with an
// optional trailing `?`.
func (p *parser) parseSuffix() (node, bool, *EvalError) {
	switch p.peek().kind {
	case tokDot:
		if p.toks[p.i+1].kind != tokIdent {
			return nil, false, nil
		}
		p.next()
		name := p.next()
		return &fieldNode{name: name.text, opt: p.eatQuestion(), pos: name.pos}, true, nil
	case tokLBracket:
		open := p.next()
		switch p.peek().kind {
		case tokRBracket:
			p.next()
			return &iterateNode{opt: p.eatQuestion(), pos: open.pos}, true, nil
		case tokNumber:
			numTok := p.next()
			n, convErr := strconv.Atoi(numTok.text)
			if convErr != nil {
				return nil, false, errf(ParseError, p.expr, numTok.pos, "bad index %q", numTok.text)
			}
			if _, err := p.expect(tokRBracket, "]"); err != nil {
				return nil, false, err
			}
			return &indexNode{i: n, opt: p.eatQuestion(), pos: numTok.pos}, true, nil
		case tokString:
			strTok := p.next()
			if _, err := p.expect(tokRBracket, "]"); err != nil {
				return nil, false, err
			}
			return &fieldNode{name: strTok.text, opt: p.eatQuestion(), pos: strTok.pos}, true, nil
		default:
			return nil, false, errf(ParseError, p.expr, p.peek().pos, "expected index, key or ] after [")
		}
	default:
		return nil, false, nil
	}
}

func (p *parser) eatQuestion() bool {
	if p.peek().kind == tokQuestion {
		p.next()
		return true
	}
	return false
}

func (p *parser) parsePrimary() (node, *EvalError) {
	t := p.peek()
	switch t.kind {
	case tokDot:
		// Bare `.` is identity; `.foo` is handled by the suffix loop.
		p.next()
		if p.peek().kind == tokIdent {
			name := p.next()
			return &fieldNode{name: name.text, opt: p.eatQuestion(), pos: name.pos}, nil
		}
		return &identityNode{}, nil
	case tokVar:
		p.next()
		return &varNode{name: t.text, pos: t.pos}, nil
	case tokString:
		p.next()
		return &literalNode{v: strValue(t.text)}, nil
	case tokNumber:
		p.next()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, errf(ParseError, p.expr, t.pos, "bad number %q", t.text)
		}
		return &literalNode{v: numValue(f)}, nil
	case tokLBracket:
		p.next()
		if p.peek().kind == tokRBracket {
			p.next()
			return &literalNode{v: emptySeq()}, nil
		}
		inner, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRBracket, "]"); err != nil {
			return nil, err
		}
		return &arrayNode{inner: inner}, nil
	case tokLBrace:
		return p.parseObject()
	case tokLParen:
		p.next()
		inner, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	case tokIdent:
		return p.parseIdent()
	default:
		return nil, errf(ParseError, p.expr, t.pos, "unexpected %q", t.text)
	}
}

func (p *parser) parseIdent() (node, *EvalError) {
	t := p.next()
	switch t.text {
	case "true":
		return &literalNode{v: boolValue(true)}, nil
	case "false":
		return &literalNode{v: boolValue(false)}, nil
	case "null":
		return &literalNode{v: nullValue()}, nil
	}
	var args []node
	if p.peek().kind == tokLParen {
		p.next()
		for {
			arg, err := p.parsePipe()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
	}
	return &callNode{name: t.text, args: args, pos: t.pos}, nil
}

// parseObject parses `{key: expr, "key": expr, shorthand}`.
func (p *parser) parseObject() (node, *EvalError) {
	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}
	obj := &objectNode{}
	if p.peek().kind == tokRBrace {
		p.next()
		return obj, nil
	}
	for {
		keyTok := p.next()
		if keyTok.kind != tokIdent && keyTok.kind != tokString {
			return nil, errf(ParseError, p.expr, keyTok.pos, "expected object key, got %q", keyTok.text)
		}
		var val node
		if p.peek().kind == tokColon {
			p.next()
			v, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			val = v
		} else {
			// {id} is shorthand for {id: .id}.
			val = &fieldNode{name: keyTok.text, pos: keyTok.pos}
		}
		obj.keys = append(obj.keys, keyTok.text)
		obj.vals = append(obj.vals, val)
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}
	if _, err := p.expect(tokRBrace, "}"); err != nil {
		return nil, err
	}
	return obj, nil
}
