package query

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokDot
	tokLBracket
	tokRBracket
	tokLBrace
	tokRBrace
	tokLParen
	tokRParen
	tokPipe
	tokComma
	tokColon
	tokQuestion
	tokIdent  // foo
	tokVar    // $foo
	tokString // "foo"
	tokNumber // 12, -3.5
	tokOp     // == != < <= > >=
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex scans the whole expression up front. The language is small enough that
// a token slice beats a streaming lexer for simplicity.
func lex(expr string) ([]token, *EvalError) {
	var toks []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '.':
			toks = append(toks, token{tokDot, ".", i})
			i++
		case c == '[':
			toks = append(toks, token{tokLBracket, "[", i})
			i++
		case c == ']':
			toks = append(toks, token{tokRBracket, "]", i})
			i++
		case c == '{':
			toks = append(toks, token{tokLBrace, "{", i})
			i++
		case c == '}':
			toks = append(toks, token{tokRBrace, "}", i})
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == '|':
			toks = append(toks, token{tokPipe, "|", i})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ",", i})
			i++
		case c == ':':
			toks = append(toks, token{tokColon, ":", i})
			i++
		case c == '?':
			toks = append(toks, token{tokQuestion, "?", i})
			i++
		case c == '=' || c == '!':
			if i+1 < len(expr) && expr[i+1] == '=' {
				toks = append(toks, token{tokOp, expr[i : i+2], i})
				i += 2
			} else {
				return nil, errf(ParseError, expr, i, "unexpected %q", string(c))
			}
		case c == '<' || c == '>':
			if i+1 < len(expr) && expr[i+1] == '=' {
				toks = append(toks, token{tokOp, expr[i : i+2], i})
				i += 2
			} else {
				toks = append(toks, token{tokOp, expr[i : i+1], i})
				i++
			}
		case c == '"':
			s, n, err := lexString(expr, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tokString, s, i})
			i = n
		case c == '$':
			start := i
			i++
			j := i
			for j < len(expr) && isIdentByte(expr[j]) {
				j++
			}
			if j == i {
				return nil, errf(ParseError, expr, start, "expected variable name after $")
			}
			toks = append(toks, token{tokVar, expr[i:j], start})
			i = j
		case c >= '0' && c <= '9' || (c == '-' && i+1 < len(expr) && expr[i+1] >= '0' && expr[i+1] <= '9'):
			start := i
			if c == '-' {
				i++
			}
			for i < len(expr) && (expr[i] >= '0' && expr[i] <= '9' || expr[i] == '.') {
				i++
			}
			toks = append(toks, token{tokNumber, expr[start:i], start})
		case isIdentStartByte(c):
			start := i
			for i < len(expr) && isIdentByte(expr[i]) {
				i++
			}
			toks = append(toks, token{tokIdent, expr[start:i], start})
		default:
			return nil, errf(ParseError, expr, i, "unexpected %q", string(c))
		}
	}
	toks = append(toks, token{tokEOF, "", len(expr)})
	return toks, nil
}

// lexString scans a double-quoted string starting at expr[start] and returns
// the unescaped content plus the index past the closing quote.
func lexString(expr string, start int) (string, int, *EvalError) {
	var b strings.Builder
	i := start + 1
	for i < len(expr) {
		switch expr[i] {
		case '"':
			return b.String(), i + 1, nil
		case '\\':
			if i+1 >= len(expr) {
				return "", 0, errf(ParseError, expr, i, "dangling escape")
			}
			switch expr[i+1] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"', '\\', '/':
				b.WriteByte(expr[i+1])
			default:
				return "", 0, errf(ParseError, expr, i, "unsupported escape \\%s", string(expr[i+1]))
			}
			i += 2
		default:
			b.WriteByte(expr[i])
			i++
		}
	}
	return "", 0, errf(ParseError, expr, start, "unterminated string")
}

func isIdentStartByte(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c))
}

func isIdentByte(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c)) || c >= '0' && c <= '9'
}
