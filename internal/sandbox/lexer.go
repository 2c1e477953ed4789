package sandbox

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNewline
	tokIdent
	tokNumber
	tokString
	tokAssign // =
	tokEq     // ==
	tokNe     // !=
	tokLt     // <
	tokLe     // <=
	tokGt     // >
	tokGe     // >=
	tokAmp    // &
	tokPipe   // |
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokDot
	tokComma
	tokSemicolon
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex splits a snippet into tokens. Anything outside the tiny expression
// language (backticks, braces, colons, attribute names that are not known
// methods, and so on) fails here, before any evaluation happens.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	n := len(src)

	for i < n {
		c := src[i]
		switch {
		case c == '\n':
			toks = append(toks, token{tokNewline, "\n", i})
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == ';':
			toks = append(toks, token{tokSemicolon, ";", i})
			i++
		case c == '.':
			// A dot is either a method-call separator or part of a number;
			// numbers starting with '.' are handled in the digit branch only
			// when preceded by a digit, so ".5" is rejected deliberately.
			toks = append(toks, token{tokDot, ".", i})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ",", i})
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == '[':
			toks = append(toks, token{tokLBracket, "[", i})
			i++
		case c == ']':
			toks = append(toks, token{tokRBracket, "]", i})
			i++
		case c == '+':
			toks = append(toks, token{tokPlus, "+", i})
			i++
		case c == '-':
			toks = append(toks, token{tokMinus, "-", i})
			i++
		case c == '*':
			toks = append(toks, token{tokStar, "*", i})
			i++
		case c == '/':
			toks = append(toks, token{tokSlash, "/", i})
			i++
		case c == '&':
			toks = append(toks, token{tokAmp, "&", i})
			i++
		case c == '|':
			toks = append(toks, token{tokPipe, "|", i})
			i++
		case c == '=':
			if i+1 < n && src[i+1] == '=' {
				toks = append(toks, token{tokEq, "==", i})
				i += 2
			} else {
				toks = append(toks, token{tokAssign, "=", i})
				i++
			}
		case c == '!':
			if i+1 < n && src[i+1] == '=' {
				toks = append(toks, token{tokNe, "!=", i})
				i += 2
			} else {
				return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
			}
		case c == '<':
			if i+1 < n && src[i+1] == '=' {
				toks = append(toks, token{tokLe, "<=", i})
				i += 2
			} else {
				toks = append(toks, token{tokLt, "<", i})
				i++
			}
		case c == '>':
			if i+1 < n && src[i+1] == '=' {
				toks = append(toks, token{tokGe, ">=", i})
				i += 2
			} else {
				toks = append(toks, token{tokGt, ">", i})
				i++
			}
		case c == '\'' || c == '"':
			lit, next, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tokString, lit, i})
			i = next
		case c >= '0' && c <= '9':
			start := i
			for i < n && (src[i] >= '0' && src[i] <= '9') {
				i++
			}
			if i < n && src[i] == '.' && i+1 < n && src[i+1] >= '0' && src[i+1] <= '9' {
				i++
				for i < n && (src[i] >= '0' && src[i] <= '9') {
					i++
				}
			}
			toks = append(toks, token{tokNumber, src[start:i], start})
		case isIdentStart(rune(c)):
			start := i
			for i < n && isIdentPart(rune(src[i])) {
				i++
			}
			toks = append(toks, token{tokIdent, src[start:i], start})
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
		}
	}

	toks = append(toks, token{tokEOF, "", n})
	return toks, nil
}

func lexString(src string, start int) (lit string, next int, err error) {
	quote := src[start]
	i := start + 1
	var b strings.Builder
	for i < len(src) {
		c := src[i]
		if c == quote {
			return b.String(), i + 1, nil
		}
		if c == '\n' {
			break
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, fmt.Errorf("unterminated string literal at offset %d", start)
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
