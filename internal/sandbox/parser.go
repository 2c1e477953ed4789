package sandbox

import "fmt"

// AST node types. The language is a sequence of assignments; expressions are
// the usual precedence ladder with two postfix forms, indexing and method
// calls.
type (
	stmt struct {
		name string
		expr expr
	}

	expr interface{ isExpr() }

	numberLit struct{ text string }
	stringLit struct{ text string }
	identRef  struct{ name string }

	binaryExpr struct {
		op    tokenKind
		left  expr
		right expr
	}

	unaryNeg struct{ operand expr }

	indexExpr struct {
		recv  expr
		index expr
	}

	methodCall struct {
		recv expr
		name string
		args []expr
	}

	funcCall struct {
		name string
		args []expr
	}
)

func (numberLit) isExpr()  {}
func (stringLit) isExpr()  {}
func (identRef) isExpr()   {}
func (binaryExpr) isExpr() {}
func (unaryNeg) isExpr()   {}
func (indexExpr) isExpr()  {}
func (methodCall) isExpr() {}
func (funcCall) isExpr()   {}

// builtins are the only free functions callable in a snippet.
var builtins = map[string]bool{
	"abs":   true,
	"round": true,
	"len":   true,
}

// methods are the only attribute names a snippet may invoke.
var methods = map[string]bool{
	"sum":     true,
	"mean":    true,
	"count":   true,
	"min":     true,
	"max":     true,
	"abs":     true,
	"nunique": true,
	"groupby": true,
	"to_dict": true,
	"copy":    true,
	"head":    true,
}

type parser struct {
	toks []token
	pos  int
}

func parse(src string) ([]stmt, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.program()
}

func (p *parser) program() ([]stmt, error) {
	var stmts []stmt
	p.skipSeparators()
	for p.peek().kind != tokEOF {
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)

		if k := p.peek().kind; k != tokEOF && k != tokNewline && k != tokSemicolon {
			return nil, fmt.Errorf("unexpected %q after statement", p.peek().text)
		}
		p.skipSeparators()
	}
	if len(stmts) == 0 {
		return nil, fmt.Errorf("empty snippet")
	}
	return stmts, nil
}

func (p *parser) statement() (stmt, error) {
	name := p.peek()
	if name.kind != tokIdent {
		return stmt{}, fmt.Errorf("expected assignment, got %q", name.text)
	}
	if p.peekAt(1).kind != tokAssign {
		return stmt{}, fmt.Errorf("statement must be an assignment (name = expression)")
	}
	p.pos += 2

	e, err := p.orExpr()
	if err != nil {
		return stmt{}, err
	}
	return stmt{name: name.text, expr: e}, nil
}

func (p *parser) orExpr() (expr, error) {
	left, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokPipe {
		p.pos++
		right, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: tokPipe, left: left, right: right}
	}
	return left, nil
}

func (p *parser) andExpr() (expr, error) {
	left, err := p.cmpExpr()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAmp {
		p.pos++
		right, err := p.cmpExpr()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: tokAmp, left: left, right: right}
	}
	return left, nil
}

func (p *parser) cmpExpr() (expr, error) {
	left, err := p.addExpr()
	if err != nil {
		return nil, err
	}
	switch k := p.peek().kind; k {
	case tokEq, tokNe, tokLt, tokLe, tokGt, tokGe:
		p.pos++
		right, err := p.addExpr()
		if err != nil {
			return nil, err
		}
		return binaryExpr{op: k, left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) addExpr() (expr, error) {
	left, err := p.mulExpr()
	if err != nil {
		return nil, err
	}
	for {
		k := p.peek().kind
		if k != tokPlus && k != tokMinus {
			return left, nil
		}
		p.pos++
		right, err := p.mulExpr()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: k, left: left, right: right}
	}
}

func (p *parser) mulExpr() (expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		k := p.peek().kind
		if k != tokStar && k != tokSlash {
			return left, nil
		}
		p.pos++
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: k, left: left, right: right}
	}
}

func (p *parser) unary() (expr, error) {
	if p.peek().kind == tokMinus {
		p.pos++
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return unaryNeg{operand: operand}, nil
	}
	return p.postfix()
}

func (p *parser) postfix() (expr, error) {
	e, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokLBracket:
			p.pos++
			index, err := p.orExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(tokRBracket, "]"); err != nil {
				return nil, err
			}
			e = indexExpr{recv: e, index: index}
		case tokDot:
			p.pos++
			name := p.peek()
			if name.kind != tokIdent {
				return nil, fmt.Errorf("expected method name after '.'")
			}
			if !methods[name.text] {
				return nil, fmt.Errorf("unknown method %q", name.text)
			}
			p.pos++
			if err := p.expect(tokLParen, "("); err != nil {
				return nil, err
			}
			args, err := p.argList()
			if err != nil {
				return nil, err
			}
			e = methodCall{recv: e, name: name.text, args: args}
		default:
			return e, nil
		}
	}
}

func (p *parser) primary() (expr, error) {
	tok := p.peek()
	switch tok.kind {
	case tokNumber:
		p.pos++
		return numberLit{text: tok.text}, nil
	case tokString:
		p.pos++
		return stringLit{text: tok.text}, nil
	case tokIdent:
		if p.peekAt(1).kind == tokLParen {
			if !builtins[tok.text] {
				return nil, fmt.Errorf("unknown function %q", tok.text)
			}
			p.pos += 2
			args, err := p.argList()
			if err != nil {
				return nil, err
			}
			return funcCall{name: tok.text, args: args}, nil
		}
		p.pos++
		return identRef{name: tok.text}, nil
	case tokLParen:
		p.pos++
		e, err := p.orExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, fmt.Errorf("unexpected %q in expression", tok.text)
}

// argList parses a possibly empty, comma-separated argument list and
// consumes the closing parenthesis.
func (p *parser) argList() ([]expr, error) {
	var args []expr
	if p.peek().kind == tokRParen {
		p.pos++
		return args, nil
	}
	for {
		a, err := p.orExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		switch p.peek().kind {
		case tokComma:
			p.pos++
		case tokRParen:
			p.pos++
			return args, nil
		default:
			return nil, fmt.Errorf("expected ',' or ')' in argument list, got %q", p.peek().text)
		}
	}
}

func (p *parser) peek() token { return p.toks[p.pos] }
func (p *parser) peekAt(off int) token {
	if p.pos+off >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+off]
}

func (p *parser) expect(k tokenKind, text string) error {
	if p.peek().kind != k {
		return fmt.Errorf("expected %q, got %q", text, p.peek().text)
	}
	p.pos++
	return nil
}

func (p *parser) skipSeparators() {
	for {
		k := p.peek().kind
		if k != tokNewline && k != tokSemicolon {
			return
		}
		p.pos++
	}
}
