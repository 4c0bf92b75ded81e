package formula

import (
	"math"
	"strings"

	"github.com/leapstack-labs/leapnote/pkg/resolve"
)

// Grammar:
//
//	expr     → or
//	or       → and ("or" and)*
//	and      → not ("and" not)*
//	not      → "not" not | cmp
//	cmp      → add (("=="|"!="|"<"|"<="|">"|">=") add)*
//	add      → mul (("+"|"-"|"&") mul)*
//	mul      → unary (("*"|"/"|"//"|"%") unary)*
//	unary    → ("-"|"+") unary | power
//	power    → primary (("**"|"^") unary)?        right associative
//	primary  → NUMBER | STRING | "(" expr ")" | call | ref | constant
//	call     → IDENT "(" [expr ("," expr)*] ")"
//	ref      → IDENT "." (IDENT | FIELD) | FIELD
//
// Parsing is Pratt style; the levels above are the binding powers in token.go.

// Parser builds an expression tree from formula tokens.
type Parser struct {
	tokens []Token
	idx    int
	token  Token // current token
	peek   Token // lookahead token
	errors []error
}

// NewParser creates a parser over already lexed tokens. The last token
// must be EOF.
func NewParser(tokens []Token) *Parser {
	p := &Parser{tokens: tokens}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse lexes and parses a formula. It reports the first error found:
// IllegalCharacters, then IllegalSyntax.
func Parse(src string) (Expr, error) {
	tokens, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}
	if len(tokens) == 1 {
		return nil, newError(IllegalSyntax, 0, "empty formula")
	}
	p := NewParser(tokens)
	expr := p.parseExpression()
	if len(p.errors) == 0 && !p.check(TOKEN_EOF) {
		p.addError("unexpected %s", p.describe(p.token))
	}
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return expr, nil
}

// ---------- Token Helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.token = p.peek
	if p.idx < len(p.tokens) {
		p.peek = p.tokens[p.idx]
		p.idx++
	} else {
		p.peek = Token{Type: TOKEN_EOF, Pos: p.token.Pos}
	}
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t TokenType) bool {
	return p.peek.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t TokenType) bool {
	if p.match(t) {
		return true
	}
	p.addError("expected %s, found %s", t, p.describe(p.token))
	return false
}

// addError adds a syntax error at the current token.
func (p *Parser) addError(format string, args ...any) {
	p.errors = append(p.errors, newError(IllegalSyntax, p.token.Pos, format, args...))
}

func (p *Parser) describe(tok Token) string {
	switch tok.Type {
	case TOKEN_EOF:
		return tok.Type.String()
	case TOKEN_STRING:
		return "string '" + tok.Literal + "'"
	case TOKEN_NUMBER, TOKEN_IDENT:
		return tok.Type.String() + " " + tok.Literal
	}
	return "'" + tok.Literal + "'"
}

// ---------- Expressions ----------

func (p *Parser) parseExpression() Expr {
	return p.parseExpressionWithPrecedence(precNone + 1)
}

// parseExpressionWithPrecedence implements Pratt parsing.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) Expr {
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for {
		prec := infixPrecedence(p.token.Type)
		if prec == precNone || prec < minPrecedence {
			break
		}
		left = p.parseInfixExpr(left, prec)
		if left == nil {
			return nil
		}
	}
	return left
}

// parsePrefixExpr parses unary operators and primary expressions.
func (p *Parser) parsePrefixExpr() Expr {
	switch p.token.Type {
	case TOKEN_NOT:
		pos := p.token.Pos
		p.nextToken()
		x := p.parseExpressionWithPrecedence(precNot)
		if x == nil {
			return nil
		}
		return &UnaryExpr{Op: TOKEN_NOT, X: x, Offset: pos}

	case TOKEN_MINUS, TOKEN_PLUS:
		op, pos := p.token.Type, p.token.Pos
		p.nextToken()
		x := p.parseExpressionWithPrecedence(precUnary)
		if x == nil {
			return nil
		}
		return &UnaryExpr{Op: op, X: x, Offset: pos}

	default:
		return p.parsePrimary()
	}
}

// parseInfixExpr parses a binary operator and its right operand.
func (p *Parser) parseInfixExpr(left Expr, prec int) Expr {
	op := p.token
	p.nextToken()

	// Power is right associative; everything else binds left.
	next := prec + 1
	if op.Type == TOKEN_POW {
		next = precUnary
	}
	right := p.parseExpressionWithPrecedence(next)
	if right == nil {
		return nil
	}
	return &BinaryExpr{Op: op.Type, Left: left, Right: right, Offset: op.Pos}
}

func (p *Parser) parsePrimary() Expr {
	tok := p.token
	switch tok.Type {
	case TOKEN_NUMBER:
		p.nextToken()
		v, ok := numberLiteral(tok.Literal)
		if !ok {
			p.errors = append(p.errors, newError(IllegalSyntax, tok.Pos, "malformed number %s", tok.Literal))
			return nil
		}
		return &Literal{Value: v, Offset: tok.Pos}

	case TOKEN_STRING:
		p.nextToken()
		return &Literal{Value: Text(tok.Literal), Offset: tok.Pos}

	case TOKEN_LPAREN:
		p.nextToken()
		x := p.parseExpression()
		if x == nil {
			return nil
		}
		if !p.expect(TOKEN_RPAREN) {
			return nil
		}
		return x

	case TOKEN_FIELD:
		p.nextToken()
		return &FieldRef{Ref: resolve.SelfRef, Field: tok.Literal, Offset: tok.Pos}

	case TOKEN_IDENT:
		switch {
		case p.checkPeek(TOKEN_LPAREN):
			return p.parseCall()
		case p.checkPeek(TOKEN_DOT):
			return p.parseFieldRef()
		}
		p.nextToken()
		if v, ok := constant(tok.Literal); ok {
			return &Literal{Value: v, Offset: tok.Pos}
		}
		return &Ident{Name: tok.Literal, Offset: tok.Pos}
	}

	p.addError("unexpected %s", p.describe(tok))
	return nil
}

// parseCall parses name(args...). The current token is the name.
func (p *Parser) parseCall() Expr {
	call := &CallExpr{Name: strings.ToLower(p.token.Literal), Offset: p.token.Pos}
	p.nextToken() // name
	p.nextToken() // (
	if p.match(TOKEN_RPAREN) {
		return call
	}
	for {
		arg := p.parseExpression()
		if arg == nil {
			return nil
		}
		call.Args = append(call.Args, arg)
		if p.match(TOKEN_COMMA) {
			continue
		}
		if !p.expect(TOKEN_RPAREN) {
			return nil
		}
		return call
	}
}

// parseFieldRef parses level.Field. The current token is the level.
func (p *Parser) parseFieldRef() Expr {
	tok := p.token
	ref, err := resolve.ParseRef(tok.Literal)
	if err != nil {
		p.addError("%v", err)
		return nil
	}
	p.nextToken() // level
	p.nextToken() // .
	switch p.token.Type {
	case TOKEN_IDENT, TOKEN_FIELD:
		name := p.token.Literal
		p.nextToken()
		if name == "" {
			p.errors = append(p.errors, newError(IllegalSyntax, tok.Pos, "empty field name"))
			return nil
		}
		return &FieldRef{Ref: ref, Field: name, Offset: tok.Pos}
	}
	p.addError("expected field name after %s., found %s", tok.Literal, p.describe(p.token))
	return nil
}

func constant(name string) (Value, bool) {
	switch strings.ToLower(name) {
	case "true":
		return Bool(true), true
	case "false":
		return Bool(false), true
	case "pi":
		return Float(math.Pi), true
	case "e":
		return Float(math.E), true
	}
	return Value{}, false
}
