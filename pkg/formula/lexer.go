package formula

import "strings"

// Lexer tokenizes a formula.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination

	illegal []string // runs of characters outside the formula alphabet
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// Tokenize returns every token up to and including EOF. Runs of characters
// outside the formula alphabet are reported together as IllegalCharacters;
// an unterminated string or braced name is IllegalSyntax.
func (l *Lexer) Tokenize() ([]Token, error) {
	var toks []Token
	var unterminated *Token
	for {
		tok := l.NextToken()
		switch tok.Type {
		case TOKEN_ILLEGAL:
			if tok.Literal == "" || tok.Literal[0] == '\'' || tok.Literal[0] == '"' || tok.Literal[0] == '{' {
				if unterminated == nil {
					unterminated = &tok
				}
			}
			continue
		case TOKEN_EOF:
			toks = append(toks, tok)
			if len(l.illegal) > 0 {
				return nil, &Error{Kind: IllegalCharacters, Detail: strings.Join(l.illegal, " "), Pos: -1}
			}
			if unterminated != nil {
				return nil, &Error{Kind: IllegalSyntax, Detail: "unterminated " + unterminated.Literal, Pos: unterminated.Pos}
			}
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.pos
	if l.atEOF() {
		return Token{Type: TOKEN_EOF, Pos: pos}
	}

	var tok Token
	switch l.ch {
	case '+':
		tok = l.newToken(TOKEN_PLUS, "+")
	case '-':
		tok = l.newToken(TOKEN_MINUS, "-")
	case '*':
		if l.peekChar() == '*' {
			l.readChar()
			tok = Token{Type: TOKEN_POW, Literal: "**", Pos: pos}
		} else {
			tok = l.newToken(TOKEN_STAR, "*")
		}
	case '^':
		tok = l.newToken(TOKEN_POW, "^")
	case '/':
		if l.peekChar() == '/' {
			l.readChar()
			tok = Token{Type: TOKEN_DSLASH, Literal: "//", Pos: pos}
		} else {
			tok = l.newToken(TOKEN_SLASH, "/")
		}
	case '%':
		tok = l.newToken(TOKEN_MOD, "%")
	case '&':
		tok = l.newToken(TOKEN_CONCAT, "&")
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TOKEN_EQ, Literal: "==", Pos: pos}
		} else {
			tok = l.newToken(TOKEN_EQ, "=")
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TOKEN_NE, Literal: "!=", Pos: pos}
		} else {
			return l.readIllegal()
		}
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = Token{Type: TOKEN_LE, Literal: "<=", Pos: pos}
		case '>':
			l.readChar()
			tok = Token{Type: TOKEN_NE, Literal: "<>", Pos: pos}
		default:
			tok = l.newToken(TOKEN_LT, "<")
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TOKEN_GE, Literal: ">=", Pos: pos}
		} else {
			tok = l.newToken(TOKEN_GT, ">")
		}
	case '(':
		tok = l.newToken(TOKEN_LPAREN, "(")
	case ')':
		tok = l.newToken(TOKEN_RPAREN, ")")
	case ',':
		tok = l.newToken(TOKEN_COMMA, ",")
	case '.':
		if isDigit(l.peekChar()) {
			return Token{Type: TOKEN_NUMBER, Literal: l.readNumber(), Pos: pos}
		}
		tok = l.newToken(TOKEN_DOT, ".")
	case '\'', '"':
		quote := l.ch
		lit, ok := l.readString(quote)
		if !ok {
			return Token{Type: TOKEN_ILLEGAL, Literal: string(quote) + "string", Pos: pos}
		}
		return Token{Type: TOKEN_STRING, Literal: lit, Pos: pos}
	case '{':
		name, ok := l.readBraced()
		if !ok {
			return Token{Type: TOKEN_ILLEGAL, Literal: "{field name", Pos: pos}
		}
		return Token{Type: TOKEN_FIELD, Literal: name, Pos: pos}
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			lit := l.readIdentifier()
			if kw, ok := keywords[strings.ToLower(lit)]; ok {
				return Token{Type: kw, Literal: lit, Pos: pos}
			}
			return Token{Type: TOKEN_IDENT, Literal: lit, Pos: pos}
		case isDigit(l.ch):
			return Token{Type: TOKEN_NUMBER, Literal: l.readNumber(), Pos: pos}
		default:
			return l.readIllegal()
		}
	}

	l.readChar()
	return tok
}

// newToken creates a new token at the current position.
func (l *Lexer) newToken(tokenType TokenType, literal string) Token {
	return Token{Type: tokenType, Literal: literal, Pos: l.pos}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readIllegal consumes a run of characters that cannot start a token.
func (l *Lexer) readIllegal() Token {
	start := l.pos
	for !l.atEOF() && !l.startsToken() {
		l.readChar()
	}
	run := l.input[start:l.pos]
	l.illegal = append(l.illegal, run)
	return Token{Type: TOKEN_ILLEGAL, Literal: run, Pos: start}
}

func (l *Lexer) startsToken() bool {
	switch l.ch {
	case ' ', '\t', '\n', '\r', '+', '-', '*', '^', '/', '%', '&', '=', '<', '>', '(', ')', ',', '.', '\'', '"', '{':
		return true
	case '!':
		return l.peekChar() == '='
	}
	return isLetter(l.ch) || isDigit(l.ch) || l.ch == '_'
}

// readIdentifier reads letters, digits and underscores.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads digits with an optional fraction and exponent.
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		signed := (next == '+' || next == '-') && l.readPos+1 < len(l.input) && isDigit(l.input[l.readPos+1])
		if isDigit(next) || signed {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return l.input[start:l.pos]
}

// readString reads a quoted string; a doubled quote is a literal quote.
// The second result is false when the string is unterminated.
func (l *Lexer) readString(quote byte) (string, bool) {
	var sb strings.Builder
	l.readChar() // opening quote
	for {
		if l.atEOF() {
			return sb.String(), false
		}
		if l.ch == quote {
			if l.peekChar() == quote {
				sb.WriteByte(quote)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			return sb.String(), true
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
}

// readBraced reads a {field name}. Any character but '}' may appear inside.
func (l *Lexer) readBraced() (string, bool) {
	l.readChar() // '{'
	start := l.pos
	for !l.atEOF() && l.ch != '}' {
		l.readChar()
	}
	name := l.input[start:l.pos]
	if l.atEOF() {
		return name, false
	}
	l.readChar() // '}'
	return strings.TrimSpace(name), true
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
