package formula

import "fmt"

// TokenType identifies a lexical token.
type TokenType int

// Token types.
const (
	TOKEN_ILLEGAL TokenType = iota
	TOKEN_EOF

	TOKEN_NUMBER
	TOKEN_STRING
	TOKEN_IDENT
	TOKEN_FIELD // braced field name: {Due-Date}

	TOKEN_PLUS     // +
	TOKEN_MINUS    // -
	TOKEN_STAR     // *
	TOKEN_SLASH    // /
	TOKEN_DSLASH   // //
	TOKEN_MOD      // %
	TOKEN_POW      // ** or ^
	TOKEN_CONCAT   // &
	TOKEN_EQ       // == or =
	TOKEN_NE       // != or <>
	TOKEN_LT       // <
	TOKEN_LE       // <=
	TOKEN_GT       // >
	TOKEN_GE       // >=
	TOKEN_LPAREN   // (
	TOKEN_RPAREN   // )
	TOKEN_COMMA    // ,
	TOKEN_DOT      // .
	TOKEN_AND      // and
	TOKEN_OR       // or
	TOKEN_NOT      // not
)

var tokenNames = map[TokenType]string{
	TOKEN_ILLEGAL: "ILLEGAL",
	TOKEN_EOF:     "end of formula",
	TOKEN_NUMBER:  "number",
	TOKEN_STRING:  "string",
	TOKEN_IDENT:   "identifier",
	TOKEN_FIELD:   "field name",
	TOKEN_PLUS:    "+",
	TOKEN_MINUS:   "-",
	TOKEN_STAR:    "*",
	TOKEN_SLASH:   "/",
	TOKEN_DSLASH:  "//",
	TOKEN_MOD:     "%",
	TOKEN_POW:     "**",
	TOKEN_CONCAT:  "&",
	TOKEN_EQ:      "==",
	TOKEN_NE:      "!=",
	TOKEN_LT:      "<",
	TOKEN_LE:      "<=",
	TOKEN_GT:      ">",
	TOKEN_GE:      ">=",
	TOKEN_LPAREN:  "(",
	TOKEN_RPAREN:  ")",
	TOKEN_COMMA:   ",",
	TOKEN_DOT:     ".",
	TOKEN_AND:     "and",
	TOKEN_OR:      "or",
	TOKEN_NOT:     "not",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

var keywords = map[string]TokenType{
	"and": TOKEN_AND,
	"or":  TOKEN_OR,
	"not": TOKEN_NOT,
}

// Token is a lexical token. Pos is the byte offset in the formula.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}

// Operator precedence, lowest first.
const (
	precNone = iota
	precOr
	precAnd
	precNot
	precComparison
	precAddition
	precMultiply
	precUnary
	precPower
)

func infixPrecedence(t TokenType) int {
	switch t {
	case TOKEN_OR:
		return precOr
	case TOKEN_AND:
		return precAnd
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_LE, TOKEN_GT, TOKEN_GE:
		return precComparison
	case TOKEN_PLUS, TOKEN_MINUS, TOKEN_CONCAT:
		return precAddition
	case TOKEN_STAR, TOKEN_SLASH, TOKEN_DSLASH, TOKEN_MOD:
		return precMultiply
	case TOKEN_POW:
		return precPower
	}
	return precNone
}
