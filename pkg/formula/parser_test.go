package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_Tokens(t *testing.T) {
	toks, err := NewLexer(`self.{Due-Date} ** 2 // 3 <> 'it''s' & x`).Tokenize()
	require.NoError(t, err)

	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{
		TOKEN_IDENT, TOKEN_DOT, TOKEN_FIELD, TOKEN_POW, TOKEN_NUMBER, TOKEN_DSLASH,
		TOKEN_NUMBER, TOKEN_NE, TOKEN_STRING, TOKEN_CONCAT, TOKEN_IDENT, TOKEN_EOF,
	}, types)
	assert.Equal(t, "Due-Date", toks[2].Literal)
	assert.Equal(t, "it's", toks[8].Literal)
}

func TestLexer_Numbers(t *testing.T) {
	tests := map[string]string{
		"12":   "12",
		"1.5":  "1.5",
		".5":   ".5",
		"2e3":  "2e3",
		"2E-3": "2E-3",
		"7e":   "7", // the e is a separate identifier
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			tok := NewLexer(in).NextToken()
			assert.Equal(t, TOKEN_NUMBER, tok.Type)
			assert.Equal(t, want, tok.Literal)
		})
	}
}

func TestParse_Precedence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "1 + 2 * 3", want: "(1 + (2 * 3))"},
		{in: "(1 + 2) * 3", want: "((1 + 2) * 3)"},
		{in: "2 ** 3 ** 2", want: "(2 ** (3 ** 2))"},
		{in: "2 ^ 3 * 4", want: "((2 ** 3) * 4)"},
		{in: "-2 ** 2", want: "(-(2 ** 2))"},
		{in: "2 ** -1", want: "(2 ** (-1))"},
		{in: "not self.x == 1", want: "(not (self.x == 1))"},
		{in: "self.A > 1 and self.B < 2 or true", want: "(((self.A > 1) and (self.B < 2)) or true)"},
		{in: "'a' & self.B + 1", want: "(('a' & self.B) + 1)"},
		{in: "sum(child.Amount, 1)", want: "sum(child.Amount, 1)"},
		{in: "{Due-Date}", want: "self.{Due-Date}"},
		{in: "ROOT.Total", want: "root.Total"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			expr, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, expr.String())
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ErrorKind
	}{
		{name: "illegal characters", in: "self.A $ 2 # 3", want: IllegalCharacters},
		{name: "illegal characters beat syntax", in: "(self.A $", want: IllegalCharacters},
		{name: "bang alone", in: "!self.A", want: IllegalCharacters},
		{name: "unterminated string", in: "'abc", want: IllegalSyntax},
		{name: "unterminated brace", in: "self.{abc", want: IllegalSyntax},
		{name: "empty", in: "   ", want: IllegalSyntax},
		{name: "dangling operator", in: "1 +", want: IllegalSyntax},
		{name: "unbalanced paren", in: "(1 + 2", want: IllegalSyntax},
		{name: "extra paren", in: "1 + 2)", want: IllegalSyntax},
		{name: "missing field", in: "self.", want: IllegalSyntax},
		{name: "unknown level", in: "sibling.A", want: IllegalSyntax},
		{name: "wrong arity", in: "abs(1, 2)", want: IllegalSyntax},
		{name: "if needs three", in: "if(true, 1)", want: IllegalSyntax},
		{name: "unknown function", in: "frobnicate(1)", want: IllegalFunction},
		{name: "bare identifier", in: "self.A + tax", want: IllegalFunction},
		{name: "bare child reference", in: "child.Amount", want: UnaggregatedChildReference},
		{name: "child reference in arithmetic", in: "sum(child.Amount + 1)", want: UnaggregatedChildReference},
		{name: "child reference in scalar function", in: "abs(child.Amount)", want: UnaggregatedChildReference},
		{name: "join separator is scalar", in: "join(child.Name, 'x')", want: UnaggregatedChildReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.in)
			assertKind(t, err, tt.want)
		})
	}
}

func TestCompile_IllegalCharactersNamesRuns(t *testing.T) {
	_, err := Compile("self.A $ 2 #@ 3 + 'ok $' + self.{a$b}")
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, IllegalCharacters, fe.Kind)
	assert.Equal(t, "$ #@", fe.Detail, "characters inside strings and braces are exempt")
}

func TestCompile_Refs(t *testing.T) {
	f, err := Compile("self.A + parent.{B c} + sum(child.C) + ancestor2.D + root.E")
	require.NoError(t, err)

	var got []string
	for _, r := range f.Refs() {
		got = append(got, r.String())
	}
	assert.Equal(t, []string{"self.A", "parent.{B c}", "child.C", "ancestor2.D", "root.E"}, got)
}

func assertKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok, "not a formula error: %v", err)
	assert.Equal(t, want, kind, "error: %v", err)
}
