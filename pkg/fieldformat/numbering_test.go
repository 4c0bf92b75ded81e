package fieldformat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrement(t *testing.T) {
	tests := []struct {
		name   string
		format string
		prev   string
		want   string
	}{
		{name: "section digits", format: "1", prev: "1.9", want: "1.10"},
		{name: "roman", format: "I", prev: "III", want: "IV"},
		{name: "lower roman", format: "i", prev: "viii", want: "ix"},
		{name: "letters wrap", format: "A", prev: "Z", want: "AA"},
		{name: "repeated letters", format: "a", prev: "bb", want: "cc"},
		{name: "blank starts at one", format: "I", prev: "", want: "I"},
		{name: "canonical input", format: "1.A", prev: "2.3", want: "2.D"},
		{name: "level style unambiguous", format: "I../A../1../a)/i)", prev: "IV.", want: "V."},
		{name: "level style canonical", format: "I../A../1../a)/i)", prev: "1.3", want: "D."},
		{name: "level style prefix", format: "(1)/(a)", prev: "(b)", want: "(c)"},
		{name: "escaped slash", format: "1//", prev: "4/", want: "5/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(Definition{Name: "Num", Kind: Numbering, Format: tt.format})
			require.NoError(t, err)
			got, err := f.Increment(tt.prev)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIncrementAt(t *testing.T) {
	const levels = "I../A../1../a)/i)"
	tests := []struct {
		name  string
		prev  string
		depth int
		want  string
	}{
		{name: "letter level reads C as a letter", prev: "C.", depth: 1, want: "D."},
		{name: "roman level reads C as a numeral", prev: "C.", depth: 0, want: "CI."},
		{name: "lower roman level", prev: "ii)", depth: 4, want: "iii)"},
		{name: "lower letter level", prev: "ii)", depth: 3, want: "jj)"},
		{name: "digit level", prev: "9.", depth: 2, want: "10."},
		{name: "deeper levels repeat the last", prev: "iv)", depth: 7, want: "v)"},
		{name: "blank starts the level", prev: "", depth: 1, want: "A."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := MustNew(Definition{Name: "Num", Kind: Numbering, Format: levels})
			got, err := f.IncrementAt(tt.prev, tt.depth)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateAt_LevelNumbering(t *testing.T) {
	f := MustNew(Definition{Name: "Num", Kind: Numbering, Format: "I../A../1../a)/i)"})

	tests := []struct {
		name  string
		input string
		depth int
		want  string
	}{
		{name: "roman at top level", input: "C.", depth: 0, want: "100"},
		{name: "letter at second level", input: "C.", depth: 1, want: "1.3"},
		{name: "lower roman keeps its level", input: "ii)", depth: 4, want: "1.1.1.1.2"},
		{name: "lower letters keep their level", input: "ii)", depth: 3, want: "1.1.1.35"},
		{name: "canonical input", input: "2.3", depth: 1, want: "2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.ValidateAt(tt.input, tt.depth)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, strings.TrimSpace(displayOrCanonical(f, tt.input, got)))

			again, err := f.Validate(f.ToEdit(got))
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}

	_, err := f.ValidateAt("C.", 2)
	assert.Error(t, err, "digit level rejects letters")
}

// displayOrCanonical returns the display of v when input was formatted.
func displayOrCanonical(f *FieldFormat, input, v string) string {
	if _, ok := ParseNumbering(input); ok {
		return v
	}
	return f.ToDisplay(v)
}

func TestLevelNumbering_Ambiguous(t *testing.T) {
	f := MustNew(Definition{Name: "Num", Kind: Numbering, Format: "I../A../1../a)/i)"})
	for _, input := range []string{"C.", "ii)", "I.", "x)"} {
		t.Run(input, func(t *testing.T) {
			_, err := f.Validate(input)
			assert.Error(t, err)
			_, err = f.Increment(input)
			assert.Error(t, err)
		})
	}
}

func TestParseNumeral(t *testing.T) {
	tests := []struct {
		spec   string
		prefix string
		style  byte
		suffix string
	}{
		{spec: "Item 1", prefix: "Item ", style: '1'},
		{spec: "Part A:", prefix: "Part ", style: 'A', suffix: ":"},
		{spec: "(i)", prefix: "(", style: 'i', suffix: ")"},
		{spec: "I.", style: 'I', suffix: "."},
		{spec: "1 in all", style: '1', suffix: " in all"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			n, err := parseNumeral(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.prefix, n.prefix)
			assert.Equal(t, string(tt.style), string(n.style))
			assert.Equal(t, tt.suffix, n.suffix)
		})
	}

	_, err := parseNumeral("Item")
	assert.Error(t, err)

	f := MustNew(Definition{Name: "Num", Kind: Numbering, Format: "Item 1"})
	next, err := f.Increment("Item 4")
	require.NoError(t, err)
	assert.Equal(t, "Item 5", next)
}

func TestIncrement_Errors(t *testing.T) {
	f := MustNew(Definition{Name: "Num", Kind: Numbering, Format: "I"})
	_, err := f.Increment("IIII")
	assert.Error(t, err)

	n := MustNew(Definition{Name: "Amount", Kind: Number})
	_, err = n.Increment("1")
	assert.Error(t, err)
}

func TestRomanAndLetters(t *testing.T) {
	for v := 1; v <= 3999; v++ {
		got, ok := fromRoman(toRoman(v))
		require.True(t, ok, "roman %d", v)
		require.Equal(t, v, got)
	}
	for v := 1; v <= 200; v++ {
		got, ok := fromLetters(toLetters(v))
		require.True(t, ok, "letters %d", v)
		require.Equal(t, v, got)
	}
	assert.Equal(t, "MCMXCIV", toRoman(1994))
	assert.Equal(t, "AA", toLetters(27))

	_, ok := fromRoman("IC")
	assert.False(t, ok)
	_, ok = fromLetters("AB")
	assert.False(t, ok)
}
