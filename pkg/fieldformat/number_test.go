package fieldformat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberFormat_Format(t *testing.T) {
	tests := []struct {
		spec  string
		value float64
		want  string
	}{
		{spec: "#,##0.00", value: 1234.5, want: "1,234.50"},
		{spec: "#,##0.00", value: -1234567.891, want: "-1,234,567.89"},
		{spec: "#.##", value: 2.5, want: "2.5"},
		{spec: "#.##", value: 3, want: "3"},
		{spec: "#.##", value: 0.125, want: "0.13"},
		{spec: "#.##", value: -0.001, want: "0"},
		{spec: "0000", value: 42, want: "0042"},
		{spec: "+0.0", value: 5, want: "+5.0"},
		{spec: "+0.0", value: -5, want: "-5.0"},
		{spec: "# ###", value: 1234567, want: "1 234 567"},
		{spec: "#'##0", value: 1234, want: "1'234"},
		{spec: `#.##0\,00`, value: 1234.5, want: "1.234,50"},
		{spec: "0.00e+00", value: 12345, want: "1.23e+04"},
		{spec: "0.00E00", value: 0.000123, want: "1.23E-04"},
		{spec: "0.0e0", value: 9.96, want: "1.0e1"},
		{spec: "", value: 1.0 / 3.0, want: "0.3333333333"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			nf, err := parseNumberFormat(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, nf.format(tt.value))
		})
	}
}

func TestNumberFormat_Invalid(t *testing.T) {
	for _, spec := range []string{"abc", "+", "#,", "#,## ##", "0.0e", "#.#x"} {
		t.Run(spec, func(t *testing.T) {
			_, err := parseNumberFormat(spec)
			assert.Error(t, err)
		})
	}
}

func TestCanonicalNumber(t *testing.T) {
	assert.Equal(t, "0", CanonicalNumber(0))
	assert.Equal(t, "5", CanonicalNumber(5))
	assert.Equal(t, "-12", CanonicalNumber(-12))
	assert.Equal(t, "2.5", CanonicalNumber(2.5))
	assert.Equal(t, "1e-07", CanonicalNumber(1e-7))
	assert.Equal(t, "1e+20", CanonicalNumber(1e20))
}
