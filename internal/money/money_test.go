package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalToCents(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  int64
	}{
		{"whole dollars", "100", 10000},
		{"two decimal places", "100.50", 10050},
		{"one decimal place", "99.5", 9950},
		{"zero", "0", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tc.input)
			require.NoError(t, err)
			got, err := DecimalToCents(d)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecimalToCents_RejectsSubCentPrecision(t *testing.T) {
	d, err := decimal.NewFromString("100.505")
	require.NoError(t, err)

	_, err = DecimalToCents(d)
	assert.Error(t, err)
}

func TestCentsToDecimal_RoundTrips(t *testing.T) {
	d, err := decimal.NewFromString("100.50")
	require.NoError(t, err)

	cents, err := DecimalToCents(d)
	require.NoError(t, err)

	assert.True(t, d.Equal(CentsToDecimal(cents)))
}
