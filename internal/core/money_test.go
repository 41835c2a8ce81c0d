package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2(t *testing.T) {
	cases := []struct {
		in  float64
		out float64
	}{
		{15.99, 15.99},
		{119.88 / 12, 9.99},
		{0.125, 0.13},
		{10, 10},
		{0, 0},
		{33.969999, 33.97},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.out, Round2(tc.in), "Round2(%v)", tc.in)
	}
}

func TestSumIsOrderIndependent(t *testing.T) {
	a := Sum(0.1, 0.2, 0.3, 15.99, 9.99)
	b := Sum(9.99, 0.3, 15.99, 0.2, 0.1)
	assert.Equal(t, a, b)
	assert.Equal(t, 26.58, a)
	assert.Equal(t, 0.0, Sum())
}

func TestMul(t *testing.T) {
	assert.Equal(t, 407.64, Mul(33.97, 12))
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"12.34", 12.34, true},
		{"12,34", 12.34, true},
		{"-15.99", 15.99, true},
		{" 2.50 ", 2.5, true},
		{"1,234.50", 1234.5, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidAmount, "%q", tc.in)
			continue
		}
		require.NoError(t, err, "%q", tc.in)
		assert.Equal(t, tc.out, got, "%q", tc.in)
	}
}
