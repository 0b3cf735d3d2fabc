package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	cases := map[string]string{
		"June 30, 2025":       "2025-06-30",
		"Jun 30, 2025":        "2025-06-30",
		"2024-12-31":          "2024-12-31",
		"12/31/2024":          "2024-12-31",
		"2023":                "2023-12-31",
		" December 31, 2024 ": "2024-12-31",
	}
	for in, want := range cases {
		got, err := ParseDate(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got.Format("2006-01-02"), "input %q", in)
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, in := range []string{"", "someday", "99"} {
		_, err := ParseDate(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseNumber(t *testing.T) {
	cases := map[string]float64{
		"42":        42,
		"1,234":     1234,
		"$1,234.56": 1234.56,
		"(271,381)": -271381,
		"$ (10)":    -10,
		"-5.5":      -5.5,
	}
	for in, want := range cases {
		got, err := ParseNumber(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestParseNumberInvalid(t *testing.T) {
	for _, in := range []string{"", "—", "n/a", "()"} {
		_, err := ParseNumber(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseBool(t *testing.T) {
	for _, in := range []string{"true", "1", "T", "yes", "Y"} {
		got, err := ParseBool(in)
		require.NoError(t, err, "input %q", in)
		assert.True(t, got, "input %q", in)
	}
	for _, in := range []string{"false", "0", "f", "NO", "n"} {
		got, err := ParseBool(in)
		require.NoError(t, err, "input %q", in)
		assert.False(t, got, "input %q", in)
	}
	_, err := ParseBool("maybe")
	assert.Error(t, err)
}

func TestToFloat(t *testing.T) {
	f, ok := ToFloat(3.5)
	assert.True(t, ok)
	assert.Equal(t, 3.5, f)

	f, ok = ToFloat(7)
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	f, ok = ToFloat("1,000")
	assert.True(t, ok)
	assert.Equal(t, 1000.0, f)

	_, ok = ToFloat(time.Now())
	assert.False(t, ok)

	_, ok = ToFloat("garbage")
	assert.False(t, ok)
}
