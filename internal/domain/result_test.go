package domain

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegerResult_RoundTrip(t *testing.T) {
	t.Parallel()

	values := []int64{0, 1, -1, 42, -42, math.MaxInt64, math.MinInt64, math.MaxInt32 + 1}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		values = append(values, int64(rng.Uint64()))
	}

	for _, v := range values {
		got, err := IntegerResult.Parse(IntegerResult.Format(v))
		require.NoError(t, err, "value %d", v)
		assert.Equal(t, v, got)
	}
}

func TestFloatResult_RoundTrip(t *testing.T) {
	t.Parallel()

	values := []float64{
		0, 1, -1, 0.1, 1.0 / 3.0, 2.5e-8, -1e-300,
		math.MaxFloat64, -math.MaxFloat64, math.SmallestNonzeroFloat64,
		math.Inf(1), math.Inf(-1), math.Copysign(0, -1),
	}
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 1000; i++ {
		f := math.Float64frombits(rng.Uint64())
		if math.IsNaN(f) {
			continue
		}
		values = append(values, f)
	}

	for _, v := range values {
		s := FloatResult.Format(v)
		got, err := FloatResult.Parse(s)
		require.NoError(t, err, "value %v encoded as %q", v, s)
		assert.Equal(t, math.Float64bits(v), math.Float64bits(got), "value %v encoded as %q", v, s)
	}

	t.Run("NaN", func(t *testing.T) {
		got, err := FloatResult.Parse(FloatResult.Format(math.NaN()))
		require.NoError(t, err)
		assert.True(t, math.IsNaN(got))
	})
}

func TestResultCodecs_Malformed(t *testing.T) {
	t.Parallel()

	intCases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"letters", "abc"},
		{"fraction", "1.5"},
		{"overflow", "9223372036854775808"},
		{"underflow", "-9223372036854775809"},
		{"hex", "0x10"},
	}
	for _, tc := range intCases {
		t.Run("integer/"+tc.name, func(t *testing.T) {
			_, err := IntegerResult.Parse(tc.input)
			assert.ErrorIs(t, err, ErrMalformedResult)
		})
	}

	floatCases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"letters", "twelve"},
		{"overflow", "1e400"},
		{"trailing garbage", "3.14abc"},
		{"comma decimal", "3,14"},
	}
	for _, tc := range floatCases {
		t.Run("float/"+tc.name, func(t *testing.T) {
			_, err := FloatResult.Parse(tc.input)
			assert.ErrorIs(t, err, ErrMalformedResult)
		})
	}
}

func TestResultCodecs_TrimSpace(t *testing.T) {
	t.Parallel()

	i, err := IntegerResult.Parse(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), i)

	f, err := FloatResult.Parse("\t2.5\n")
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)
}
