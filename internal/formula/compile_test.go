package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, src string) *Compiled {
	t.Helper()
	c, err := Compile(src, NewIDCache())
	require.NoError(t, err)
	return c
}

func TestCompileExtractsDepsInOrder(t *testing.T) {
	c := compile(t, "price * volume + price")
	assert.Equal(t, []string{"price", "volume"}, c.Deps)
}

func TestCompileHyphenatedDeps(t *testing.T) {
	c, err := Compile("net-income / share-count", NewIDCache())
	require.NoError(t, err)
	assert.Equal(t, []string{"net-income", "share-count"}, c.Deps)
}

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		args [][]float64
		want []float64
	}{
		{"a + b", [][]float64{{1, 2}, {10, 20}}, []float64{11, 22}},
		{"a - b", [][]float64{{5, 5}, {2, 3}}, []float64{3, 2}},
		{"a * 2", [][]float64{{1.5, -2}}, []float64{3, -4}},
		{"a / b", [][]float64{{10, 9}, {2, 3}}, []float64{5, 3}},
		{"a % b", [][]float64{{7, 9}, {4, 5}}, []float64{3, 4}},
		{"-a", [][]float64{{3, -4}}, []float64{-3, 4}},
		{"(a + b) * 10", [][]float64{{1, 2}, {1, 1}}, []float64{20, 30}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			c := compile(t, tt.src)
			got, err := c.Eval(tt.args, len(tt.want))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalLiteralOnlyBroadcasts(t *testing.T) {
	c := compile(t, "42")
	require.Empty(t, c.Deps)

	got, err := c.Eval(nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{42, 42, 42}, got)
}

func TestEvalConditionalsAndComparisons(t *testing.T) {
	c := compile(t, "a > 10 ? a : 0")
	got, err := c.Eval([][]float64{{5, 15, 10}}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 15, 0}, got)
}

func TestEvalFunctions(t *testing.T) {
	tests := []struct {
		src  string
		args [][]float64
		want []float64
	}{
		{"abs(a)", [][]float64{{-3, 2}}, []float64{3, 2}},
		{"min(a, b, 0)", [][]float64{{-1, 5}, {2, 3}}, []float64{-1, 0}},
		{"max(a, b)", [][]float64{{-1, 5}, {2, 3}}, []float64{2, 5}},
		{"round(a)", [][]float64{{1.4, 1.6}}, []float64{1, 2}},
		{"pow(a, 2)", [][]float64{{3, 4}}, []float64{9, 16}},
		{"sqrt(a)", [][]float64{{9, 16}}, []float64{3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			c := compile(t, tt.src)
			got, err := c.Eval(tt.args, len(tt.want))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalClampsNonFinite(t *testing.T) {
	c := compile(t, "a / b")
	got, err := c.Eval([][]float64{{1, 0, 4}, {0, 0, 2}}, 3)
	require.NoError(t, err)
	// 1/0 and 0/0 must not leak Inf/NaN into the store.
	assert.Equal(t, []float64{0, 0, 2}, got)
}

func TestEvalValidatesArgs(t *testing.T) {
	c := compile(t, "a + b")

	_, err := c.Eval([][]float64{{1}}, 1)
	assert.Error(t, err)

	_, err = c.Eval([][]float64{{1}, {1, 2}}, 1)
	assert.Error(t, err)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax error", "a + * b"},
		{"unknown function", "frobnicate(a)"},
		{"wrong arity", "abs(a, b)"},
		{"multi-part reference", "a.b + 1"},
		{"string literal", `"hello"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.src, NewIDCache())
			assert.Error(t, err)
		})
	}
}

func TestCompiledIsReusable(t *testing.T) {
	c := compile(t, "a * 2")
	for i := 0; i < 3; i++ {
		got, err := c.Eval([][]float64{{float64(i)}}, 1)
		require.NoError(t, err)
		assert.Equal(t, []float64{float64(i) * 2}, got)
	}
}
