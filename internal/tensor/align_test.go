package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTensor(t *testing.T, dims []string, sizes []int, horizon int) *Tensor {
	t.Helper()
	tr, err := New(dims, sizes, horizon)
	require.NoError(t, err)
	return tr
}

func TestAlignExactMatchBorrowsData(t *testing.T) {
	dep := mustTensor(t, []string{"geo"}, []int{2}, 3)
	target := mustTensor(t, []string{"geo"}, []int{2}, 3)
	require.NoError(t, dep.Store([]float64{1, 2, 3, 4, 5, 6}))

	aligned, err := Align(dep, target)
	require.NoError(t, err)
	// Fast path: the dependency's flat data is reused without copying.
	assert.Equal(t, &dep.Data()[0], &aligned[0])
}

func TestAlignExpandsMissingAxis(t *testing.T) {
	// price varies over product only; revenue over (geo, product).
	price := mustTensor(t, []string{"product"}, []int{2}, 2)
	revenue := mustTensor(t, []string{"geo", "product"}, []int{3, 2}, 2)
	// price[basic] = 10 for both months, price[pro] = 20.
	require.NoError(t, price.Store([]float64{10, 10, 20, 20}))

	aligned, err := Align(price, revenue)
	require.NoError(t, err)
	require.Len(t, aligned, revenue.Len())

	// Every geo slice sees the same per-product prices.
	for geo := 0; geo < 3; geo++ {
		base := geo * 4
		assert.Equal(t, []float64{10, 10, 20, 20}, aligned[base:base+4], "geo %d", geo)
	}
}

func TestAlignPureTimeSeriesBroadcasts(t *testing.T) {
	rate := mustTensor(t, nil, nil, 3)
	target := mustTensor(t, []string{"geo"}, []int{2}, 3)
	require.NoError(t, rate.Store([]float64{1, 2, 3}))

	aligned, err := Align(rate, target)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 1, 2, 3}, aligned)
}

func TestAlignReordersAxes(t *testing.T) {
	dep := mustTensor(t, []string{"product", "geo"}, []int{2, 2}, 1)
	target := mustTensor(t, []string{"geo", "product"}, []int{2, 2}, 1)
	// dep[product][geo]: p0g0=1 p0g1=2 p1g0=3 p1g1=4
	require.NoError(t, dep.Store([]float64{1, 2, 3, 4}))

	aligned, err := Align(dep, target)
	require.NoError(t, err)
	// target[geo][product]: g0p0=1 g0p1=3 g1p0=2 g1p1=4
	assert.Equal(t, []float64{1, 3, 2, 4}, aligned)
}

func TestAlignErrors(t *testing.T) {
	t.Run("dependency has an axis the target lacks", func(t *testing.T) {
		dep := mustTensor(t, []string{"channel"}, []int{2}, 2)
		target := mustTensor(t, []string{"geo"}, []int{2}, 2)
		_, err := Align(dep, target)
		var shapeErr *ShapeError
		assert.ErrorAs(t, err, &shapeErr)
	})

	t.Run("shared axis sizes disagree", func(t *testing.T) {
		dep := mustTensor(t, []string{"geo"}, []int{3}, 2)
		target := mustTensor(t, []string{"geo"}, []int{2}, 2)
		_, err := Align(dep, target)
		var shapeErr *ShapeError
		assert.ErrorAs(t, err, &shapeErr)
	})

	t.Run("horizons differ", func(t *testing.T) {
		dep := mustTensor(t, nil, nil, 2)
		target := mustTensor(t, nil, nil, 3)
		_, err := Align(dep, target)
		var shapeErr *ShapeError
		assert.ErrorAs(t, err, &shapeErr)
	})
}
