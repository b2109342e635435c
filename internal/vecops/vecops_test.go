package vecops

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRMSEZeroForIdenticalVectors(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x := make([]float64, 17)
	for i := range x {
		x[i] = rng.NormFloat64() * 10
	}
	got, err := RMSE(x, x)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestRMSESymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for trial := 0; trial < 20; trial++ {
		x := make([]float64, 9)
		y := make([]float64, 9)
		for i := range x {
			x[i] = rng.Float64()*4 - 2
			y[i] = rng.Float64()*4 - 2
		}
		a, err := RMSE(x, y)
		require.NoError(t, err)
		b, err := RMSE(y, x)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestRMSEKnownValue(t *testing.T) {
	got, err := RMSE([]float64{1, 2, 3}, []float64{2, 2, 5})
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(5.0/3.0), got, 1e-12)
}

func TestRMSERejectsBadInput(t *testing.T) {
	_, err := RMSE([]float64{1}, []float64{1, 2})
	require.ErrorIs(t, err, ErrLengthMismatch)
	_, err = RMSE(nil, nil)
	require.ErrorIs(t, err, ErrEmptyVector)
}

func TestDivProtectsSmallDivisors(t *testing.T) {
	num := []float64{3, 4, 5, 6, 7}
	den := []float64{0, 9e-6, -9.99e-6, 1e-5, 2}
	got := Div(num, den)

	assert.Equal(t, 3.0, got[0])
	assert.Equal(t, 4.0, got[1])
	assert.Equal(t, 5.0, got[2])
	assert.Equal(t, 6.0/1e-5, got[3])
	assert.Equal(t, 3.5, got[4])
}

func TestElementwiseOps(t *testing.T) {
	x := []float64{1, 2, 3}
	y := []float64{4, 5, 6}

	assert.Equal(t, []float64{5, 7, 9}, Add(x, y))
	assert.Equal(t, []float64{-3, -3, -3}, Sub(x, y))
	assert.Equal(t, []float64{4, 10, 18}, Mul(x, y))
	assert.Equal(t, []float64{9, 12, 15}, AddScaled(x, 2, y))
	assert.Equal(t, []float64{0.5, 0.5}, Broadcast(0.5, 2))
	assert.InDelta(t, math.Cos(2), Cos(x)[1], 1e-15)

	// inputs are never written to
	assert.Equal(t, []float64{1, 2, 3}, x)
	assert.Equal(t, []float64{4, 5, 6}, y)
}

func TestLogisticBounds(t *testing.T) {
	got := Logistic([]float64{-30, 0, 30})
	assert.InDelta(t, 0.5, got[1], 1e-15)
	for _, v := range got {
		assert.Greater(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}
