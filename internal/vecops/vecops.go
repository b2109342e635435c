// Package vecops holds the elementwise vector arithmetic used to evaluate
// expression trees over whole dataset columns at once.
package vecops

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DivisionThreshold is the divisor magnitude below which Div returns the
// numerator unchanged.
const DivisionThreshold = 1e-5

var (
	ErrLengthMismatch = errors.New("vector length mismatch")
	ErrEmptyVector    = errors.New("empty vector")
)

// Broadcast returns a vector of n copies of v.
func Broadcast(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func Add(x, y []float64) []float64 {
	return floats.AddTo(make([]float64, len(x)), x, y)
}

func Sub(x, y []float64) []float64 {
	return floats.SubTo(make([]float64, len(x)), x, y)
}

func Mul(x, y []float64) []float64 {
	return floats.MulTo(make([]float64, len(x)), x, y)
}

// Div is protected division: where |y[i]| < DivisionThreshold the result is x[i].
func Div(x, y []float64) []float64 {
	if len(x) != len(y) {
		panic(fmt.Sprintf("vecops: %v: %d != %d", ErrLengthMismatch, len(x), len(y)))
	}
	out := make([]float64, len(x))
	for i := range x {
		if math.Abs(y[i]) < DivisionThreshold {
			out[i] = x[i]
			continue
		}
		out[i] = x[i] / y[i]
	}
	return out
}

func Cos(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Cos(v)
	}
	return out
}

// Logistic maps every element into (0, 1).
func Logistic(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = 1 / (1 + math.Exp(-v))
	}
	return out
}

// AddScaled returns x + alpha*y.
func AddScaled(x []float64, alpha float64, y []float64) []float64 {
	return floats.AddScaledTo(make([]float64, len(x)), x, alpha, y)
}

// RMSE is the root-mean-squared error between x and y.
func RMSE(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) == 0 {
		return 0, ErrEmptyVector
	}
	return floats.Distance(x, y, 2) / math.Sqrt(float64(len(x))), nil
}
