// Package dataset holds the in-memory train/test matrices consumed by the
// evolutionary core. Matrices are column-major: the outer index is the
// variable, the inner index the instance, and the last column is the
// regression target.
package dataset

import (
	"errors"
	"fmt"
)

var ErrShape = errors.New("invalid dataset shape")

// Source is the read-only view the evolutionary core evaluates against.
// Implementations must be safe for concurrent reads.
type Source interface {
	Dims() int
	TrainMatrix() [][]float64
	TestMatrix() [][]float64
	TrainTargets() []float64
	TestTargets() []float64
}

type Dataset struct {
	dims  int
	train [][]float64
	test  [][]float64
}

// FromColumns builds a dataset from column-major train and test matrices.
// Both splits must have the same column count (at least one input plus the
// target) and every column within a split the same length.
func FromColumns(train, test [][]float64) (*Dataset, error) {
	if err := checkColumns("train", train); err != nil {
		return nil, err
	}
	if err := checkColumns("test", test); err != nil {
		return nil, err
	}
	if len(train) != len(test) {
		return nil, fmt.Errorf("%w: train has %d columns, test has %d", ErrShape, len(train), len(test))
	}
	return &Dataset{
		dims:  len(train) - 1,
		train: cloneMatrix(train),
		test:  cloneMatrix(test),
	}, nil
}

// FromRows builds a dataset from row-major (one row per instance) matrices.
func FromRows(train, test [][]float64) (*Dataset, error) {
	trainCols, err := Transpose(train)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	testCols, err := Transpose(test)
	if err != nil {
		return nil, fmt.Errorf("test: %w", err)
	}
	return FromColumns(trainCols, testCols)
}

func (d *Dataset) Dims() int                { return d.dims }
func (d *Dataset) TrainMatrix() [][]float64 { return d.train }
func (d *Dataset) TestMatrix() [][]float64  { return d.test }
func (d *Dataset) TrainTargets() []float64  { return d.train[len(d.train)-1] }
func (d *Dataset) TestTargets() []float64   { return d.test[len(d.test)-1] }

func (d *Dataset) TrainInstances() int { return len(d.train[0]) }
func (d *Dataset) TestInstances() int  { return len(d.test[0]) }

// Transpose converts row-major rows into column-major columns.
func Transpose(rows [][]float64) ([][]float64, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrShape)
	}
	width := len(rows[0])
	cols := make([][]float64, width)
	for j := range cols {
		cols[j] = make([]float64, len(rows))
	}
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrShape, i, len(row), width)
		}
		for j, v := range row {
			cols[j][i] = v
		}
	}
	return cols, nil
}

func checkColumns(split string, cols [][]float64) error {
	if len(cols) < 2 {
		return fmt.Errorf("%w: %s needs at least one input and a target column, got %d columns", ErrShape, split, len(cols))
	}
	n := len(cols[0])
	if n == 0 {
		return fmt.Errorf("%w: %s has no instances", ErrShape, split)
	}
	for j, col := range cols {
		if len(col) != n {
			return fmt.Errorf("%w: %s column %d has %d instances, want %d", ErrShape, split, j, len(col), n)
		}
	}
	return nil
}

func cloneMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, col := range m {
		out[i] = append([]float64(nil), col...)
	}
	return out
}
