package expr

import (
	"fmt"

	"gpforge/internal/dataset"
	"gpforge/internal/vecops"
)

// Evaluate computes train and test semantics, their errors against the
// targets, and the tree depth.
func (ind *Individual) Evaluate(ds dataset.Source) error {
	if err := ind.ComputeSemantics(ds); err != nil {
		return err
	}
	if err := ind.ComputeErrors(ds); err != nil {
		return err
	}
	return ind.ComputeDepth()
}

// ComputeSemantics runs the tree over both dataset splits.
func (ind *Individual) ComputeSemantics(ds dataset.Source) error {
	if len(ind.core) == 0 {
		return ErrEmptyTree
	}
	train, err := ind.output(ds.TrainMatrix())
	if err != nil {
		return fmt.Errorf("train semantics: %w", err)
	}
	test, err := ind.output(ds.TestMatrix())
	if err != nil {
		return fmt.Errorf("test semantics: %w", err)
	}
	ind.trainSemantics = train
	ind.testSemantics = test
	return nil
}

// ComputeErrors sets train and test RMSE from already computed semantics.
func (ind *Individual) ComputeErrors(ds dataset.Source) error {
	if ind.trainSemantics == nil || ind.testSemantics == nil {
		return fmt.Errorf("%w: semantics required before errors", ErrUnevaluated)
	}
	train, err := vecops.RMSE(ind.trainSemantics, ds.TrainTargets())
	if err != nil {
		return fmt.Errorf("train error: %w", err)
	}
	test, err := vecops.RMSE(ind.testSemantics, ds.TestTargets())
	if err != nil {
		return fmt.Errorf("test error: %w", err)
	}
	ind.train = train
	ind.test = test
	ind.evaluated = true
	return nil
}

func (ind *Individual) output(matrix [][]float64) ([]float64, error) {
	cursor := 0
	out, err := ind.outputAt(&cursor, matrix)
	if err != nil {
		return nil, err
	}
	if cursor != len(ind.core) {
		return nil, fmt.Errorf("%w: %d trailing nodes", ErrMalformedTree, len(ind.core)-cursor)
	}
	return out, nil
}

func (ind *Individual) outputAt(cursor *int, matrix [][]float64) ([]float64, error) {
	if *cursor >= len(ind.core) {
		return nil, fmt.Errorf("%w: ran past end of %d nodes", ErrMalformedTree, len(ind.core))
	}
	node := ind.core[*cursor]
	*cursor++

	switch node.Kind {
	case Constant:
		return vecops.Broadcast(node.Value, len(matrix[0])), nil
	case Input:
		// the last column is the target and never an input
		if node.Index < 0 || node.Index >= len(matrix)-1 {
			return nil, fmt.Errorf("%w: input x%d with %d variables", ErrIndexOutOfRange, node.Index, len(matrix)-1)
		}
		return append([]float64(nil), matrix[node.Index]...), nil
	}

	args := make([][]float64, node.Arity())
	for i := range args {
		arg, err := ind.outputAt(cursor, matrix)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return node.Apply(args)
}
