package variation

import (
	"fmt"
	"math/rand"

	"gpforge/internal/dataset"
	"gpforge/internal/expr"
)

// StandardStrategy exchanges and replaces subtrees of the parents' node
// sequences. Offspring size is unbounded here; depth limiting is applied by
// the run loop when configured.
type StandardStrategy struct {
	MutationDepth int
}

func (StandardStrategy) Name() string {
	return string(MethodStandard)
}

func (s StandardStrategy) Crossover(rng *rand.Rand, p1, p2 *expr.Individual, ds dataset.Source) (*expr.Individual, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if !p1.HasTree() || !p2.HasTree() {
		return nil, fmt.Errorf("standard crossover: %w", expr.ErrEmptyTree)
	}

	point1 := rng.Intn(p1.Len())
	point2 := rng.Intn(p2.Len())
	span1, err := p1.SubtreeSize(point1)
	if err != nil {
		return nil, fmt.Errorf("standard crossover parent 1: %w", err)
	}
	span2, err := p2.SubtreeSize(point2)
	if err != nil {
		return nil, fmt.Errorf("standard crossover parent 2: %w", err)
	}

	offspring := expr.New()
	offspring.Append(p1.PrefixCopy(point1)...)
	offspring.Append(p2.SliceCopy(point2, span2)...)
	offspring.Append(p1.SuffixCopy(point1 + span1)...)

	if err := offspring.Evaluate(ds); err != nil {
		return nil, fmt.Errorf("standard crossover offspring: %w", err)
	}
	return offspring, nil
}

func (s StandardStrategy) Mutation(rng *rand.Rand, parent *expr.Individual, ds dataset.Source) (*expr.Individual, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if !parent.HasTree() {
		return nil, fmt.Errorf("standard mutation: %w", expr.ErrEmptyTree)
	}
	depth := s.MutationDepth
	if depth <= 0 {
		depth = RandomTreeDepth
	}

	point := rng.Intn(parent.Len())
	span, err := parent.SubtreeSize(point)
	if err != nil {
		return nil, fmt.Errorf("standard mutation: %w", err)
	}
	replacement := expr.Grow(rng, depth, ds.Dims())

	offspring := expr.New()
	offspring.Append(parent.PrefixCopy(point)...)
	offspring.Append(replacement.Nodes()...)
	offspring.Append(parent.SuffixCopy(point + span)...)

	if err := offspring.Evaluate(ds); err != nil {
		return nil, fmt.Errorf("standard mutation offspring: %w", err)
	}
	return offspring, nil
}
