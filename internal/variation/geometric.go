package variation

import (
	"fmt"
	"math/rand"

	"gpforge/internal/dataset"
	"gpforge/internal/expr"
	"gpforge/internal/vecops"
)

// GeometricSemanticStrategy combines parents in semantics space. Offspring
// never carry a node sequence; their size and depth are those of the implied
// combination formula.
type GeometricSemanticStrategy struct {
	MutationStep    float64
	Bounded         bool
	RandomTreeDepth int
}

func (GeometricSemanticStrategy) Name() string {
	return string(MethodGeometricSemantic)
}

// Crossover: offspring = p1*r + (1-r)*p2 with r = logistic(random tree).
func (s GeometricSemanticStrategy) Crossover(rng *rand.Rand, p1, p2 *expr.Individual, ds dataset.Source) (*expr.Individual, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	p1Train, p1Test, err := semantics(p1)
	if err != nil {
		return nil, fmt.Errorf("geometric crossover parent 1: %w", err)
	}
	p2Train, p2Test, err := semantics(p2)
	if err != nil {
		return nil, fmt.Errorf("geometric crossover parent 2: %w", err)
	}
	r, err := s.randomTree(rng, ds, true)
	if err != nil {
		return nil, fmt.Errorf("geometric crossover random tree: %w", err)
	}
	rTrain, rTest, _ := semantics(r)

	p1Depth, _ := p1.Depth()
	p2Depth, _ := p2.Depth()
	rDepth, _ := r.Depth()

	offspring := expr.Synthesized(
		crossoverSemantics(p1Train, p2Train, rTrain),
		crossoverSemantics(p1Test, p2Test, rTest),
		p1.Size()+p2.Size()+2*r.Size()+5,
		max(max(p1Depth, p2Depth)+2, rDepth+4),
	)
	if err := offspring.ComputeErrors(ds); err != nil {
		return nil, fmt.Errorf("geometric crossover offspring: %w", err)
	}
	return offspring, nil
}

// Mutation: offspring = p + ms*(r1-r2).
func (s GeometricSemanticStrategy) Mutation(rng *rand.Rand, parent *expr.Individual, ds dataset.Source) (*expr.Individual, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	pTrain, pTest, err := semantics(parent)
	if err != nil {
		return nil, fmt.Errorf("geometric mutation parent: %w", err)
	}
	r1, err := s.randomTree(rng, ds, s.Bounded)
	if err != nil {
		return nil, fmt.Errorf("geometric mutation random tree: %w", err)
	}
	r2, err := s.randomTree(rng, ds, s.Bounded)
	if err != nil {
		return nil, fmt.Errorf("geometric mutation random tree: %w", err)
	}
	r1Train, r1Test, _ := semantics(r1)
	r2Train, r2Test, _ := semantics(r2)

	pDepth, _ := parent.Depth()
	r1Depth, _ := r1.Depth()
	r2Depth, _ := r2.Depth()

	offspring := expr.Synthesized(
		mutationSemantics(pTrain, r1Train, r2Train, s.MutationStep),
		mutationSemantics(pTest, r1Test, r2Test, s.MutationStep),
		parent.Size()+3+r1.Size()+1+r2.Size(),
		max(max(r1Depth, r2Depth)+3, pDepth+1),
	)
	if err := offspring.ComputeErrors(ds); err != nil {
		return nil, fmt.Errorf("geometric mutation offspring: %w", err)
	}
	return offspring, nil
}

func (s GeometricSemanticStrategy) randomTree(rng *rand.Rand, ds dataset.Source, bounded bool) (*expr.Individual, error) {
	depth := s.RandomTreeDepth
	if depth <= 0 {
		depth = RandomTreeDepth
	}
	r := expr.Grow(rng, depth, ds.Dims())
	if bounded {
		r.Prepend(expr.Op(expr.LogFunction))
	}
	if err := r.ComputeDepth(); err != nil {
		return nil, err
	}
	if err := r.ComputeSemantics(ds); err != nil {
		return nil, err
	}
	return r, nil
}

func semantics(ind *expr.Individual) ([]float64, []float64, error) {
	train, err := ind.TrainSemantics()
	if err != nil {
		return nil, nil, err
	}
	test, err := ind.TestSemantics()
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

func crossoverSemantics(p1, p2, r []float64) []float64 {
	ones := vecops.Broadcast(1, len(r))
	return vecops.Add(vecops.Mul(p1, r), vecops.Mul(vecops.Sub(ones, r), p2))
}

func mutationSemantics(p, r1, r2 []float64, step float64) []float64 {
	if step == 0 {
		// 0*Inf from an unbounded random tree would otherwise yield NaN
		return append([]float64(nil), p...)
	}
	return vecops.AddScaled(p, step, vecops.Sub(r1, r2))
}
