package expr

import "math/rand"

// Full generates a tree whose every leaf sits at exactly maxDepth.
func Full(rng *rand.Rand, maxDepth, dims int) *Individual {
	ind := New()
	ind.full(rng, 0, maxDepth, dims)
	ind.size = len(ind.core)
	return ind
}

// Grow generates an irregular tree with no leaf deeper than maxDepth.
func Grow(rng *rand.Rand, maxDepth, dims int) *Individual {
	ind := New()
	ind.grow(rng, 0, maxDepth, dims)
	ind.size = len(ind.core)
	return ind
}

func (ind *Individual) full(rng *rand.Rand, depth, maxDepth, dims int) {
	if depth >= maxDepth {
		ind.core = append(ind.core, RandomTerminal(rng, dims))
		return
	}
	node := RandomFunctional(rng)
	ind.core = append(ind.core, node)
	for child := 0; child < node.Arity(); child++ {
		ind.full(rng, depth+1, maxDepth, dims)
	}
}

func (ind *Individual) grow(rng *rand.Rand, depth, maxDepth, dims int) {
	if depth >= maxDepth || rng.Intn(2) == 0 {
		ind.core = append(ind.core, RandomTerminal(rng, dims))
		return
	}
	node := RandomFunctional(rng)
	ind.core = append(ind.core, node)
	for child := 0; child < node.Arity(); child++ {
		ind.grow(rng, depth+1, maxDepth, dims)
	}
}
