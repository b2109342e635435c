package evo

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gpforge/internal/dataset"
	"gpforge/internal/expr"
)

// Population is an ordered collection of individuals. Order is meaningful
// only after SortByTrainingError, when index 0 is the fittest.
type Population struct {
	members []*expr.Individual
}

func NewPopulation(members ...*expr.Individual) *Population {
	return &Population{members: append([]*expr.Individual(nil), members...)}
}

func (p *Population) Len() int {
	return len(p.members)
}

func (p *Population) IsEmpty() bool {
	return len(p.members) == 0
}

func (p *Population) At(i int) *expr.Individual {
	return p.members[i]
}

// Members returns the backing order; callers must not retain it across
// population mutations.
func (p *Population) Members() []*expr.Individual {
	return p.members
}

func (p *Population) Add(ind *expr.Individual) {
	p.members = append(p.members, ind)
}

func (p *Population) AddAll(inds []*expr.Individual) {
	p.members = append(p.members, inds...)
}

// RampGroup is one depth group of ramped half-and-half initialization.
type RampGroup struct {
	Depth int
	Full  int
	Grow  int
}

// RampedGroups splits size across depths 1..maxDepth; the deepest group
// absorbs the remainder, and each group is split with the ceiling going to
// full and the floor to grow.
func RampedGroups(size, maxDepth int) ([]RampGroup, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPopulationSize, size)
	}
	if maxDepth <= 0 {
		return nil, fmt.Errorf("%w: max initial depth %d", ErrInvalidDepth, maxDepth)
	}
	perDepth := size / maxDepth
	remainder := size % maxDepth

	groups := make([]RampGroup, 0, maxDepth)
	for depth := 1; depth <= maxDepth; depth++ {
		n := perDepth
		if depth == maxDepth {
			n += remainder
		}
		groups = append(groups, RampGroup{Depth: depth, Full: (n + 1) / 2, Grow: n / 2})
	}
	return groups, nil
}

// RampedHalfHalf builds and evaluates a population of the given size.
func RampedHalfHalf(rng *rand.Rand, size, maxDepth int, ds dataset.Source) (*Population, error) {
	groups, err := RampedGroups(size, maxDepth)
	if err != nil {
		return nil, err
	}
	pop := &Population{members: make([]*expr.Individual, 0, size)}
	for _, g := range groups {
		for i := 0; i < g.Full; i++ {
			if err := pop.addEvaluated(expr.Full(rng, g.Depth, ds.Dims()), ds); err != nil {
				return nil, err
			}
		}
		for i := 0; i < g.Grow; i++ {
			if err := pop.addEvaluated(expr.Grow(rng, g.Depth, ds.Dims()), ds); err != nil {
				return nil, err
			}
		}
	}
	return pop, nil
}

func (p *Population) addEvaluated(ind *expr.Individual, ds dataset.Source) error {
	if err := ind.Evaluate(ds); err != nil {
		return fmt.Errorf("initialize individual %d: %w", len(p.members), err)
	}
	p.members = append(p.members, ind)
	return nil
}

// Fittest scans for the lowest training error without reordering.
func (p *Population) Fittest() (*expr.Individual, error) {
	if len(p.members) == 0 {
		return nil, ErrEmptyPopulation
	}
	best := p.members[0]
	bestErr, ok := best.Train()
	if !ok {
		return nil, fmt.Errorf("individual 0: %w", expr.ErrUnevaluated)
	}
	for i, ind := range p.members[1:] {
		e, ok := ind.Train()
		if !ok {
			return nil, fmt.Errorf("individual %d: %w", i+1, expr.ErrUnevaluated)
		}
		if lessError(e, bestErr) {
			best, bestErr = ind, e
		}
	}
	return best, nil
}

// SortByTrainingError stable-sorts ascending by training error.
func (p *Population) SortByTrainingError() error {
	for i, ind := range p.members {
		if !ind.Evaluated() {
			return fmt.Errorf("individual %d: %w", i, expr.ErrUnevaluated)
		}
	}
	sort.SliceStable(p.members, func(i, j int) bool {
		a, _ := p.members[i].Train()
		b, _ := p.members[j].Train()
		return lessError(a, b)
	})
	return nil
}

// BestK sorts the population in place and returns deep copies of its k
// fittest members (all of them when k exceeds the size).
func (p *Population) BestK(k int) ([]*expr.Individual, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: k=%d", ErrInvalidPopulationSize, k)
	}
	if err := p.SortByTrainingError(); err != nil {
		return nil, err
	}
	k = min(k, len(p.members))
	out := make([]*expr.Individual, 0, k)
	for _, ind := range p.members[:k] {
		out = append(out, ind.Clone())
	}
	return out, nil
}

// TruncateToK sorts and keeps only the k fittest.
func (p *Population) TruncateToK(k int) error {
	if k < 0 {
		return fmt.Errorf("%w: k=%d", ErrInvalidPopulationSize, k)
	}
	if err := p.SortByTrainingError(); err != nil {
		return err
	}
	if k < len(p.members) {
		clear(p.members[k:])
		p.members = p.members[:k]
	}
	return nil
}

// lessError orders NaN errors after every number so they never win.
func lessError(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a < b
}
