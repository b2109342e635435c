package evo

import (
	"fmt"
	"math/rand"
	"strings"

	"gpforge/internal/expr"
)

// Selector chooses a parent from an evaluated population.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, pop *Population) (*expr.Individual, error)
}

type SelectionMethod string

const (
	SelectionTournament           SelectionMethod = "tournament"
	SelectionFitnessProportionate SelectionMethod = "fitness_proportionate"
	SelectionRank                 SelectionMethod = "rank"
	SelectionParetoRank           SelectionMethod = "pareto_rank"
)

// NewSelector resolves a configured method. Declared but unimplemented
// policies resolve to selectors that fail on use.
func NewSelector(method SelectionMethod, poolSize int) (Selector, error) {
	switch method {
	case SelectionTournament, "":
		if poolSize < 1 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidPoolSize, poolSize)
		}
		return TournamentSelector{PoolSize: poolSize}, nil
	case SelectionFitnessProportionate:
		return FitnessProportionateSelector{}, nil
	case SelectionRank:
		return RankSelector{}, nil
	case SelectionParetoRank:
		return ParetoRankSelector{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSelection, method)
	}
}

func ParseSelectionMethod(raw string) (SelectionMethod, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "tournament":
		return SelectionTournament, nil
	case "fitness_proportionate", "fitness-proportionate", "roulette":
		return SelectionFitnessProportionate, nil
	case "rank":
		return SelectionRank, nil
	case "pareto_rank", "pareto-rank", "pareto":
		return SelectionParetoRank, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSelection, raw)
	}
}

// TournamentSelector draws PoolSize individuals uniformly with replacement
// and keeps the one with the lowest training error; ties keep the first drawn.
type TournamentSelector struct {
	PoolSize int
}

func (TournamentSelector) Name() string {
	return string(SelectionTournament)
}

func (s TournamentSelector) PickParent(rng *rand.Rand, pop *Population) (*expr.Individual, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if s.PoolSize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPoolSize, s.PoolSize)
	}
	if pop.IsEmpty() {
		return nil, ErrEmptyPopulation
	}

	best := pop.At(rng.Intn(pop.Len()))
	bestErr, ok := best.Train()
	if !ok {
		return nil, fmt.Errorf("tournament: %w", expr.ErrUnevaluated)
	}
	for i := 1; i < s.PoolSize; i++ {
		candidate := pop.At(rng.Intn(pop.Len()))
		candidateErr, ok := candidate.Train()
		if !ok {
			return nil, fmt.Errorf("tournament: %w", expr.ErrUnevaluated)
		}
		if lessError(candidateErr, bestErr) {
			best, bestErr = candidate, candidateErr
		}
	}
	return best, nil
}

type FitnessProportionateSelector struct{}

func (FitnessProportionateSelector) Name() string {
	return string(SelectionFitnessProportionate)
}

func (FitnessProportionateSelector) PickParent(*rand.Rand, *Population) (*expr.Individual, error) {
	return nil, fmt.Errorf("%w: %s", ErrNotImplemented, SelectionFitnessProportionate)
}

type RankSelector struct{}

func (RankSelector) Name() string {
	return string(SelectionRank)
}

func (RankSelector) PickParent(*rand.Rand, *Population) (*expr.Individual, error) {
	return nil, fmt.Errorf("%w: %s", ErrNotImplemented, SelectionRank)
}

type ParetoRankSelector struct{}

func (ParetoRankSelector) Name() string {
	return string(SelectionParetoRank)
}

func (ParetoRankSelector) PickParent(*rand.Rand, *Population) (*expr.Individual, error) {
	return nil, fmt.Errorf("%w: %s", ErrNotImplemented, SelectionParetoRank)
}
