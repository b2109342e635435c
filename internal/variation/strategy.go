// Package variation implements the crossover and mutation strategies that
// produce offspring from evaluated parents.
package variation

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"gpforge/internal/dataset"
	"gpforge/internal/expr"
)

// RandomTreeDepth is the max depth of grow-generated replacement and random trees.
const RandomTreeDepth = 6

var ErrUnknownMethod = errors.New("unknown variation method")

// Strategy produces a fully evaluated offspring.
type Strategy interface {
	Name() string
	Crossover(rng *rand.Rand, p1, p2 *expr.Individual, ds dataset.Source) (*expr.Individual, error)
	Mutation(rng *rand.Rand, parent *expr.Individual, ds dataset.Source) (*expr.Individual, error)
}

type MethodKind string

const (
	MethodStandard          MethodKind = "standard"
	MethodGeometricSemantic MethodKind = "geometric_semantic"
)

// Method is the configuration-level description of a variation strategy.
type Method struct {
	Kind         MethodKind `json:"kind" toml:"kind" yaml:"kind"`
	MutationStep float64    `json:"mutation_step,omitempty" toml:"mutation_step" yaml:"mutation_step"`
	Bounded      bool       `json:"bounded,omitempty" toml:"bounded" yaml:"bounded"`
}

func Standard() Method {
	return Method{Kind: MethodStandard}
}

func GeometricSemantic(mutationStep float64, bounded bool) Method {
	return Method{Kind: MethodGeometricSemantic, MutationStep: mutationStep, Bounded: bounded}
}

func (m Method) String() string {
	if m.Kind == MethodGeometricSemantic {
		return fmt.Sprintf("%s(ms=%g,bounded=%t)", m.Kind, m.MutationStep, m.Bounded)
	}
	return string(m.Kind)
}

var strategies = map[MethodKind]func(Method) Strategy{
	MethodStandard: func(Method) Strategy {
		return StandardStrategy{MutationDepth: RandomTreeDepth}
	},
	MethodGeometricSemantic: func(m Method) Strategy {
		return GeometricSemanticStrategy{
			MutationStep:    m.MutationStep,
			Bounded:         m.Bounded,
			RandomTreeDepth: RandomTreeDepth,
		}
	},
}

// Strategy resolves the method through the dispatch table once per run.
func (m Method) Strategy() (Strategy, error) {
	build, ok := strategies[m.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, m.Kind)
	}
	return build(m), nil
}

// ParseMethodKind accepts the canonical names plus the short aliases used on
// the command line.
func ParseMethodKind(raw string) (MethodKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "standard", "std":
		return MethodStandard, nil
	case "geometric_semantic", "geometric-semantic", "gsgp", "gs":
		return MethodGeometricSemantic, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, raw)
	}
}
