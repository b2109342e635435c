// Package expr implements the flattened expression-tree representation of a
// regression formula. A tree is stored as its pre-order linearization; shape
// is recovered by consuming Arity() subtrees after every functional node.
package expr

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"

	"gpforge/internal/vecops"
)

var (
	ErrArityMismatch   = errors.New("argument count does not match node arity")
	ErrNotOperable     = errors.New("terminal node cannot be applied")
	ErrEmptyTree       = errors.New("individual has no nodes")
	ErrUnevaluated     = errors.New("individual is not evaluated")
	ErrMalformedTree   = errors.New("malformed prefix encoding")
	ErrIndexOutOfRange = errors.New("node index out of range")
)

type Kind uint8

const (
	Addition Kind = iota
	Subtraction
	Multiplication
	Division
	Cosine
	LogFunction
	Input
	Constant
)

var kindNames = [...]string{
	Addition:       "add",
	Subtraction:    "sub",
	Multiplication: "mul",
	Division:       "div",
	Cosine:         "cos",
	LogFunction:    "logistic",
	Input:          "input",
	Constant:       "const",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ConstantSet is the discretized terminal constant set.
var ConstantSet = [...]float64{-1.0, -0.75, -0.5, -0.25, 0.0, 0.25, 0.5, 0.75, 1.0}

// randomFunctionals excludes LogFunction, which only bounds geometric
// semantic random trees.
var randomFunctionals = [...]Kind{Addition, Subtraction, Cosine, Multiplication, Division}

// Node is one element of a tree. Index is meaningful only for Input nodes and
// Value only for Constant nodes.
type Node struct {
	Kind  Kind
	Index int
	Value float64
}

func Op(kind Kind) Node            { return Node{Kind: kind} }
func InputNode(index int) Node     { return Node{Kind: Input, Index: index} }
func ConstNode(value float64) Node { return Node{Kind: Constant, Value: value} }

func (n Node) Arity() int {
	switch n.Kind {
	case Input, Constant:
		return 0
	case Cosine, LogFunction:
		return 1
	default:
		return 2
	}
}

func (n Node) IsTerminal() bool {
	return n.Arity() == 0
}

// Apply runs the node's elementwise operation over its evaluated children.
// Terminals are resolved by the caller.
func (n Node) Apply(args [][]float64) ([]float64, error) {
	if n.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", ErrNotOperable, n)
	}
	if len(args) != n.Arity() {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrArityMismatch, n.Kind, n.Arity(), len(args))
	}
	switch n.Kind {
	case Addition:
		return vecops.Add(args[0], args[1]), nil
	case Subtraction:
		return vecops.Sub(args[0], args[1]), nil
	case Multiplication:
		return vecops.Mul(args[0], args[1]), nil
	case Division:
		return vecops.Div(args[0], args[1]), nil
	case Cosine:
		return vecops.Cos(args[0]), nil
	case LogFunction:
		return vecops.Logistic(args[0]), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %s", ErrNotOperable, n.Kind)
	}
}

func (n Node) String() string {
	switch n.Kind {
	case Input:
		return "x" + strconv.Itoa(n.Index)
	case Constant:
		return strconv.FormatFloat(n.Value, 'g', -1, 64)
	default:
		return n.Kind.String()
	}
}

func RandomConstant(rng *rand.Rand) Node {
	return ConstNode(ConstantSet[rng.Intn(len(ConstantSet))])
}

func RandomFunctional(rng *rand.Rand) Node {
	return Op(randomFunctionals[rng.Intn(len(randomFunctionals))])
}

func RandomInput(rng *rand.Rand, dims int) Node {
	return InputNode(rng.Intn(dims))
}

// RandomTerminal picks a constant or an input with equal probability.
func RandomTerminal(rng *rand.Rand, dims int) Node {
	if rng.Intn(2) == 0 {
		return RandomConstant(rng)
	}
	return RandomInput(rng, dims)
}
