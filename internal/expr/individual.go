package expr

import (
	"fmt"
	"log/slog"
)

// Individual is a candidate formula: a pre-order node sequence plus the
// results of evaluating it. Geometric semantic offspring carry semantics and
// an analytic size/depth but no nodes.
type Individual struct {
	core []Node

	trainSemantics []float64
	testSemantics  []float64

	train     float64
	test      float64
	evaluated bool

	size     int
	depth    int
	hasDepth bool
}

func New() *Individual {
	return &Individual{}
}

// FromNodes wraps a copy of nodes. The caller is responsible for passing a
// complete prefix encoding; Validate checks it.
func FromNodes(nodes []Node) *Individual {
	return &Individual{core: append([]Node(nil), nodes...)}
}

// Synthesized builds an individual that exists only in semantics space.
func Synthesized(trainSemantics, testSemantics []float64, size, depth int) *Individual {
	return &Individual{
		trainSemantics: trainSemantics,
		testSemantics:  testSemantics,
		size:           size,
		depth:          depth,
		hasDepth:       true,
	}
}

func (ind *Individual) Nodes() []Node {
	return append([]Node(nil), ind.core...)
}

func (ind *Individual) Len() int {
	return len(ind.core)
}

// HasTree reports whether the individual carries an explicit node sequence.
func (ind *Individual) HasTree() bool {
	return len(ind.core) > 0
}

// Size is the node count, or the analytic size of a synthesized individual.
func (ind *Individual) Size() int {
	if len(ind.core) > 0 {
		return len(ind.core)
	}
	return ind.size
}

func (ind *Individual) Depth() (int, bool) {
	return ind.depth, ind.hasDepth
}

func (ind *Individual) Train() (float64, bool) {
	return ind.train, ind.evaluated
}

func (ind *Individual) Test() (float64, bool) {
	return ind.test, ind.evaluated
}

func (ind *Individual) Evaluated() bool {
	return ind.evaluated
}

// TrainSemantics returns the train-split outputs. The slice is shared and
// must not be modified.
func (ind *Individual) TrainSemantics() ([]float64, error) {
	if ind.trainSemantics == nil {
		return nil, fmt.Errorf("%w: train semantics not computed", ErrUnevaluated)
	}
	return ind.trainSemantics, nil
}

func (ind *Individual) TestSemantics() ([]float64, error) {
	if ind.testSemantics == nil {
		return nil, fmt.Errorf("%w: test semantics not computed", ErrUnevaluated)
	}
	return ind.testSemantics, nil
}

// Clone returns a deep copy that shares no memory with ind.
func (ind *Individual) Clone() *Individual {
	out := *ind
	out.core = append([]Node(nil), ind.core...)
	if ind.trainSemantics != nil {
		out.trainSemantics = append([]float64(nil), ind.trainSemantics...)
	}
	if ind.testSemantics != nil {
		out.testSemantics = append([]float64(nil), ind.testSemantics...)
	}
	return &out
}

// SubtreeSize counts the nodes of the subtree rooted at start.
func (ind *Individual) SubtreeSize(start int) (int, error) {
	if start < 0 || start >= len(ind.core) {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, start, len(ind.core))
	}
	count := 1
	for child := 0; child < ind.core[start].Arity(); child++ {
		if start+count >= len(ind.core) {
			return 0, fmt.Errorf("%w: %s at %d is missing children", ErrMalformedTree, ind.core[start], start)
		}
		n, err := ind.SubtreeSize(start + count)
		if err != nil {
			return 0, err
		}
		count += n
	}
	return count, nil
}

// PrefixCopy returns the nodes before index excluding.
func (ind *Individual) PrefixCopy(excluding int) []Node {
	return append([]Node(nil), ind.core[:excluding]...)
}

// SliceCopy returns count nodes starting at from.
func (ind *Individual) SliceCopy(from, count int) []Node {
	return append([]Node(nil), ind.core[from:from+count]...)
}

// SuffixCopy returns the nodes from index from (inclusive) to the end.
func (ind *Individual) SuffixCopy(from int) []Node {
	return append([]Node(nil), ind.core[from:]...)
}

// Append extends the node sequence. Offspring are assembled as
// prefix + replacement subtree + suffix, which keeps the encoding complete.
func (ind *Individual) Append(nodes ...Node) {
	ind.core = append(ind.core, nodes...)
	ind.size = len(ind.core)
}

// Prepend makes node the new root; node must have arity 1 for the result to
// stay well formed. Results of any earlier evaluation are dropped.
func (ind *Individual) Prepend(node Node) {
	ind.core = append([]Node{node}, ind.core...)
	ind.size = len(ind.core)
	ind.trainSemantics, ind.testSemantics = nil, nil
	ind.train, ind.test = 0, 0
	ind.evaluated = false
	ind.hasDepth = false
}

// Validate checks that the node sequence is exactly one complete prefix tree.
func (ind *Individual) Validate() error {
	if len(ind.core) == 0 {
		return ErrEmptyTree
	}
	n, err := ind.SubtreeSize(0)
	if err != nil {
		return err
	}
	if n != len(ind.core) {
		return fmt.Errorf("%w: root spans %d of %d nodes", ErrMalformedTree, n, len(ind.core))
	}
	return nil
}

// ComputeDepth derives the maximum root-to-leaf edge count from the node
// sequence. It is a no-op when depth is already known.
func (ind *Individual) ComputeDepth() error {
	if ind.hasDepth {
		slog.Debug("depth already computed", slog.Int("depth", ind.depth))
		return nil
	}
	if len(ind.core) == 0 {
		return ErrEmptyTree
	}
	cursor := 0
	maxDepth := 0
	if err := ind.walkDepth(&cursor, 0, &maxDepth); err != nil {
		return err
	}
	if cursor != len(ind.core) {
		return fmt.Errorf("%w: %d trailing nodes", ErrMalformedTree, len(ind.core)-cursor)
	}
	ind.depth = maxDepth
	ind.hasDepth = true
	return nil
}

func (ind *Individual) walkDepth(cursor *int, current int, maxDepth *int) error {
	if *cursor >= len(ind.core) {
		return fmt.Errorf("%w: ran past end at depth %d", ErrMalformedTree, current)
	}
	node := ind.core[*cursor]
	*cursor++
	if current > *maxDepth {
		*maxDepth = current
	}
	for child := 0; child < node.Arity(); child++ {
		if err := ind.walkDepth(cursor, current+1, maxDepth); err != nil {
			return err
		}
	}
	return nil
}
