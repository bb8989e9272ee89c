package ml

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// TreeConfig holds the growth limits of a single regression tree.
type TreeConfig struct {
	MaxDepth        int // 0 => unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
}

func (c TreeConfig) withDefaults() TreeConfig {
	if c.MinSamplesSplit < 2 {
		c.MinSamplesSplit = 2
	}
	if c.MinSamplesLeaf < 1 {
		c.MinSamplesLeaf = 1
	}
	return c
}

// treeNode is stored in a flat slice. Leaves have left == right == -1.
type treeNode struct {
	feature   int
	threshold float64 // x[feature] <= threshold => left
	left      int
	right     int
	value     float64
	samples   int
}

func (n treeNode) isLeaf() bool { return n.left < 0 }

// RegressionTree is a CART tree fitted by minimizing squared error.
type RegressionTree struct {
	nodes []treeNode
	depth int
}

// fitTree grows a tree on the rows of x selected by idx (duplicates allowed,
// as produced by bootstrap sampling).
func fitTree(x *mat.Dense, y []float64, idx []int, cfg TreeConfig) *RegressionTree {
	t := &RegressionTree{nodes: make([]treeNode, 0, 2*len(idx))}
	b := &treeBuilder{x: x, y: y, cfg: cfg.withDefaults(), tree: t}
	b.build(idx, 0)
	return t
}

// Predict walks the tree for a single, already scaled, feature vector.
func (t *RegressionTree) Predict(x []float64) float64 {
	i := 0
	for {
		n := t.nodes[i]
		if n.isLeaf() {
			return n.value
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

// Depth of the deepest leaf, root at depth 0.
func (t *RegressionTree) Depth() int { return t.depth }

// Leaves returns the number of leaf nodes.
func (t *RegressionTree) Leaves() int {
	n := 0
	for _, node := range t.nodes {
		if node.isLeaf() {
			n++
		}
	}
	return n
}

type treeBuilder struct {
	x    *mat.Dense
	y    []float64
	cfg  TreeConfig
	tree *RegressionTree
}

type split struct {
	feature   int
	threshold float64
	pos       int // rows sorted[:pos] go left
	sorted    []int
	sse       float64
}

func (b *treeBuilder) build(idx []int, depth int) int {
	if depth > b.tree.depth {
		b.tree.depth = depth
	}

	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	mean := sum / n
	sse := sumSq - sum*sum/n

	id := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, treeNode{left: -1, right: -1, value: mean, samples: len(idx)})

	if len(idx) < b.cfg.MinSamplesSplit ||
		len(idx) < 2*b.cfg.MinSamplesLeaf ||
		(b.cfg.MaxDepth > 0 && depth >= b.cfg.MaxDepth) ||
		sse <= 1e-12*math.Max(1, sumSq) {
		return id
	}

	best, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	left := append([]int(nil), best.sorted[:best.pos]...)
	right := append([]int(nil), best.sorted[best.pos:]...)

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)

	node := &b.tree.nodes[id]
	node.feature = best.feature
	node.threshold = best.threshold
	node.left = l
	node.right = r
	return id
}

// bestSplit scans every feature for the threshold minimizing the summed squared
// error of both children. Thresholds sit halfway between consecutive distinct values.
func (b *treeBuilder) bestSplit(idx []int) (split, bool) {
	_, cols := b.x.Dims()
	minLeaf := b.cfg.MinSamplesLeaf
	n := len(idx)

	best := split{sse: math.Inf(1), sorted: make([]int, n)}
	found := false

	sorted := make([]int, n)
	for f := 0; f < cols; f++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool {
			return b.x.At(sorted[a], f) < b.x.At(sorted[c], f)
		})

		totalSum, totalSq := 0.0, 0.0
		for _, i := range sorted {
			totalSum += b.y[i]
			totalSq += b.y[i] * b.y[i]
		}

		leftSum, leftSq := 0.0, 0.0
		for pos := 1; pos < n; pos++ {
			yi := b.y[sorted[pos-1]]
			leftSum += yi
			leftSq += yi * yi

			if pos < minLeaf || n-pos < minLeaf {
				continue
			}
			lo := b.x.At(sorted[pos-1], f)
			hi := b.x.At(sorted[pos], f)
			if lo >= hi {
				continue
			}

			nl, nr := float64(pos), float64(n-pos)
			rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if sse < best.sse {
				threshold := lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}
				best.feature, best.threshold, best.pos, best.sse = f, threshold, pos, sse
				copy(best.sorted, sorted)
				found = true
			}
		}
	}
	return best, found
}
