package regress

import (
	"math"
	"math/rand"
	"sort"
)

// treeNode is one node of a fitted regression tree. Leaves have
// Feature == -1 and carry the prediction in Value.
type treeNode struct {
	Feature   int
	Threshold float64
	Left      int32
	Right     int32
	Value     float64
}

// regressionTree is a CART regression tree grown by variance reduction.
// Fields are exported through the containing ensembles for serialization.
type regressionTree struct {
	Nodes []treeNode
}

// treeConfig controls tree growth. MaxFeatures limits the candidate feature
// set per split (0 means all features), which is how the forest
// decorrelates its members.
type treeConfig struct {
	MaxDepth    int
	MinLeaf     int
	MaxFeatures int
}

// fitTree grows a tree on X[rows], y[rows]. The rng drives feature
// subsampling only; with MaxFeatures == 0 fitting is fully deterministic.
func fitTree(X [][]float64, y []float64, rows []int, cfg treeConfig, rng *rand.Rand) *regressionTree {
	t := &regressionTree{}
	t.grow(X, y, rows, 0, cfg, rng)
	return t
}

func (t *regressionTree) grow(X [][]float64, y []float64, rows []int, depth int, cfg treeConfig, rng *rand.Rand) int32 {
	idx := int32(len(t.Nodes))
	t.Nodes = append(t.Nodes, treeNode{Feature: -1, Left: -1, Right: -1, Value: meanAt(y, rows)})

	if depth >= cfg.MaxDepth || len(rows) < 2*cfg.MinLeaf {
		return idx
	}

	feature, threshold, ok := bestSplit(X, y, rows, cfg, rng)
	if !ok {
		return idx
	}

	var left, right []int
	for _, r := range rows {
		if X[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) < cfg.MinLeaf || len(right) < cfg.MinLeaf {
		return idx
	}

	t.Nodes[idx].Feature = feature
	t.Nodes[idx].Threshold = threshold
	l := t.grow(X, y, left, depth+1, cfg, rng)
	r := t.grow(X, y, right, depth+1, cfg, rng)
	t.Nodes[idx].Left = l
	t.Nodes[idx].Right = r
	return idx
}

// bestSplit finds the split minimizing the weighted sum of child variances
// over the candidate features.
func bestSplit(X [][]float64, y []float64, rows []int, cfg treeConfig, rng *rand.Rand) (int, float64, bool) {
	nFeatures := len(X[rows[0]])
	candidates := make([]int, nFeatures)
	for i := range candidates {
		candidates[i] = i
	}
	if cfg.MaxFeatures > 0 && cfg.MaxFeatures < nFeatures {
		rng.Shuffle(nFeatures, func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		candidates = candidates[:cfg.MaxFeatures]
		// Stable candidate order keeps tie-breaks deterministic per seed.
		sort.Ints(candidates)
	}

	bestScore := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	vals := make([]float64, 0, len(rows))
	order := make([]int, len(rows))

	for _, f := range candidates {
		order = order[:0]
		order = append(order, rows...)
		sort.Slice(order, func(i, j int) bool { return X[order[i]][f] < X[order[j]][f] })

		vals = vals[:0]
		for _, r := range order {
			vals = append(vals, y[r])
		}

		// Prefix sums give O(1) variance for each split position.
		n := len(order)
		var sum, sumSq float64
		totals := make([]float64, n+1)
		totalsSq := make([]float64, n+1)
		for i, v := range vals {
			sum += v
			sumSq += v * v
			totals[i+1] = sum
			totalsSq[i+1] = sumSq
		}

		for i := cfg.MinLeaf; i <= n-cfg.MinLeaf; i++ {
			lo, hi := X[order[i-1]][f], X[order[i]][f]
			if lo == hi {
				continue
			}
			nl, nr := float64(i), float64(n-i)
			sl, sr := totals[i], totals[n]-totals[i]
			ql, qr := totalsSq[i], totalsSq[n]-totalsSq[i]
			score := (ql - sl*sl/nl) + (qr - sr*sr/nr)
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = (lo + hi) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

// predict walks the tree for one row.
func (t *regressionTree) predict(x []float64) float64 {
	i := int32(0)
	for {
		node := t.Nodes[i]
		if node.Feature < 0 {
			return node.Value
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

func meanAt(y []float64, rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rows {
		sum += y[r]
	}
	return sum / float64(len(rows))
}
