package train

import "sort"

// node is one node of a histogram-based regression tree fit on gradients and
// hessians (the per-iteration base learner of the boosted ensemble). Leaves
// carry a Newton-step value; internal nodes carry a (feature, threshold)
// split.
type node struct {
	isLeaf    bool
	value     float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

func (n *node) predict(row []float64) float64 {
	for !n.isLeaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// treeParams controls a single base learner.
type treeParams struct {
	maxDepth      int
	minLeafSize   int
	l2Reg         float64 // lambda, Newton-step and gain regularizer
	maxBins       int     // histogram resolution per feature
}

// histogramTree fits one regression tree to (X, gradient, hessian) using a
// fixed per-feature histogram of candidate split points, the same
// bin-then-scan strategy real histogram-based GBDT implementations use to
// keep split search sub-quadratic in the number of rows.
type histogramTree struct {
	params treeParams
	root   *node
}

func newHistogramTree(p treeParams) *histogramTree {
	if p.maxDepth <= 0 {
		p.maxDepth = 4
	}
	if p.minLeafSize <= 0 {
		p.minLeafSize = 5
	}
	if p.maxBins <= 0 {
		p.maxBins = 32
	}
	return &histogramTree{params: p}
}

func (t *histogramTree) fit(x [][]float64, grad, hess []float64) {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	bins := buildBins(x, t.params.maxBins)
	t.root = t.buildNode(x, grad, hess, idx, bins, 0)
}

func (t *histogramTree) predict(row []float64) float64 {
	return t.root.predict(row)
}

func leafValue(gradSum, hessSum, l2 float64) float64 {
	return -gradSum / (hessSum + l2)
}

func (t *histogramTree) buildNode(x [][]float64, grad, hess []float64, idx []int, bins [][]float64, depth int) *node {
	gradSum, hessSum := sumAt(grad, idx), sumAt(hess, idx)
	leaf := &node{isLeaf: true, value: leafValue(gradSum, hessSum, t.params.l2Reg)}
	if depth >= t.params.maxDepth || len(idx) < 2*t.params.minLeafSize {
		return leaf
	}

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0
	var bestLeft, bestRight []int

	numFeatures := len(x[0])
	for f := 0; f < numFeatures; f++ {
		for _, thr := range bins[f] {
			var left, right []int
			var gl, hl float64
			for _, i := range idx {
				if x[i][f] <= thr {
					left = append(left, i)
					gl += grad[i]
					hl += hess[i]
				} else {
					right = append(right, i)
				}
			}
			if len(left) < t.params.minLeafSize || len(right) < t.params.minLeafSize {
				continue
			}
			gr, hr := gradSum-gl, hessSum-hl
			gain := splitGain(gl, hl, gr, hr, gradSum, hessSum, t.params.l2Reg)
			if gain > bestGain {
				bestGain, bestFeature, bestThreshold = gain, f, thr
				bestLeft, bestRight = left, right
			}
		}
	}

	if bestFeature < 0 {
		return leaf
	}
	n := &node{feature: bestFeature, threshold: bestThreshold}
	n.left = t.buildNode(x, grad, hess, bestLeft, bins, depth+1)
	n.right = t.buildNode(x, grad, hess, bestRight, bins, depth+1)
	return n
}

// splitGain is the standard regularized gradient-boosting split score:
// sum of child leaf scores minus the parent's, each penalized by l2Reg.
func splitGain(gl, hl, gr, hr, gParent, hParent, l2 float64) float64 {
	score := func(g, h float64) float64 { return g * g / (h + l2) }
	return 0.5 * (score(gl, hl) + score(gr, hr) - score(gParent, hParent))
}

func sumAt(v []float64, idx []int) float64 {
	s := 0.0
	for _, i := range idx {
		s += v[i]
	}
	return s
}

// buildBins computes per-feature candidate split thresholds as quantiles of
// the observed values, capped at maxBins distinct thresholds.
func buildBins(x [][]float64, maxBins int) [][]float64 {
	if len(x) == 0 {
		return nil
	}
	numFeatures := len(x[0])
	bins := make([][]float64, numFeatures)
	col := make([]float64, len(x))
	for f := 0; f < numFeatures; f++ {
		for i := range x {
			col[i] = x[i][f]
		}
		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)
		bins[f] = quantileThresholds(sorted, maxBins)
	}
	return bins
}

func quantileThresholds(sorted []float64, maxBins int) []float64 {
	if len(sorted) == 0 {
		return nil
	}
	seen := make(map[float64]bool)
	var out []float64
	for b := 1; b < maxBins; b++ {
		pos := b * (len(sorted) - 1) / maxBins
		v := sorted[pos]
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
